package logger

import (
	"io"
	"os"
	"time"

	"github.com/natefinch/lumberjack"
	logrus "github.com/sirupsen/logrus"
)

// Setup configures the standard Logrus logger. With a file name, output goes
// through a rotating file; otherwise to stderr. The returned writer is the
// one Logrus writes to, so access logs can share it.
func Setup(file, level string) (io.Writer, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var out io.Writer = os.Stderr
	if file != "" {
		// Lumberjack for file rotation
		out = &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // megabytes
			MaxBackups: 7,  // keep up to 7 old files
			MaxAge:     7,  // days
			Compress:   true,
		}
	}

	logrus.SetOutput(out)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	logrus.SetLevel(lvl)
	return out, nil
}
