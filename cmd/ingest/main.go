package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := NewRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		logrus.Exit(1)
	}
}
