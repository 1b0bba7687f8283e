package controllers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"taxi_zones/internal/ingest"
	"taxi_zones/internal/reconcile"
)

// formOverhead is the room allowed beyond the file for multipart headers
// and the other form fields.
const formOverhead = 64 << 10

// UploadTripsParquet ingests a TLC trip parquet file sent as multipart form
// data: file, mode (create|update), limit_rows and top_n_routes.
func (ctl *Controller) UploadTripsParquet(c *gin.Context) {
	limit := ctl.upload.MaxBytes + formOverhead
	if c.Request.ContentLength > limit {
		ctl.tooLarge(c)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	if _, err := c.MultipartForm(); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			ctl.tooLarge(c)
			return
		}
		logrus.WithError(err).Warn("UploadTripsParquet: invalid multipart form")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form: " + err.Error()})
		return
	}

	mode := c.PostForm("mode")
	if _, err := reconcile.ParsePolicy(mode); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "category": ingest.CategoryInvalidPolicy})
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	limitRows, err := formInt(c, "limit_rows", ctl.upload.DefaultLimitRows)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	topN, err := formInt(c, "top_n_routes", ctl.upload.DefaultTopN)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if fh.Size > ctl.upload.MaxBytes {
		ctl.tooLarge(c)
		return
	}

	f, err := fh.Open()
	if err != nil {
		logrus.WithError(err).Error("UploadTripsParquet: opening upload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error processing file: " + err.Error()})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error processing file: " + err.Error()})
		return
	}

	summary, err := ctl.pipeline.Run(c.Request.Context(), ingest.Request{
		FileName:   fh.Filename,
		Data:       data,
		Policy:     mode,
		RowLimit:   limitRows,
		TopNRoutes: topN,
	})
	if err != nil {
		var ie *ingest.Error
		if errors.As(err, &ie) {
			c.JSON(http.StatusBadRequest, gin.H{"error": ie.Message, "category": ie.Category})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error processing file: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (ctl *Controller) tooLarge(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": fmt.Sprintf("File exceeds maximum upload size of %d bytes", ctl.upload.MaxBytes),
	})
}

func formInt(c *gin.Context, key string, def int) (int, error) {
	v, ok := c.GetPostForm(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Errorf("%s must be an integer", key)
	}
	return n, nil
}
