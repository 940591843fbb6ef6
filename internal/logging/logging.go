package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/vieilles-charrues/mintauction/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logFileName = "mintauction.log"

// Setup configures the global logrus logger from service settings.
// The returned closer flushes the rotating file writer, if any.
func Setup(cfg config.ServerConfig) (io.Closer, error) {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	if !cfg.LoggingToFile {
		log.SetOutput(os.Stdout)
		return nopCloser{}, nil
	}

	dir := strings.TrimSpace(cfg.LogDir)
	if dir == "" {
		dir = "logs"
	}
	if errMkdir := os.MkdirAll(dir, 0755); errMkdir != nil {
		return nil, fmt.Errorf("logging: create log dir: %w", errMkdir)
	}
	writer := &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFileName),
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     14,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, writer))
	return writer, nil
}

// GinMiddleware logs each request through logrus.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry.Warn(c.Errors.String())
			return
		}
		entry.Debug("request served")
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
