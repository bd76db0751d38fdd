package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxLogSizeMB  = 10
	maxLogBackups = 2
)

// Setup routes the standard logger to stdout and a size-rotated file.
// The returned closer flushes the file writer on shutdown.
func Setup(logPath string) (io.Closer, error) {
	if dir := filepath.Dir(logPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	rotator := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
	}

	log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	return rotator, nil
}
