package main

import (
	"os"
	"path/filepath"

	"github.com/fansqz/js-debugger/config"
	"github.com/sirupsen/logrus"
)

var logFile *os.File

// SetupLogger 日志输出到配置的文件中，文件无法打开时输出到标准错误
func SetupLogger(c config.LoggingConfig) error {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetOutput(os.Stderr)
	if c.Path == "" {
		return err
	}

	if mkdirErr := os.MkdirAll(filepath.Dir(c.Path), os.ModePerm); mkdirErr != nil {
		return mkdirErr
	}
	logFile, err = os.OpenFile(c.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		logFile = nil
		return err
	}
	logrus.SetOutput(logFile)
	return nil
}

func CloseLogger() {
	if logFile != nil {
		logrus.SetOutput(os.Stderr)
		_ = logFile.Close()
		logFile = nil
	}
}
