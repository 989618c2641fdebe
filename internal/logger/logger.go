// Package logger provides leveled logging for the migration engine.
package logger

import (
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// Fields attaches structured context to a log entry.
type Fields = logrus.Fields

// Init configures the log level and output format.
func Init(level string) error {
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)

	return nil
}

// Debug logs a debug message.
func Debug(msg string, fields ...Fields) {
	if len(fields) > 0 {
		log.WithFields(fields[0]).Debug(msg)
	} else {
		log.Debug(msg)
	}
}

// Info logs an info message.
func Info(msg string, fields ...Fields) {
	if len(fields) > 0 {
		log.WithFields(fields[0]).Info(msg)
	} else {
		log.Info(msg)
	}
}

// Warn logs a warning message.
func Warn(msg string, fields ...Fields) {
	if len(fields) > 0 {
		log.WithFields(fields[0]).Warn(msg)
	} else {
		log.Warn(msg)
	}
}

// Error logs an error message with the underlying error attached.
func Error(msg string, err error, fields ...Fields) {
	if len(fields) > 0 {
		log.WithFields(fields[0]).WithError(err).Error(msg)
	} else {
		log.WithError(err).Error(msg)
	}
}
