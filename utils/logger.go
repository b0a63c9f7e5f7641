package utils

import (
	"os"

	"github.com/sirupsen/logrus"
)

var (
	InfoLogger  *logrus.Logger
	ErrorLogger *logrus.Logger
)

// InitLogger sets up the global loggers. Info goes to stdout, errors to
// stderr. Set LOG_FORMAT=json for structured output.
func InitLogger() {
	InfoLogger = logrus.New()
	ErrorLogger = logrus.New()

	InfoLogger.SetOutput(os.Stdout)
	ErrorLogger.SetOutput(os.Stderr)

	if os.Getenv("LOG_FORMAT") == "json" {
		InfoLogger.SetFormatter(&logrus.JSONFormatter{})
		ErrorLogger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		InfoLogger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		ErrorLogger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	InfoLogger.SetLevel(logrus.InfoLevel)
	ErrorLogger.SetLevel(logrus.ErrorLevel)
}
