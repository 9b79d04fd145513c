package log

import (
	"io"

	"github.com/sirupsen/logrus"
)

var logger *logrus.Entry

// Entry returns the logger entry or creates one if none is present.
func Entry() *logrus.Entry {
	if logger == nil {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
		logger = logrus.WithField("tool", "icr-identification-tool")
	}
	return logger
}

// SetVerbose sets the log level with respect to the verbose flag.
func SetVerbose(verbose bool) {
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
}

// SetOutput redirects all log output, typically to a multi writer that
// mirrors the console into the run's Log.txt.
func SetOutput(w io.Writer) {
	logrus.SetOutput(w)
}

// Section logs a framed section title.
func Section(title string) {
	line := "------------------------------------------------------------"
	Entry().Info(line)
	Entry().Infof("[%s]", title)
	Entry().Info(line)
}

// Step logs a numbered workflow step banner.
func Step(num, total int, title string) {
	Entry().Infof("step %d/%d: %s", num, total, title)
	Entry().Info("------------------------------------------------------------")
}
