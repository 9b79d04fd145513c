package log

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

const runTimestampLayout = "20060102_150405"

// RunLog represents the log destination of a single workflow run. Each run
// writes into its own timestamped directory below the Log folder, which later
// also receives the DB export, the staged test data and the result workbook.
type RunLog struct {
	Timestamp string
	Dir       string
	FilePath  string

	file *os.File
}

// StartRun creates Log/<timestamp>/Log.txt and mirrors all log output into it.
func StartRun(logDir string) (*RunLog, error) {
	timestamp := time.Now().Format(runTimestampLayout)
	runDir := filepath.Join(logDir, timestamp)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create run directory '%s'", runDir)
	}

	logPath := filepath.Join(runDir, "Log.txt")
	file, err := os.Create(logPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create log file '%s'", logPath)
	}

	SetOutput(io.MultiWriter(os.Stdout, file))

	return &RunLog{
		Timestamp: timestamp,
		Dir:       runDir,
		FilePath:  logPath,
		file:      file,
	}, nil
}

// Close flushes the run log file and restores console-only output.
func (r *RunLog) Close() error {
	SetOutput(os.Stdout)
	if r.file == nil {
		return nil
	}
	if err := r.file.Sync(); err != nil {
		return err
	}
	return r.file.Close()
}
