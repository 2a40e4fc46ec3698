package logging

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

type testAppender struct {
	tb testing.TB
}

// NewTestAppender returns an appender that logs through `tb.Log`, which ties every line to the
// running test even when tests run in parallel. Lines use the local timezone.
func NewTestAppender(tb testing.TB) Appender {
	return &testAppender{tb}
}

// Write outputs the log entry to the underlying test object `Log` method.
func (tapp *testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	tapp.tb.Helper()
	toPrint := []string{
		entry.Time.Format(DefaultTimeFormatStr),
		strings.ToUpper(entry.Level.String()),
		entry.LoggerName,
	}
	if entry.Caller.Defined {
		toPrint = append(toPrint, fmt.Sprintf("%s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line))
	}
	toPrint = append(toPrint, entry.Message)

	encoded, err := ZapcoreFieldsToJSON(fields)
	if encoded != "" {
		toPrint = append(toPrint, encoded)
	}
	tapp.tb.Log(strings.Join(toPrint, "\t"))
	return err
}

// Sync is a no-op.
func (tapp *testAppender) Sync() error {
	return nil
}
