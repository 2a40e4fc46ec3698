package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.viam.com/test"
)

type cameraArgs struct {
	X   float64
	Y   float64
	fov float64
}

func newBufferLogger(name string, level Level) (Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := &impl{name, NewAtomicLevelAt(level), true, []Appender{NewWriterAppender(buf)}}
	return logger, buf
}

func TestConsoleFormat(t *testing.T) {
	logger, buf := newBufferLogger("viewer", DEBUG)
	logger.Infof("entered %s", "live")

	line := strings.TrimSuffix(buf.String(), "\n")
	parts := strings.Split(line, "\t")
	test.That(t, parts, test.ShouldHaveLength, 5)
	test.That(t, len(parts[0]), test.ShouldEqual, len("2024-01-23T09:26:57.843Z"))
	test.That(t, parts[1], test.ShouldEqual, "INFO")
	test.That(t, parts[2], test.ShouldEqual, "viewer")
	test.That(t, parts[3], test.ShouldStartWith, "logging/impl_test.go:")
	test.That(t, parts[4], test.ShouldEqual, "entered live")
}

func TestStructuredFields(t *testing.T) {
	logger, buf := newBufferLogger("", DEBUG)
	logger.Debugw("pose", "args", cameraArgs{X: 1, Y: 2, fov: 60}, "dangling")

	line := strings.TrimSuffix(buf.String(), "\n")
	parts := strings.Split(line, "\t")
	fields := make(map[string]any)
	test.That(t, json.Unmarshal([]byte(parts[len(parts)-1]), &fields), test.ShouldBeNil)
	// Unexported struct fields are not serialized.
	test.That(t, fields["args"], test.ShouldResemble, map[string]any{"X": 1.0, "Y": 2.0})
	test.That(t, fields["dangling"], test.ShouldEqual, "unpaired log key")
}

func TestLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger("monitor", WARN)
	logger.Debug("hidden")
	logger.Info("hidden")
	test.That(t, buf.Len(), test.ShouldEqual, 0)

	logger.Warn("shown")
	test.That(t, buf.String(), test.ShouldContainSubstring, "shown")

	logger.SetLevel(ERROR)
	buf.Reset()
	logger.Warn("hidden")
	test.That(t, buf.Len(), test.ShouldEqual, 0)
	test.That(t, logger.GetLevel(), test.ShouldEqual, ERROR)
}

func TestSublogger(t *testing.T) {
	logger, buf := newBufferLogger("viewer", INFO)
	sub := logger.Sublogger("monitor")
	sub.Info("tick")
	test.That(t, buf.String(), test.ShouldContainSubstring, "viewer.monitor")

	// Levels are copied, not shared.
	sub.SetLevel(ERROR)
	test.That(t, logger.GetLevel(), test.ShouldEqual, INFO)

	blank := NewBlankLogger("").Sublogger("renderer")
	test.That(t, blank.(*impl).name, test.ShouldEqual, "renderer")
}

func TestObservedTestLogger(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	logger.Warnw("memory over threshold", "usage", 10)
	test.That(t, observed.FilterMessage("memory over threshold").Len(), test.ShouldEqual, 1)
	entry := observed.All()[0]
	test.That(t, entry.ContextMap()["usage"], test.ShouldEqual, int64(10))
}

func TestLevelStrings(t *testing.T) {
	for _, level := range []Level{DEBUG, INFO, WARN, ERROR} {
		parsed, err := LevelFromString(strings.ToUpper(level.String()))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, parsed, test.ShouldEqual, level)
	}
	_, err := LevelFromString("verbose")
	test.That(t, err, test.ShouldNotBeNil)

	var level Level
	test.That(t, json.Unmarshal([]byte(`"warning"`), &level), test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, WARN)
}
