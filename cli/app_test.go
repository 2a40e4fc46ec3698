package cli

import (
	"bytes"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"go.viam.com/test"
)

const scenePLY = `ply
format ascii 1.0
element vertex 3
property float x
property float y
property float z
end_header
0 0 0
1 1 1
2 2 2
`

// syncBuffer is written to by session listeners on worker goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut syncBuffer
	err := NewApp(&out, &errOut).Run(append([]string{"splatview"}, args...))
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)
	return path
}

func TestProjectCommand(t *testing.T) {
	out, _, err := runApp(t, "project", "--x", "0.1", "--y", "-0.2", "--intensity", "1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "offset:")
	test.That(t, out, test.ShouldContainSubstring, "intensity=1")
	test.That(t, out, test.ShouldContainSubstring, "camera:")
	test.That(t, out, test.ShouldContainSubstring, "transform:")
}

func TestProjectCommandUsesConfig(t *testing.T) {
	cfgPath := writeFile(t, t.TempDir(), "splatview.json", `{"perspective_intensity": 0.25}`)
	out, _, err := runApp(t, "--config", cfgPath, "project", "--x", "0.1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "intensity=0.25")

	_, _, err = runApp(t, "--config", filepath.Join(t.TempDir(), "missing.json"), "project")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestProbeCommand(t *testing.T) {
	cfgPath := writeFile(t, t.TempDir(), "splatview.json",
		`{"memory_monitor": {"threshold": "512MiB", "interval": "1s", "disabled": true}}`)
	out, errOut, err := runApp(t, "--config", cfgPath, "probe")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "usage:")
	test.That(t, out, test.ShouldContainSubstring, "threshold: 512MiB every 1s")
	test.That(t, errOut, test.ShouldContainSubstring, "memory monitor is disabled")
}

func TestViewRequiresScene(t *testing.T) {
	_, _, err := runApp(t, "view")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "--url")
}

func TestViewCommand(t *testing.T) {
	dir := t.TempDir()
	scene := writeFile(t, dir, "scene.ply", scenePLY)
	preview := filepath.Join(dir, "preview.png")
	test.That(t, imaging.Save(imaging.New(16, 9, color.NRGBA{R: 200, A: 255}), preview), test.ShouldBeNil)
	cfgPath := writeFile(t, dir, "splatview.json",
		`{"memory_monitor": {"disabled": true}, "reveal_duration": "0s", "container": {"width": 32, "height": 18}}`)
	frame := filepath.Join(dir, "frame.png")

	out, _, err := runApp(t,
		"--config", cfgPath,
		"view",
		"--url", scene,
		"--preview", preview,
		"--frame", frame,
		"--force-fallback-after", "50ms",
		"--duration", "1s",
	)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "mode: idle -> loading")
	test.That(t, out, test.ShouldContainSubstring, "mode: loading -> live")
	test.That(t, out, test.ShouldContainSubstring, "fallback: requested")
	test.That(t, out, test.ShouldContainSubstring, "disposed")

	img, err := imaging.Open(frame)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 32)
	test.That(t, img.Bounds().Dy(), test.ShouldEqual, 18)
}
