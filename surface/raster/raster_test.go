package raster

import (
	"context"
	"image"
	"image/color"
	"math"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"go.viam.com/test"

	"go.viam.com/splatview/logging"
	"go.viam.com/splatview/perspective"
	"go.viam.com/splatview/surface"
)

var red = color.NRGBA{255, 0, 0, 255}

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "preview.png")
	test.That(t, imaging.Save(imaging.New(8, 8, red), path), test.ShouldBeNil)
	return path
}

func newService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(20, 10, nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return svc
}

func TestNewServiceRejectsEmptyContainer(t *testing.T) {
	_, err := NewService(0, 10, nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestCreateRoles(t *testing.T) {
	svc := newService(t)
	location := writeImage(t)

	placeholder, err := svc.Create(context.Background(), location, surface.RolePlaceholder)
	test.That(t, err, test.ShouldBeNil)
	fallback, err := svc.Create(context.Background(), location, surface.RoleFallback)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, svc.Visible(), test.ShouldResemble, []surface.Role{surface.RolePlaceholder})
	fallback.SetVisible(true)
	test.That(t, svc.Visible(), test.ShouldResemble, []surface.Role{surface.RolePlaceholder, surface.RoleFallback})

	placeholder.SetOpacity(0)
	test.That(t, svc.Visible(), test.ShouldResemble, []surface.Role{surface.RoleFallback})

	test.That(t, placeholder.Remove(), test.ShouldBeNil)
	test.That(t, placeholder.Remove(), test.ShouldBeNil)
	test.That(t, svc.Surfaces(), test.ShouldHaveLength, 1)

	placeholder.SetVisible(true)
	test.That(t, svc.Visible(), test.ShouldResemble, []surface.Role{surface.RoleFallback})
}

func TestCreateErrors(t *testing.T) {
	svc := newService(t)
	_, err := svc.Create(context.Background(), filepath.Join(t.TempDir(), "missing.png"), surface.RoleFallback)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, svc.Surfaces(), test.ShouldBeEmpty)
}

func TestFrame(t *testing.T) {
	svc := newService(t)
	test.That(t, svc.Frame().NRGBAAt(0, 0), test.ShouldResemble, Background)

	surf, err := svc.Create(context.Background(), writeImage(t), surface.RolePlaceholder)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, svc.Frame().NRGBAAt(0, 0), test.ShouldResemble, red)
	test.That(t, svc.Frame().NRGBAAt(19, 9), test.ShouldResemble, red)

	// Shifted right, the left edge uncovers the background.
	transform := perspective.Identity()
	transform.TranslateX = 5
	surf.Apply(transform)
	frame := svc.Frame()
	test.That(t, frame.NRGBAAt(0, 5), test.ShouldResemble, Background)
	test.That(t, frame.NRGBAAt(10, 5), test.ShouldResemble, red)

	raster := surf.(*Surface)
	test.That(t, raster.Transform(), test.ShouldResemble, transform)

	surf.SetOpacity(2)
	test.That(t, raster.Opacity(), test.ShouldEqual, 1.0)
	surf.SetVisible(false)
	test.That(t, svc.Frame().NRGBAAt(10, 5), test.ShouldResemble, Background)

	path := filepath.Join(t.TempDir(), "frame.png")
	test.That(t, svc.WritePNG(path), test.ShouldBeNil)
	saved, err := imaging.Open(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, saved.Bounds(), test.ShouldResemble, image.Rect(0, 0, 20, 10))
}

func TestScaledLength(t *testing.T) {
	test.That(t, scaledLength(100, 1, 0), test.ShouldEqual, 100)
	test.That(t, scaledLength(100, 1.5, 0), test.ShouldEqual, 150)
	test.That(t, scaledLength(100, 1, 60), test.ShouldEqual, 50)
	test.That(t, scaledLength(100, 1, 90), test.ShouldEqual, 1)
	test.That(t, scaledLength(100, 1e6, 0), test.ShouldEqual, 400)
	test.That(t, scaledLength(100, math.Inf(1), 0), test.ShouldEqual, 400)
}

func TestFrameWithHugeScale(t *testing.T) {
	svc := newService(t)
	surf, err := svc.Create(context.Background(), writeImage(t), surface.RolePlaceholder)
	test.That(t, err, test.ShouldBeNil)

	transform := perspective.Identity()
	transform.Scale = 1e4
	surf.Apply(transform)
	frame := svc.Frame()
	test.That(t, frame.Bounds(), test.ShouldResemble, image.Rect(0, 0, 20, 10))
	test.That(t, frame.NRGBAAt(10, 5), test.ShouldResemble, red)
}
