package cli

import (
	"context"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"go.viam.com/splatview/assets"
	"go.viam.com/splatview/config"
	"go.viam.com/splatview/renderer/headless"
	"go.viam.com/splatview/resourcemonitor"
	"go.viam.com/splatview/sensor/orientation"
	"go.viam.com/splatview/surface/raster"
	"go.viam.com/splatview/viewer"
)

// ViewAction loads a scene into a headless session and keeps it running until interrupted or
// until --duration elapses.
func ViewAction(c *cli.Context) (err error) {
	logger, cfg, err := loggerAndConfig(c)
	if err != nil {
		return err
	}
	ref := viewer.AssetRef{
		URL:        c.String(viewFlagURL),
		ID:         c.String(viewFlagID),
		PreviewURL: c.String(viewFlagPreview),
	}
	if ref.URL == "" && ref.ID == "" {
		return errors.Errorf("one of --%s or --%s is required", viewFlagURL, viewFlagID)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := c.Duration(viewFlagDuration); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	opener := assets.NewDefaultOpener()
	width, height := cfg.ContainerSize()
	surfaces, err := raster.NewService(width, height, opener, logger.Sublogger("surface"))
	if err != nil {
		return err
	}
	opts := viewer.OptionsFromConfig(cfg)
	opts.Renderer = headless.NewService(opener, logger.Sublogger("renderer"))
	opts.Surfaces = surfaces
	opts.Probe = resourcemonitor.DefaultProbe()

	stream, closeStream, err := openOrientationStream(ctx, c.String(viewFlagOrientation), c.App.Reader)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, closeStream())
	}()
	var source *orientation.StreamSource
	if stream != nil {
		source = orientation.NewStreamSource(stream, logger.Sublogger("orientation"))
		opts.Orientation = source
	}

	session, err := viewer.NewSession(opts, logger)
	if err != nil {
		return err
	}
	defer func() {
		if frame := c.Path(viewFlagFrame); frame != "" {
			err = multierr.Combine(err, surfaces.WritePNG(frame))
		}
		printSnapshot(c.App.Writer, session.Snapshot())
		err = multierr.Combine(err, session.Dispose(context.Background()))
	}()
	session.AddListener(viewer.ListenerFunc(func(ev viewer.Event) {
		printEvent(c.App.Writer, ev)
	}))

	if c.Bool(viewFlagWatch) && c.String(generalFlagConfig) != "" {
		watcher, watchErr := config.Watch(ctx, c.String(generalFlagConfig), 0, func(updated *config.Config) {
			applyLiveConfig(session, updated)
		}, logger.Sublogger("config"))
		if watchErr != nil {
			return watchErr
		}
		defer func() {
			err = multierr.Combine(err, watcher.Close())
		}()
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := session.Load(groupCtx, ref); err != nil {
			return err
		}
		printSnapshot(c.App.Writer, session.Snapshot())

		after := c.Duration(viewFlagForceFallbackAfter)
		if after <= 0 {
			return nil
		}
		select {
		case <-groupCtx.Done():
		case <-time.After(after):
			session.ForceFallback()
		}
		return nil
	})
	if source != nil {
		if !session.EnableDeviceMotion(ctx) {
			warningf(c.App.ErrWriter, "orientation stream unavailable; continuing without device motion")
		} else {
			group.Go(func() error {
				select {
				case <-groupCtx.Done():
					return nil
				case <-source.Done():
				}
				if err := source.Err(); err != nil {
					return errors.Wrap(err, "orientation stream failed")
				}
				printf(c.App.Writer, "orientation stream ended")
				return nil
			})
		}
	}
	group.Go(func() error {
		<-groupCtx.Done()
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openOrientationStream opens "-" as stdin or dials a tcp address. It returns a nil reader when
// no stream was asked for.
func openOrientationStream(ctx context.Context, target string, stdin io.Reader) (io.Reader, func() error, error) {
	noop := func() error { return nil }
	switch target {
	case "":
		return nil, noop, nil
	case "-":
		if stdin == nil {
			stdin = os.Stdin
		}
		return stdin, noop, nil
	default:
		var dialer net.Dialer
		conn, err := dialer.DialContext(ctx, "tcp", target)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "cannot connect to orientation stream %q", target)
		}
		return conn, conn.Close, nil
	}
}

// applyLiveConfig applies the settings that can change without reloading the scene.
func applyLiveConfig(session *viewer.Session, cfg *config.Config) {
	session.SetPerspectiveIntensity(cfg.Intensity())
	speeds := cfg.Speeds()
	session.SetSpeed(speeds.Orbit, speeds.Pan, speeds.Zoom)
}

func printEvent(w io.Writer, ev viewer.Event) {
	switch ev.Kind {
	case viewer.EventModeChanged:
		printf(w, "mode: %s -> %s", ev.Previous, ev.Mode)
	case viewer.EventProgress:
		printf(w, "loading: %.0f%%", ev.Progress)
	case viewer.EventLive:
		printf(w, "live: %s", ev.Pose)
	case viewer.EventFallback:
		printf(w, "fallback: %s", ev.Reason)
	case viewer.EventDisposed:
		printf(w, "disposed")
	}
}

func printSnapshot(w io.Writer, snap viewer.Snapshot) {
	printf(w, "status: mode=%s offset=%s intensity=%g device_motion=%t base=%s",
		snap.Mode, snap.Offset, snap.PerspectiveIntensity, snap.DeviceMotion, snap.BasePose)
}
