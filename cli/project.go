package cli

import (
	"github.com/urfave/cli/v2"

	"go.viam.com/splatview/perspective"
)

// ProjectAction prints both projections of an offset against the configured camera.
func ProjectAction(c *cli.Context) error {
	_, cfg, err := loggerAndConfig(c)
	if err != nil {
		return err
	}
	intensity := cfg.Intensity()
	if c.IsSet(projectFlagIntensity) {
		intensity = c.Float64(projectFlagIntensity)
	}
	offset := perspective.Offset{
		X: c.Float64(projectFlagX),
		Y: c.Float64(projectFlagY),
		Z: c.Float64(projectFlagZ),
	}

	base := cfg.Pose()
	printf(c.App.Writer, "offset:    %s intensity=%g", offset, intensity)
	printf(c.App.Writer, "base:      %s", base)
	printf(c.App.Writer, "camera:    %s", perspective.Project3D(offset, intensity, base))
	printf(c.App.Writer, "transform: %s", perspective.Project2D(offset, intensity).CSS())
	return nil
}
