package cli

import (
	units "github.com/docker/go-units"
	"github.com/urfave/cli/v2"

	"go.viam.com/splatview/resourcemonitor"
)

// ProbeAction prints this process's memory usage as the resource monitor samples it, alongside
// the configured threshold.
func ProbeAction(c *cli.Context) error {
	_, cfg, err := loggerAndConfig(c)
	if err != nil {
		return err
	}
	monitorCfg, enabled := cfg.Monitor()

	probe := resourcemonitor.DefaultProbe()
	if probe == nil {
		printf(c.App.Writer, "usage: unavailable")
	} else if usage, ok := probe.SampleUsageBytes(); ok {
		printf(c.App.Writer, "usage: %s", units.BytesSize(float64(usage)))
	} else {
		printf(c.App.Writer, "usage: unavailable")
	}
	printf(c.App.Writer, "threshold: %s every %s", units.BytesSize(float64(monitorCfg.ThresholdBytes)), monitorCfg.Interval)
	if !enabled {
		warningf(c.App.ErrWriter, "memory monitor is disabled in the config")
	}
	return nil
}
