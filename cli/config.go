package cli

import (
	"github.com/urfave/cli/v2"

	"go.viam.com/splatview/config"
	"go.viam.com/splatview/logging"
)

// loggerAndConfig builds the command logger and reads the config named by --config, if any.
func loggerAndConfig(c *cli.Context) (logging.Logger, *config.Config, error) {
	logger := logging.NewLogger("splatview")
	if c.Bool(generalFlagDebug) {
		logger.SetLevel(logging.DEBUG)
	}

	path := c.String(generalFlagConfig)
	if path == "" {
		return logger, &config.Config{}, nil
	}
	cfg, err := config.Read(path, logger)
	if err != nil {
		return nil, nil, err
	}
	if cfg.LogLevel != nil && !c.Bool(generalFlagDebug) {
		logger.SetLevel(*cfg.LogLevel)
	}
	return logger, cfg, nil
}
