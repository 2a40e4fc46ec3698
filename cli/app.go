// Package cli contains the splatview command line.
package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

const (
	generalFlagConfig = "config"
	generalFlagDebug  = "debug"

	viewFlagURL                = "url"
	viewFlagID                 = "id"
	viewFlagPreview            = "preview"
	viewFlagOrientation        = "orientation"
	viewFlagFrame              = "frame"
	viewFlagWatch              = "watch"
	viewFlagForceFallbackAfter = "force-fallback-after"
	viewFlagDuration           = "duration"

	projectFlagX         = "x"
	projectFlagY         = "y"
	projectFlagZ         = "z"
	projectFlagIntensity = "intensity"
)

func newApp() *cli.App {
	return &cli.App{
		Name:            "splatview",
		Usage:           "view splat scenes with parallax and a flat fallback",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    generalFlagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    generalFlagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "view",
				Usage:     "load a scene and keep a viewer session running",
				UsageText: "splatview view (--url <scene.ply> | --id <scene id>) [other options]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  viewFlagURL,
						Usage: "path or url of the scene geometry",
					},
					&cli.StringFlag{
						Name:  viewFlagID,
						Usage: "scene id to resolve through the configured descriptor_url",
					},
					&cli.StringFlag{
						Name:  viewFlagPreview,
						Usage: "path or url of the preview image used for the placeholder and fallback",
					},
					&cli.StringFlag{
						Name: viewFlagOrientation,
						Usage: "stream of JSON orientation samples driving the perspective: " +
							"'-' for stdin or a tcp host:port to dial",
					},
					&cli.PathFlag{
						Name:  viewFlagFrame,
						Usage: "write the flat surfaces to this PNG when the session ends",
					},
					&cli.BoolFlag{
						Name:  viewFlagWatch,
						Usage: "apply perspective intensity and control speeds when the config file changes",
					},
					&cli.DurationFlag{
						Name:  viewFlagForceFallbackAfter,
						Usage: "switch to the flat fallback this long after the scene is live",
					},
					&cli.DurationFlag{
						Name:  viewFlagDuration,
						Usage: "end the session after this long; by default it runs until interrupted",
					},
				},
				Action: ViewAction,
			},
			{
				Name:  "project",
				Usage: "print the camera pose and flat transform for a perspective offset",
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name:  projectFlagX,
						Usage: "horizontal offset",
					},
					&cli.Float64Flag{
						Name:  projectFlagY,
						Usage: "vertical offset",
					},
					&cli.Float64Flag{
						Name:  projectFlagZ,
						Usage: "depth offset, only used for the camera pose",
					},
					&cli.Float64Flag{
						Name:  projectFlagIntensity,
						Usage: "perspective intensity; defaults to the configured one",
					},
				},
				Action: ProjectAction,
			},
			{
				Name:   "probe",
				Usage:  "print the memory usage sample the resource monitor would see",
				Action: ProbeAction,
			},
		},
	}
}

// NewApp returns the app with its output bound to out and errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app := newApp()
	app.Writer = out
	app.ErrWriter = errOut
	return app
}

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

var warningPrefix = color.New(color.FgYellow, color.Bold).SprintFunc()

// warningf prints a message prefixed with a yellow "Warning: ".
func warningf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, warningPrefix("Warning:")+" "+format+"\n", a...)
}
