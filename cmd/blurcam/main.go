// Package main runs the redacting virtual camera.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"blurcam/internal/app"
	"blurcam/internal/config"
	"blurcam/internal/logger"
	"blurcam/internal/service/ai"
)

const (
	flagAddr        = "addr"
	flagNoPreview   = "no-preview"
	flagNoAutostart = "no-autostart"
	flagDebug       = "debug"
	flagReset       = "reset"
	flagAll         = "all"
)

func main() {
	var cfg *config.Config

	cliApp := &cli.App{
		Name:  "blurcam",
		Usage: "redact objects from a camera feed and publish it as a virtual camera",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			cfg = config.Load()
			if c.Bool(flagDebug) {
				cfg.Debug = true
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			return runAction(c, cfg)
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "start the pipeline, control API and preview window",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagAddr,
						Usage: "control API listen address",
					},
					&cli.BoolFlag{
						Name:  flagNoPreview,
						Usage: "do not open the preview window",
					},
					&cli.BoolFlag{
						Name:  flagNoAutostart,
						Usage: "wait for a start command instead of starting immediately",
					},
				},
				Action: func(c *cli.Context) error {
					return runAction(c, cfg)
				},
			},
			{
				Name:  "classes",
				Usage: "list the classes the fixed model can redact",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  flagAll,
						Usage: "list every class instead of the common targets",
					},
				},
				Action: classesAction,
			},
			{
				Name:  "settings",
				Usage: "print the stored settings",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  flagReset,
						Usage: "restore the defaults before printing",
					},
				},
				Action: func(c *cli.Context) error {
					return settingsAction(c, cfg)
				},
			},
			{
				Name:            "labels",
				Usage:           "work with open-vocabulary labels",
				HideHelpCommand: true,
				Subcommands: []*cli.Command{
					{
						Name:  "warm",
						Usage: "encode the stored custom labels into the embedding cache",
						Action: func(c *cli.Context) error {
							return warmAction(c, cfg)
						},
					},
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatalf("blurcam: %v", err)
	}
}

func runAction(c *cli.Context, cfg *config.Config) error {
	if addr := c.String(flagAddr); addr != "" {
		cfg.ControlAddr = addr
	}
	if c.Bool(flagNoPreview) {
		cfg.PreviewWindow = false
	}
	if c.Bool(flagNoAutostart) {
		cfg.Autostart = false
	}

	application := app.NewApp(cfg, logger.NewLogger(cfg))
	defer application.Close()

	return application.Run(c.Context)
}

func classesAction(c *cli.Context) error {
	if c.Bool(flagAll) {
		for id := 0; id < ai.ClassCount(); id++ {
			fmt.Fprintf(c.App.Writer, "%3d  %s\n", id, ai.ClassName(id))
		}
		return nil
	}
	for _, class := range ai.CommonTargets {
		fmt.Fprintf(c.App.Writer, "%3d  %s\n", class.ID, class.Name)
	}
	return nil
}

func settingsAction(c *cli.Context, cfg *config.Config) error {
	application := app.NewApp(cfg, logger.NewLogger(cfg))
	defer application.Close()

	current := application.Settings().Get()
	if c.Bool(flagReset) {
		current = application.Settings().Reset()
	}
	out, err := json.MarshalIndent(current, "", "    ")
	if err != nil {
		return errors.Wrap(err, "encode settings")
	}
	fmt.Fprintln(c.App.Writer, string(out))
	return nil
}

func warmAction(c *cli.Context, cfg *config.Config) error {
	application := app.NewApp(cfg, logger.NewLogger(cfg))
	defer application.Close()

	encoder, err := application.Loader().TextEncoder()
	if err != nil {
		return err
	}
	defer encoder.Close()

	labels := application.Settings().Get().CustomLabels
	if _, err := encoder.Embed(labels); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "cached %d labels for %s\n", len(labels), encoder.Name())
	return nil
}
