package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/uneu/ogimage/go/font"
	"github.com/uneu/ogimage/go/imageio"
	"github.com/uneu/ogimage/go/logging"
	"github.com/uneu/ogimage/go/og"
	"github.com/uneu/ogimage/go/store"
)

type rootOptions struct {
	background string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	options := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "ogctl",
		Short:         "Render social preview images offline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.NewLogger(&logging.Opts{Level: options.logLevel, Format: logging.FormatRaw})
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&options.background, "background", "./backgrounds/wave-haikei.png", "Background PNG every image is drawn on")
	cmd.PersistentFlags().StringVar(&options.logLevel, "log-level", logging.LevelInfo, "Log level: debug, info, warn, error")

	cmd.AddCommand(newRenderCommand(options))
	cmd.AddCommand(newWarmCommand(options))
	return cmd
}

func (o *rootOptions) newRenderer(cache store.Store) (*og.Renderer, error) {
	typesetter, err := font.Load()
	if err != nil {
		return nil, fmt.Errorf("loading font: %w", err)
	}
	return og.NewRenderer(cache, imageio.NewFileLoader(o.background), typesetter, imageio.PNGEncoder{}).WithLogger(slog.Default()), nil
}
