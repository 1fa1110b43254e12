package main

import (
	"os"
	"strings"

	"github.com/danmuck/ledctl/internal/config"
	"github.com/danmuck/ledctl/internal/logging"
	"github.com/danmuck/ledctl/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var (
		path   string
		sink   string
		status string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the display server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := service.DefaultServiceConfig()
			if path != "" {
				loaded, err := config.LoadServiceConfig(path)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if cmd.Flags().Changed("sink") {
				cfg.Display.Sink = strings.ToLower(strings.TrimSpace(sink))
			}
			if cmd.Flags().Changed("status") {
				cfg.StatusAddr = strings.TrimSpace(status)
			}
			configureLogging(cfg)

			svc, err := service.New(cfg)
			if err != nil {
				return err
			}
			if path != "" {
				svc.WatchConfigFile(path, config.LoadServiceConfig)
			}
			log.Info().Str("instance", svc.InstanceID()).Str("config", path).Msg("starting ledctl")
			return svc.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "", "Path to a TOML config file")
	cmd.Flags().StringVar(&sink, "sink", service.SinkTerminal, "Render sink: terminal, matrix, or none")
	cmd.Flags().StringVar(&status, "status", "", "Status server address; empty disables it")
	return cmd
}

func configureLogging(cfg service.ServiceConfig) {
	lc := logging.DefaultConfig(logging.ProfileRuntime)
	if lvl, ok := logging.ParseLevel(cfg.LogLevel); ok {
		lc.Level = lvl
	}
	lc.File = cfg.LogFile
	// The terminal preview redraws stdout in place.
	if strings.EqualFold(cfg.Display.Sink, service.SinkTerminal) {
		lc.Out = os.Stderr
	}
	logging.Apply(lc)
}
