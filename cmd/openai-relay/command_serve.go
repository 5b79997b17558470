package main

import (
	"cmp"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/picatz/openai-relay/internal/logger"
	"github.com/picatz/openai-relay/internal/server"
	"github.com/spf13/cobra"
)

func init() {
	serveCmd.Flags().String("addr", "", "listen address (defaults to RELAY_ADDR)")

	serveCmd.Annotations = providerCommand

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the relay HTTP API until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := cmd.Flags().GetString("addr")
		if err != nil {
			return err
		}

		if lvl, _ := logger.ParseLevel(cfg.LogLevel); lvl > slog.LevelDebug {
			gin.SetMode(gin.ReleaseMode)
		}

		srv := server.New(svc, server.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			MaxUploadBytes: cfg.MaxUploadBytes,
			Logger:         slogger,
		})

		return srv.Run(cmd.Context(), cmp.Or(addr, cfg.Addr))
	},
}
