package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/agstream"
	"pkt.systems/agstream/httpapi"
	"pkt.systems/agstream/internal/appconfig"
	"pkt.systems/pslog"
)

func newMockServerCmd(root *rootOptions) *cobra.Command {
	var addr string
	var basePath string
	var storePath string
	var delay time.Duration
	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run a reference chat server that echoes prompts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(root.configPath)
			if err != nil {
				return err
			}
			httpCfg := toHTTPConfig(cfg.Mock)
			flags := cmd.Flags()
			if flags.Changed("addr") {
				httpCfg.Addr = addr
			}
			if flags.Changed("base-path") {
				httpCfg.BasePath = basePath
			}
			if flags.Changed("store") {
				httpCfg.StorePath = storePath
			}
			if flags.Changed("delay") {
				httpCfg.Delay = delay
			}

			server, err := agstream.NewServer(agstream.ServerConfig{HTTP: httpCfg}, agstream.ServerDeps{})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			logger.Info("mock server listening", "addr", httpCfg.Addr, "base_url", httpapi.BaseURL(httpCfg.Addr, httpCfg.BasePath))
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "path prefix for the chat endpoints")
	cmd.Flags().StringVar(&storePath, "store", "", "history file; empty keeps histories in memory")
	cmd.Flags().DurationVar(&delay, "delay", 0, "pause between streamed frames")
	return cmd
}

func toHTTPConfig(cfg appconfig.MockConfig) httpapi.Config {
	return httpapi.Config{
		Addr:      cfg.Addr,
		BasePath:  cfg.BasePath,
		Delay:     cfg.Delay(),
		StorePath: cfg.StorePath,
	}
}
