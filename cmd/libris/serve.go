package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aretw0/libris"
	"github.com/aretw0/libris/internal/cli"
	libhttp "github.com/aretw0/libris/pkg/adapters/http"
	"github.com/aretw0/libris/pkg/observability"
	"github.com/aretw0/libris/pkg/runner"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var errNoSecret = errors.New("serve: http.jwt_secret is not set; configure it or pass --insecure")

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP ingress",
		Long: `Starts the engine behind a JSON API. Each POST to
/v1/chats/{chatID}/events delivers one event and answers with the replies.
Metrics are exposed on a separate listener when http.metrics_addr is set.

The chat ID in the path is the identity the bot acts for, so serve refuses
to start without http.jwt_secret (LIBRIS_JWT_SECRET). Tokens must carry
a "chat_id" claim. Pass --insecure to accept unauthenticated events, for
local testing only.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.HTTP.Addr = addr
			}
			insecure, _ := cmd.Flags().GetBool("insecure")
			if cfg.HTTP.JWTSecret == "" && !insecure {
				return errNoSecret
			}
			if cfg.HTTP.MaxInput > 0 {
				runner.DefaultMaxInputSize = cfg.HTTP.MaxInput
			}

			ctx := cmd.Context()
			app, err := cli.Build(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			srv := &http.Server{
				Addr: cfg.HTTP.Addr,
				Handler: libhttp.NewHandler(app.Engine,
					libhttp.WithJWTSecret(cfg.HTTP.JWTSecret),
					libhttp.WithLogger(app.Logger),
					libhttp.WithVersion(libris.Version),
				),
			}

			if insecure && cfg.HTTP.JWTSecret == "" {
				app.Logger.Warn("serving events without authentication")
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				app.Logger.Info("serving events", "addr", srv.Addr, "auth", cfg.HTTP.JWTSecret != "")
				return libhttp.Serve(ctx, srv)
			})
			if cfg.HTTP.MetricsAddr != "" {
				metrics := &http.Server{
					Addr:    cfg.HTTP.MetricsAddr,
					Handler: observability.Handler(app.Registry),
				}
				g.Go(func() error {
					app.Logger.Info("serving metrics", "addr", metrics.Addr)
					return libhttp.Serve(ctx, metrics)
				})
			}
			if app.Worker != nil {
				g.Go(func() error { return app.Worker.Run(ctx) })
			}

			if err := g.Wait(); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			app.Logger.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringP("addr", "a", "", "Listen address (overrides http.addr)")
	cmd.Flags().Bool("insecure", false, "Serve without http.jwt_secret; any caller may act as any chat")
	return cmd
}
