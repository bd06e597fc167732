package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pthm/hxview"
	"github.com/pthm/hxview/example"
	"github.com/pthm/hxview/lib/config"
	"github.com/pthm/hxview/lib/session"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the example directory application",
		Long: `Serve starts an HTTP server that gives every browser session its own
application shell. Routes come from the config file, or the example's
built-in table when the config has none.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.cfgFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			log := cfg.Logger(cmd.ErrOrStderr())

			handler, cleanup, err := newHandler(cfg, log)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg.Server.Addr, handler, log)
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides server.addr)")
	return cmd
}

// newRegistry registers the example views under the configured prefix and
// checks that every route names a registered view.
func newRegistry(cfg config.Config) (*hxview.Registry, []hxview.Route, error) {
	reg := hxview.NewRegistry()
	reg.Prefix = cfg.ViewsPath
	example.Init(example.NewStore(), reg)

	routes := cfg.Routes
	if len(routes) == 0 {
		routes = example.Routes()
	}
	for _, r := range routes {
		if !reg.Has(r.View) {
			return nil, nil, fmt.Errorf("route %q: %w: %q", r.URL, hxview.ErrViewNotFound, r.View)
		}
	}
	return reg, routes, nil
}

func newHandler(cfg config.Config, log logrus.FieldLogger) (http.Handler, func(), error) {
	reg, routes, err := newRegistry(cfg)
	if err != nil {
		return nil, nil, err
	}

	sessions := session.New(example.NewSession(example.SessionOptions{
		Registry:  reg,
		Routes:    routes,
		ViewsPath: cfg.ViewsPath,
		Root:      cfg.Root,
		Logger:    log,
	}), session.Options{
		TTL:     cfg.Session.TTL,
		Cleanup: cfg.Session.Cleanup,
		Cookie:  cfg.Session.Cookie,
		Logger:  log,
	})
	return sessions.Handler(), sessions.Close, nil
}

// serve runs the server until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, addr string, handler http.Handler, log logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
