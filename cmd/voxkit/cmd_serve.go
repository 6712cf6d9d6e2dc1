package main

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kbukum/voxkit/api"
	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/server"
)

func newServeCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfigFromFlags(cmd)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				if err := applyAddr(&cfg.Server, addr); err != nil {
					return err
				}
			}
			rt, err := newRuntime(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			log := rt.app.Logger

			srv := server.New(cfg.Server, log)
			srv.ApplyMiddleware()
			srv.RegisterDefaultEndpoints(cfg.Name, rt.app.Health, rt.gatherer)
			api.NewHandler(rt.orch, log).Register(srv.APIGroup(api.Prefix))
			if err := rt.app.RegisterComponent(server.NewComponent(srv)); err != nil {
				return err
			}

			for _, r := range srv.Routes() {
				log.Debug("route", logger.Fields("method", r.Method, "path", r.Path, "handler", r.Handler))
			}
			return rt.app.Run(cmd.Context())
		},
	}
	c.Flags().String("addr", "", "listen address host:port (overrides server.host and server.port)")
	return c
}

func applyAddr(cfg *server.Config, addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid --addr %q: %w", addr, err)
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid --addr port %q: %w", port, err)
	}
	cfg.Host = host
	cfg.Port = p
	return nil
}
