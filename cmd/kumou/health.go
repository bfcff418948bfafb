package main

import (
	"fmt"

	"github.com/example/kumou/internal/server"
	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that a kumou server is up and report its version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.ListenAddr
			}
			health, err := server.FetchHealth(addr)
			if err != nil {
				return fmt.Errorf("kumou server at %s: %w", addr, err)
			}
			if health.Version == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "ok")
			} else {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "ok (%s)\n", health.Version)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Server address (default: --server-listen-addr)")

	return cmd
}
