package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/arabot777/idea2product-guard/internal/guard"
	"github.com/arabot777/idea2product-guard/internal/rulestore"
	"github.com/arabot777/idea2product-guard/internal/server"
)

// Starts an in-process guardd, mainly for local development.
func cmdRun() *cobra.Command {
	var addr string
	var cacheDir string
	var cacheTTL time.Duration

	c := &cobra.Command{
		Use:   "run",
		Short: "Start a local guard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, closeSrc, err := openSource()
			if err != nil {
				return err
			}
			defer closeSrc()

			opts := []rulestore.Option{}
			if cacheDir != "" {
				fc, err := rulestore.NewFileCache(cacheDir)
				if err != nil {
					return err
				}
				opts = append(opts, rulestore.WithCache(fc, cacheTTL))
			}
			store := rulestore.New(src, opts...)

			h := server.BuildRouter(server.Deps{
				Store:    store,
				Sessions: guard.HeaderSessionProvider{},
			}, server.Options{DevNoStore: true})

			slog.Info("guardd listening", "addr", addr)
			srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}
	c.Flags().StringVar(&addr, "addr", ":8090", "listen address")
	c.Flags().StringVar(&cacheDir, "cache-dir", "", "snapshot cache directory (off when empty)")
	c.Flags().DurationVar(&cacheTTL, "cache-ttl", 5*time.Minute, "snapshot cache TTL")
	return c
}
