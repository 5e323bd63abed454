package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/arabot777/idea2product-guard/internal/guard"
	"github.com/arabot777/idea2product-guard/internal/rulesource"
	"github.com/arabot777/idea2product-guard/internal/rulestore"
	"github.com/arabot777/idea2product-guard/internal/server"
)

func main() {
	_ = godotenv.Load()

	addr := flag.String("addr", envOr("GUARD_ADDR", ":8090"), "listen address")
	flag.Parse()

	store, closeSource := mustStore()
	defer closeSource()

	h := server.BuildRouter(server.Deps{
		Store:    store,
		Sessions: guard.HeaderSessionProvider{},
	}, server.Options{EnableCORS: true})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var g errgroup.Group
	g.Go(func() error { return run(ctx, *addr, h) })

	if err := g.Wait(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

func run(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() {
		slog.Info("guardd listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx2)
	case err := <-errc:
		return err
	}
}

// mustStore builds the rule store from the environment: a SQLite rule
// database (GUARD_DB) or a YAML rule file (GUARD_RULES_FILE), with an
// optional file snapshot cache (GUARD_CACHE_DIR, GUARD_CACHE_TTL).
func mustStore() (*rulestore.Store, func()) {
	var src rulestore.RuleSource
	closeSource := func() {}

	switch {
	case os.Getenv("GUARD_DB") != "":
		db, err := rulesource.OpenSQLite(os.Getenv("GUARD_DB"), 0)
		if err != nil {
			log.Fatal(err)
		}
		src = db
		closeSource = func() { _ = db.Close() }
	case os.Getenv("GUARD_RULES_FILE") != "":
		src = rulesource.NewFileSource(os.Getenv("GUARD_RULES_FILE"))
	default:
		log.Fatal("set GUARD_DB or GUARD_RULES_FILE")
	}

	opts := []rulestore.Option{}
	if dir := os.Getenv("GUARD_CACHE_DIR"); dir != "" {
		fc, err := rulestore.NewFileCache(dir)
		if err != nil {
			log.Fatal(err)
		}
		ttl := 5 * time.Minute
		if v := os.Getenv("GUARD_CACHE_TTL"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				log.Fatalf("GUARD_CACHE_TTL: %v", err)
			}
			ttl = d
		}
		opts = append(opts, rulestore.WithCache(fc, ttl))
	}
	return rulestore.New(src, opts...), closeSource
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
