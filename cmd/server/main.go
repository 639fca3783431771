package main

import (
	"context"
	"log"
	"net/http"

	flag "github.com/spf13/pflag"

	"whattodo/internal/api"
	"whattodo/internal/auth"
	"whattodo/internal/config"
	"whattodo/internal/db"
	"whattodo/pkg/push"
	"whattodo/pkg/recur"
	"whattodo/pkg/todo"
)

func main() {
	configPath := flag.StringP("config", "c", config.DefaultConfigFileName, "path to config file")
	listen := flag.String("listen", "", "listen address (overrides config)")
	flag.Parse()

	cfg, err := config.LoadOrCreate(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	ctx := context.Background()

	var (
		todos    todo.Store
		cats     todo.CategoryStore
		subs     push.Store
		resolver auth.Resolver
	)

	switch cfg.Store {
	case config.StorePostgres:
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		defer pool.Close()

		store := todo.NewPgStore(pool)
		if err := store.EnsureTables(ctx); err != nil {
			log.Fatalf("ensure todo tables: %v", err)
		}
		todos, cats = store, store

		pushStore := push.NewPgStore(pool)
		if err := pushStore.EnsureTable(ctx); err != nil {
			log.Fatalf("ensure push table: %v", err)
		}
		subs = pushStore

		if cfg.Auth.Mode == config.AuthToken {
			tr := auth.NewTokenResolver(pool)
			if err := tr.EnsureTable(ctx); err != nil {
				log.Fatalf("ensure sessions table: %v", err)
			}
			resolver = tr
		}

	case config.StoreSQLite:
		store, err := todo.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("open sqlite: %v", err)
		}
		defer store.Close()
		if err := store.EnsureTables(ctx); err != nil {
			log.Fatalf("ensure todo tables: %v", err)
		}
		todos, cats = store, store
		// Push subscriptions live in Postgres only; the sqlite backend
		// runs without reminders.

	default:
		log.Fatalf("unknown store backend %q", cfg.Store)
	}

	if resolver == nil {
		resolver = auth.Static{ID: cfg.Auth.StaticOwner}
	}

	engine := recur.NewEngine(todos)
	server := api.New(todos, cats, engine, subs, resolver)

	log.Printf("whattodo listening on %s (store=%s)", cfg.Listen, cfg.Store)
	if err := http.ListenAndServe(cfg.Listen, server); err != nil {
		log.Fatalf("listen: %v", err)
	}
}
