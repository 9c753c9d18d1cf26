package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"FMQuery/internal/client"
	"FMQuery/internal/config"
	"FMQuery/internal/db"
	"FMQuery/internal/handler"
	"FMQuery/internal/logger"
	"FMQuery/internal/query"
	"FMQuery/internal/router"
	"FMQuery/internal/store"
)

func main() {
	debugFlag := flag.Bool("d", false, "enable debug logging")
	serveFlag := flag.Bool("serve", false, "run the HTTP proxy")
	queryFlag := flag.String("query", "", "run the find described in a YAML file and print the records")
	saveFlag := flag.Bool("save", false, "save found records to Postgres")
	flag.Parse()

	if !*serveFlag && *queryFlag == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.LoadConfig()
	if err := logger.Init(cfg.LogDir); err != nil {
		fmt.Fprintf(os.Stderr, "log init failed: %v\n", err)
		os.Exit(1)
	}
	logger.SetDebug(*debugFlag)

	ctx := context.Background()

	// Redis keeps session tokens across restarts; optional
	var opts []client.Option
	if cfg.RedisAddr != "" {
		rdb, err := db.InitRedis(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Error("redis_init_failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		defer rdb.Close()
		opts = append(opts, client.WithTokenStore(client.NewRedisTokenStore(rdb)))
		logger.Info("redis_connected", nil)
	}

	fm, err := client.New(cfg.DataAPI, opts...)
	if err != nil {
		logger.Error("client_init_failed", map[string]any{"error": err.Error()})
		fmt.Fprintf(os.Stderr, "data api: %v\n", err)
		os.Exit(1)
	}

	// PostgreSQL snapshot store; required by -save, optional for -serve
	var snapshots *store.Store
	if cfg.PostgresDSN != "" {
		if err := db.Migrate(cfg.PostgresDSN); err != nil {
			logger.Error("migrate_failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		pool, err := db.InitPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Error("postgres_init_failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		defer pool.Close()
		snapshots = store.New(pool)
		logger.Info("postgres_connected", nil)
	} else if *saveFlag {
		fmt.Fprintln(os.Stderr, "-save needs POSTGRES_DSN")
		os.Exit(2)
	}

	if *queryFlag != "" {
		err := runQuery(ctx, fm, snapshots, *queryFlag, *saveFlag)
		// a memory-held session dies with the process, so close it
		if cfg.RedisAddr == "" {
			if lerr := fm.Logout(ctx); lerr != nil {
				logger.Warn("logout_failed", map[string]any{"error": lerr.Error()})
			}
		}
		if err != nil {
			logger.Error("query_failed", map[string]any{"file": *queryFlag, "error": err.Error()})
			fmt.Fprintf(os.Stderr, "query: %v\n", err)
			os.Exit(1)
		}
		if !*serveFlag {
			return
		}
	}

	h := &handler.Handler{Client: fm}
	if snapshots != nil {
		h.Store = snapshots
	}
	mux := http.NewServeMux()
	router.InitRoutes(mux, cfg, h)

	logger.Info("server_start", map[string]any{"port": cfg.Port})
	log.Printf("Starting server on port %s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, mux); err != nil {
		logger.Error("server_error", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func runQuery(ctx context.Context, fm *client.Client, snapshots *store.Store, path string, save bool) error {
	req, err := query.LoadFindRequestFile(path)
	if err != nil {
		return err
	}

	resp, err := client.FindRaw(ctx, fm, req)
	if err != nil {
		return err
	}
	logger.Info("query_done", map[string]any{
		"file":     path,
		"layout":   req.Layout,
		"returned": len(resp.Data),
	})

	if save && len(resp.Data) > 0 {
		if err := snapshots.SaveRecords(ctx, req.Layout, resp.Data); err != nil {
			return fmt.Errorf("save records: %w", err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp.Data)
}
