// @title         Formdata API
// @version       0.1.0
// @description   Multipart upload endpoints backed by pluggable decoders and storage

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"formdata/internal/modkit/repokit"
	"formdata/internal/platform/config"
	"formdata/internal/platform/logger"
	phttp "formdata/internal/platform/net/http"
	"formdata/internal/platform/net/http/formkit"
	"formdata/internal/platform/store"

	"formdata/internal/services/api"
	"formdata/internal/services/uploads/repo"
)

func main() {
	// service-scoped config for HTTP etc (CORE_API_*)
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")
	formCfg := root.Prefix("FORMDATA_")

	pgCfg := root.Prefix("SERVICE_PGSQL_")      // pgCfg lives under SERVICE_PGSQL_*
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_") // chCfg lives under SERVICE_CLICKHOUSE_*
	// bring up logging early
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// both backends are optional; uploads still parse without them
	st, err := store.Open(
		ctx,
		store.Config{
			PG: store.PGConfig{
				Enabled:     pgCfg.MayBool("ENABLED", false),
				URL:         pgCfg.MayString("DBURL", ""),
				MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
				SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
				LogSQL:      pgCfg.MayBool("LOG_SQL", false),
			},
			CH: store.CHConfig{
				Enabled: chCfg.MayBool("ENABLED", false),
				URL:     chCfg.MayString("DBURL", ""),
				Role:    "api",
			},
		},
		store.WithLogger(*logger.Get()),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	repokit.MustGuard(ctx, st, apiCfg.MayDuration("GUARD_TIMEOUT", 5*time.Second))

	if apiCfg.MayBool("MIGRATE", true) {
		migrate(ctx, st)
	}

	// multipart engine + storage (reads FORMDATA_*)
	opts, err := formkit.FromConfig(ctx, formCfg, st)
	if err != nil {
		l.Panic().Err(err).Msg("formkit options invalid")
	}
	kit, err := formkit.New(opts)
	if err != nil {
		l.Panic().Err(err).Msg("formkit.New failed")
	}
	if err := kit.Prepare(ctx); err != nil {
		l.Panic().Err(err).Msg("formkit prepare failed")
	}
	defer func() {
		if err := kit.Cleanup(context.Background()); err != nil {
			l.Error().Err(err).Msg("formkit cleanup failed")
		}
	}()

	// http server (reads CORE_API_PORT and the CORE_API_ timeouts)
	srv := phttp.NewServer(apiCfg)

	// mount our API
	api.Mount(
		srv.Router(),
		api.Options{
			Config:         apiCfg,
			Store:          st,
			Forms:          kit,
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", false),
		},
	)

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			l.Error().Err(err).Msg("http shutdown")
		}
	}()

	// run
	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}

// migrate creates the manifest tables and the events table on enabled backends
func migrate(ctx context.Context, st *store.Store) {
	l := logger.Named("migrate")
	if st.PG != nil {
		if err := st.PG.Tx(ctx, func(q store.RowQuerier) error {
			return repo.Migrate(ctx, q)
		}); err != nil {
			l.Panic().Err(err).Msg("postgres migrate failed")
		}
	}
	if e, ok := st.CH.(store.Execer); ok && st.CH != nil {
		if err := e.Exec(ctx, repo.EventsSchema); err != nil {
			l.Panic().Err(err).Msg("clickhouse migrate failed")
		}
	}
	l.Info().Bool("pg", st.PG != nil).Bool("ch", st.CH != nil).Msg("schema ready")
}
