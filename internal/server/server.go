package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/scribechat/scribechat/config"
	"github.com/scribechat/scribechat/internal/fragment"
	"github.com/scribechat/scribechat/internal/reassembly"
	"github.com/scribechat/scribechat/internal/retrieval"
	"github.com/scribechat/scribechat/internal/runtime"
	"github.com/scribechat/scribechat/internal/store"
	"github.com/scribechat/scribechat/internal/transcripts"
	"github.com/scribechat/scribechat/provider"
)

func Run(cfg *appconfig.Config, addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie", "Authorization"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	_ = Migrate("file://migrations", postgresDSN(cfg), "up", 0)

	ctx := context.Background()
	st, err := store.NewWithDSN(ctx, postgresDSN(cfg))
	if err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port),
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed (%s:%s): %w", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port, err)
	}

	llm, err := provider.NewProvider(provider.OpenAI, cfg.LLM)
	if err != nil {
		return err
	}

	// corpus index, rebuilt from stored transcripts at startup; without an
	// embedding backend the index runs keyword-only
	var embedder retrieval.Embedder
	if cfg.LLM.EmbeddingModel != "" && cfg.LLM.APIKey != "" {
		embedder = &embedAdapter{llm: llm}
	}
	index, err := retrieval.NewIndex(embedder)
	if err != nil {
		return err
	}
	if err := buildIndex(ctx, st, index, cfg.Retrieval); err != nil {
		return fmt.Errorf("build passage index: %w", err)
	}

	secret, err := runtime.LoadJWTSecret(cfg)
	if err != nil {
		return err
	}

	library := transcripts.NewLibrary(st)
	builder := retrieval.NewContextBuilder(index, library, cfg.Retrieval.TopK)
	frags := fragment.NewRedisStore(rdb)
	manager := reassembly.NewManager(frags, runtime.NewJWTVerifier(secret), cfg.Chat.FragmentTTL)
	pipeline := NewPipeline(builder, llm, st, cfg.Chat.QueueDepth, cfg.Chat.JoinTimeout)

	NewChatHandler(manager, pipeline).Register(e)

	api := e.Group("/api")
	auth := &AuthHandler{Store: st, Secret: secret}
	auth.Register(api.Group("/auth"))

	protected := api.Group("")
	protected.Use(runtime.EchoAuthMiddleware(secret))
	(&MediaHandler{Store: st}).Register(protected)

	retention := &Retention{
		Store:         st,
		Rdb:           rdb,
		CronSpec:      cfg.Chat.RetentionCron,
		RetentionDays: cfg.Chat.RetentionDays,
		Stop:          make(chan struct{}),
	}
	retention.Start()

	if addr == "" {
		addr = cfg.Server.Address
		if addr != "" && addr[0] != ':' {
			addr = ":" + addr
		}
		if addr == "" {
			addr = ":10001"
		}
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

func postgresDSN(cfg *appconfig.Config) string {
	pg := cfg.Storage.Postgres
	if pg.URL != "" {
		return pg.URL
	}
	port := pg.Port
	if port == "" {
		port = "5432"
	}
	ssl := pg.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", pg.User, pg.Password, pg.Host, port, pg.DBName, ssl)
}

func buildIndex(ctx context.Context, st *store.Store, index *retrieval.Index, rcfg appconfig.RetrievalConfig) error {
	rows, err := st.AllTranscripts(ctx)
	if err != nil {
		return err
	}
	for _, row := range rows {
		for i, chunk := range transcripts.Chunk(row.Text, rcfg.ChunkSize, rcfg.ChunkStride) {
			id := fmt.Sprintf("%s/%s/%d", row.OwnerID, row.MediaName, i)
			if err := index.Add(ctx, row.OwnerID, row.MediaName, id, chunk); err != nil {
				return err
			}
		}
	}
	return nil
}

// embedAdapter narrows the provider's batch embedding call to the single
// text shape the index wants.
type embedAdapter struct {
	llm provider.Embedder
}

func (a *embedAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := a.llm.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return vecs[0], nil
}
