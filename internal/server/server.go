// Package server wires the HTTP ingress, queue and processing pipeline.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/layaask/answerbot/config"
	"github.com/layaask/answerbot/internal/answer"
	"github.com/layaask/answerbot/internal/classify"
	"github.com/layaask/answerbot/internal/extract"
	"github.com/layaask/answerbot/internal/knowledge"
	"github.com/layaask/answerbot/internal/planner"
	"github.com/layaask/answerbot/internal/processor"
	"github.com/layaask/answerbot/internal/publish"
	"github.com/layaask/answerbot/internal/queue"
	"github.com/layaask/answerbot/internal/store"
	"github.com/layaask/answerbot/provider"
)

// Run builds every component from config and serves until the listener
// fails or ctx is canceled.
func Run(ctx context.Context, cfg *config.Config) error {
	e := newEcho()

	st, err := store.New(ctx, cfg.Storage.Postgres)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}

	llm, err := provider.NewProvider(cfg.LLM)
	if err != nil {
		return fmt.Errorf("build llm provider: %w", err)
	}

	var cache knowledge.Cache
	if cfg.Storage.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr(),
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		cache = knowledge.NewRedisCache(rdb, cfg.Knowledge.CacheTTL, nil)
	}

	kclient := knowledge.NewClient(cfg.Knowledge, nil)
	retriever := knowledge.NewRetriever(kclient, cache, nil)

	extractor := extract.NewExtractor(extract.Config{})
	pl := planner.New(extractor)
	classifier := classify.New(classify.DefaultRules())
	synthesizer := answer.NewSynthesizer(llm, nil)
	publisher := publish.NewPublisher(st, cfg.Pipeline.BotUserID, cfg.Pipeline.MinAnswerLength, nil)

	proc := processor.New(st, classifier, pl, retriever, synthesizer, publisher, processor.Options{
		BotUserID:     cfg.Pipeline.BotUserID,
		LookupRetries: cfg.Pipeline.LookupRetries,
		LookupDelay:   cfg.Pipeline.LookupDelay,
	}, nil)

	q := queue.New(ctx, proc.Process, queue.Options{
		InterItemDelay: cfg.Pipeline.InterItemDelay,
		ItemTimeout:    cfg.Pipeline.ItemTimeout,
		SeenLimit:      cfg.Pipeline.SeenLimit,
	}, nil)

	NewHandlers(q, proc.Process, nil).Register(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	go func() {
		<-ctx.Done()
		_ = e.Shutdown(context.Background())
		q.Wait()
		kclient.Close()
	}()

	if err := e.Start(cfg.Server.Address); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// newEcho builds the echo instance with recovery, CORS, request ids and a
// unified JSON error handler.
func newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

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
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	return e
}
