package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newsflow/article-analyzer/internal/analyzer"
	"github.com/newsflow/article-analyzer/internal/config"
	"github.com/newsflow/article-analyzer/internal/extractor"
	"github.com/newsflow/article-analyzer/internal/fetcher"
	"github.com/newsflow/article-analyzer/internal/handler"
	"github.com/newsflow/article-analyzer/internal/llm"
	"github.com/newsflow/article-analyzer/internal/logger"
	"github.com/newsflow/article-analyzer/internal/queue"
	"github.com/newsflow/article-analyzer/internal/throttle"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// 队列模式下同时处理的任务数
const queueConcurrency = 10

func main() {
	// 加载配置
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Log.WithError(err).Fatal("load config")
	}

	if err := logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		logger.Log.WithError(err).Fatal("init logger")
	}
	log := logger.Log

	f, err := fetcher.New(cfg)
	if err != nil {
		log.WithError(err).Fatal("create fetcher")
	}
	defer f.Close()

	// 未配置 API Key 时服务照常启动，分析请求返回 500
	var completer analyzer.Completer
	if cfg.LLM.APIKey != "" {
		completer = llm.New(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model)
	} else {
		log.Warn("DEEPSEEK_API_KEY is not set, /api/analyze will fail until it is configured")
	}

	an := analyzer.New(f, extractor.New(), completer, analyzer.TruncationPolicy{
		MaxChars:  cfg.Truncate.MaxChars,
		HalfChars: cfg.Truncate.HalfChars,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	th := throttle.New(cfg.Throttle.Interval)
	g.Go(func() error {
		th.Run(gctx, cfg.Throttle.SweepInterval, func(removed int) {
			if removed > 0 {
				log.WithField("removed", removed).Debug("throttle sweep")
			}
		})
		return nil
	})

	h := handler.New(cfg, an, th)
	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.AnalyzeTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.WithFields(logrus.Fields{
		"port":           cfg.HTTPPort,
		"max_concurrent": cfg.MaxConcurrent,
		"fetch_strategy": f.Strategy(),
		"model":          cfg.LLM.Model,
		"throttle":       cfg.Throttle.Interval.String(),
	}).Info("article analyzer starting")

	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// 优雅关闭
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.AnalyzeTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	// Redis 队列消费者（可选）
	if cfg.RedisURL != "" {
		g.Go(func() error {
			startQueueConsumer(gctx, cfg, an)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("server error")
	}
	log.Info("server stopped")
}

// startQueueConsumer 启动队列消费者，ctx 取消后返回
func startQueueConsumer(ctx context.Context, cfg *config.Config, an *analyzer.Analyzer) {
	q, err := queue.NewRedisQueue(ctx, cfg.RedisURL, "article-analyzer-1")
	if err != nil {
		logger.Log.WithError(err).Error("connect to redis, queue consumer disabled")
		return
	}
	defer q.Close()

	logger.Log.WithField("queue", queue.DefaultTaskQueue).Info("redis queue consumer started")
	q.StartConsumer(ctx, queue.AnalyzeHandler(an, cfg.AnalyzeTimeout), queueConcurrency)
}
