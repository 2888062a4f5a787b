// cmd/assistant-server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"restaurant-assistant/internal/audit"
	"restaurant-assistant/internal/common/camunda"
	"restaurant-assistant/internal/common/config"
	"restaurant-assistant/internal/common/database"
	apperrors "restaurant-assistant/internal/common/errors"
	"restaurant-assistant/internal/common/logger"
	"restaurant-assistant/internal/common/observability"
	"restaurant-assistant/internal/conversation"
	"restaurant-assistant/internal/llm"
	"restaurant-assistant/internal/metering"
	"restaurant-assistant/internal/server"
	"restaurant-assistant/internal/store"
	buildsnapshot "restaurant-assistant/internal/workers/assistant/build-snapshot"
	classifyintent "restaurant-assistant/internal/workers/assistant/classify-intent"
	executeoperation "restaurant-assistant/internal/workers/assistant/execute-operation"
	generateoperation "restaurant-assistant/internal/workers/assistant/generate-operation"
	naturallanguagequery "restaurant-assistant/internal/workers/assistant/natural-language-query"
	resolvevalues "restaurant-assistant/internal/workers/assistant/resolve-values"
	synthesizeresponse "restaurant-assistant/internal/workers/assistant/synthesize-response"
)

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			if i > 0 {
				log.Info("operation succeeded after retry",
					zap.String("operation", operationName),
					zap.Int("attempt", i+1))
			}
			return nil
		}

		var stdErr *apperrors.StandardError
		if errors.As(err, &stdErr) && !apperrors.IsRetryableErrorCode(stdErr.Code) {
			log.Error("operation failed, not retrying",
				zap.String("operation", operationName),
				zap.String("errorCode", string(stdErr.Code)),
				zap.Error(err))
			return fmt.Errorf("%s failed: %w", operationName, err)
		}

		if i < maxRetries-1 {
			log.Warn("operation failed, retrying",
				zap.String("operation", operationName),
				zap.Int("attempt", i+1),
				zap.Duration("nextRetryIn", delay),
				zap.Error(err))
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// backends holds the clients opened at startup so shutdown can close them.
type backends struct {
	postgres *database.PostgresClient
	redis    *database.RedisClient
	es       *database.ElasticsearchClient
	checks   map[string]server.HealthCheck
}

func (b *backends) close(log *zap.Logger) {
	if b.postgres != nil {
		if err := b.postgres.Close(); err != nil {
			log.Error("error closing postgres", zap.Error(err))
		}
	}
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			log.Error("error closing redis", zap.Error(err))
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting assistant server",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.String("store", cfg.Database.Driver),
		zap.String("llmProvider", cfg.APIs.GenAI.Provider),
	)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	obs := observability.New(cfg.App.Name, zapLog)
	defer obs.Shutdown()

	b := &backends{checks: make(map[string]server.HealthCheck)}
	defer b.close(zapLog)

	tenantStore, err := openStore(cfg, b, zapLog)
	if err != nil {
		zapLog.Fatal("failed to open store", zap.Error(err))
	}

	meter := openMeter(cfg, b, zapLog)
	sink := openAudit(cfg, b, zapLog)

	completer, err := openCompleter(cfg)
	if err != nil {
		zapLog.Fatal("failed to create completion client", zap.Error(err))
	}

	stages, err := buildPipeline(cfg, tenantStore, completer, meter, sink, obs, log)
	if err != nil {
		zapLog.Fatal("failed to build pipeline", zap.Error(err))
	}

	var zeebe *camunda.Client
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var e error
			zeebe, e = camunda.NewClient(cfg.Camunda.BrokerAddress)
			return e
		}, 5, 2*time.Second, zapLog, "Zeebe client connection")
		if err != nil {
			zapLog.Fatal("failed to connect to Zeebe", zap.Error(err))
		}
		b.checks["zeebe"] = zeebe.HealthCheck
		startWorkers(zeebe.GetClient(), cfg, stages, zapLog)
	} else {
		zapLog.Info("camunda disabled, job workers not started")
	}

	srv := server.New(&server.Config{
		Address:      cfg.HTTP.Address,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Millisecond,
		ServiceName:  cfg.App.Name,
		AdminToken:   cfg.HTTP.AdminToken,
	}, stages.orchestrator, b.checks, log)
	if blocklist, ok := meter.(*metering.RedisMeter); ok {
		srv.EnableBlocklist(blocklist)
	}

	go func() {
		if err := srv.Start(); err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("shutdown signal received, draining requests")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("error shutting down http server", zap.Error(err))
	}
	for _, w := range stages.workers {
		w.Stop(shutdownCtx)
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("error closing Zeebe client", zap.Error(err))
		}
	}

	zapLog.Info("assistant server stopped gracefully")
}

func openStore(cfg *config.Config, b *backends, log *zap.Logger) (store.Store, error) {
	if cfg.Database.Driver == "memory" {
		log.Warn("using in-memory store, data is lost on restart")
		return store.NewMemory(), nil
	}

	var pg *database.PostgresClient
	err := retryWithBackoff(func() error {
		var e error
		pg, e = database.NewPostgres(cfg.Database.Postgres)
		if e != nil {
			return apperrors.NewInternalError(e)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if e = pg.Ping(ctx); e != nil {
			pg.Close()
			return apperrors.NewStoreUnavailableError(e)
		}
		return nil
	}, 5, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, err
	}

	b.postgres = pg
	b.checks["postgres"] = pg.Ping
	log.Info("PostgreSQL connected", zap.String("host", cfg.Database.Postgres.Host))
	return store.NewPostgres(pg.DB), nil
}

// openMeter degrades to AllowAll when redis is unreachable.
func openMeter(cfg *config.Config, b *backends, log *zap.Logger) metering.Meter {
	if !cfg.Metering.Enabled {
		return metering.AllowAll{}
	}

	var rc *database.RedisClient
	err := retryWithBackoff(func() error {
		var e error
		rc, e = database.NewRedis(cfg.Database.Redis)
		if e != nil {
			return e
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return rc.Ping(ctx)
	}, 3, time.Second, log, "Redis connection")
	if err != nil {
		log.Warn("redis unavailable, usage metering disabled", zap.Error(err))
		if rc != nil {
			rc.Close()
		}
		return metering.AllowAll{}
	}

	b.redis = rc
	b.checks["redis"] = rc.Ping
	log.Info("usage metering enabled",
		zap.Int("dailyLimit", cfg.Metering.DailyLimit),
		zap.Int("monthlyLimit", cfg.Metering.MonthlyLimit))
	return metering.NewRedisMeter(rc.Client, cfg.Metering.DailyLimit, cfg.Metering.MonthlyLimit, time.Now)
}

func openAudit(cfg *config.Config, b *backends, log *zap.Logger) audit.Sink {
	esCfg := cfg.Database.Elasticsearch
	if !esCfg.Enabled {
		return audit.Discard{}
	}

	var es *database.ElasticsearchClient
	err := retryWithBackoff(func() error {
		var e error
		es, e = database.NewElasticsearch(esCfg)
		if e != nil {
			return e
		}
		return es.Ping()
	}, 3, time.Second, log, "Elasticsearch connection")
	if err != nil {
		log.Warn("elasticsearch unavailable, audit events are discarded", zap.Error(err))
		return audit.Discard{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := es.EnsureAuditIndex(ctx, esCfg.AuditIndex); err != nil {
		log.Warn("failed to ensure audit index", zap.Error(err))
	}

	b.es = es
	b.checks["elasticsearch"] = func(ctx context.Context) error { return es.Ping() }
	return audit.NewElasticsearch(es.Client, esCfg.AuditIndex)
}

func openCompleter(cfg *config.Config) (llm.Completer, error) {
	g := cfg.APIs.GenAI
	switch g.Provider {
	case "openai":
		return llm.NewOpenAI(g.BaseURL, g.APIKey, g.Model)
	default:
		if g.BaseURL == "" {
			return llm.Unavailable, nil
		}
		return llm.NewGenAI(g.BaseURL, g.APIKey, g.MaxRetries), nil
	}
}

type pipeline struct {
	classifier   *classifyintent.Handler
	generator    *generateoperation.Handler
	engine       *executeoperation.Handler
	synthesizer  *synthesizeresponse.Handler
	orchestrator *naturallanguagequery.Handler
	workers      []*camunda.CamundaWorker
}

func buildPipeline(
	cfg *config.Config,
	s store.Store,
	completer llm.Completer,
	meter metering.Meter,
	sink audit.Sink,
	obs *observability.Observability,
	log logger.Logger,
) (*pipeline, error) {
	a := cfg.Assistant

	snapshots := buildsnapshot.NewHandler(&buildsnapshot.Config{
		Timeout:    5 * time.Second,
		SampleSize: a.SnapshotSampleSize,
	}, s, log)

	classifier := classifyintent.NewHandler(&classifyintent.Config{
		Timeout:      a.Duration(a.ClassifyTimeout),
		MaxTokens:    a.ClassifyMaxTokens,
		Temperature:  0,
		HistoryTurns: classifyintent.LoadConfig().HistoryTurns,
	}, completer, log)

	generator, err := generateoperation.NewHandler(&generateoperation.Config{
		Timeout:     a.Duration(a.GenerateTimeout),
		MaxTokens:   a.GenerateMaxTokens,
		Temperature: a.Temperature,
	}, completer, snapshots, log)
	if err != nil {
		return nil, err
	}

	engine := executeoperation.NewHandler(&executeoperation.Config{
		Timeout:         executeoperation.LoadConfig().Timeout,
		DefaultCapacity: a.DefaultCapacity,
		Location:        a.Location(),
	}, s, sink, log)

	synthesizer := synthesizeresponse.NewHandler(&synthesizeresponse.Config{
		UseLLM:      a.UseLLMSynthesis,
		Timeout:     a.Duration(a.SynthesizeTimeout),
		MaxTokens:   a.SynthesizeMaxTokens,
		Temperature: 0.3,
		ListLimit:   synthesizeresponse.LoadConfig().ListLimit,
	}, completer, log)

	orchestrator, err := naturallanguagequery.NewHandler(naturallanguagequery.LoadConfig(), naturallanguagequery.Dependencies{
		Classifier:    classifier,
		Generator:     generator,
		Resolver:      resolvevalues.NewHandler(resolvevalues.LoadConfig(), s, log),
		Engine:        engine,
		Synthesizer:   synthesizer,
		Conversations: conversation.NewRepository(s, a.ContextMessageLimit, time.Now),
		Meter:         meter,
		Observability: obs,
	}, log)
	if err != nil {
		return nil, err
	}

	return &pipeline{
		classifier:   classifier,
		generator:    generator,
		engine:       engine,
		synthesizer:  synthesizer,
		orchestrator: orchestrator,
	}, nil
}

func startWorkers(client zbc.Client, cfg *config.Config, p *pipeline, log *zap.Logger) {
	handlers := map[string]camunda.JobHandler{
		naturallanguagequery.TaskType: p.orchestrator,
		classifyintent.TaskType:       p.classifier,
		generateoperation.TaskType:    p.generator,
		executeoperation.TaskType:     p.engine,
		synthesizeresponse.TaskType:   p.synthesizer,
	}

	for taskType, handler := range handlers {
		wcfg, ok := cfg.Workers[taskType]
		if !ok {
			wcfg = config.WorkerConfig{Enabled: taskType == naturallanguagequery.TaskType, MaxJobsActive: cfg.Camunda.MaxJobsActive}
		}
		if w := startWorker(client, taskType, wcfg, handler.Handle, log); w != nil {
			p.workers = append(p.workers, w)
		}
	}
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc func(worker.JobClient, entities.Job), log *zap.Logger) *camunda.CamundaWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return nil
	}

	w := camunda.NewWorker(client, taskType, wcfg.MaxJobsActive, time.Duration(wcfg.Timeout)*time.Millisecond, handlerFunc, log)
	w.Start()
	return w
}
