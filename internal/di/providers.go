package di

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	drepo "SignalPull/internal/domain/repository"
	domsvc "SignalPull/internal/domain/service"
	"SignalPull/internal/handler/api"
	"SignalPull/internal/handler/ws"
	mid "SignalPull/internal/middleware"
	internalrepo "SignalPull/internal/repository"
	"SignalPull/internal/service/blaze"
	svccache "SignalPull/internal/service/cache"
	"SignalPull/internal/service/ratelimit"
	"SignalPull/internal/services/detector"
	"SignalPull/internal/services/outcome"
	"SignalPull/internal/usecase"
	"SignalPull/pkg/cache"
	pkgch "SignalPull/pkg/clickhouse"
	"SignalPull/pkg/config"
	xhttp "SignalPull/pkg/http"
	pkgkafka "SignalPull/pkg/kafka"
	"SignalPull/pkg/logger"
	"SignalPull/pkg/metrics"
	"SignalPull/pkg/server"
)

const setupTimeout = 10 * time.Second

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideCache returns Redis behind an in-process L1 when Redis is enabled,
// otherwise a memory cache.
func ProvideCache(cfg *config.Config, l *logger.Logger) (cache.Service, func(), error) {
	if !cfg.Redis.Enabled {
		c := cache.NewMemoryCache()
		return c, func() { _ = c.Close() }, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("redis cache connected", logger.String("addr", cfg.Redis.Addr))
	c := cache.NewLayeredCache(rc)
	return c, func() { _ = c.Close() }, nil
}

// ProvideSessionStore seeds the configured static tokens as live sessions.
func ProvideSessionStore(cfg *config.Config, c cache.Service) (api.SessionStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()
	for _, tok := range cfg.Session.StaticTokens {
		if err := c.Set(ctx, api.SessionKeyPrefix+tok, "static", cfg.Session.TTL); err != nil {
			return nil, fmt.Errorf("seed session: %w", err)
		}
	}
	return c, nil
}

// ProvideRateLimiter creates the per-session limiter for operator actions.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Session.RateLimit, cfg.Session.RateBurst)
}

// ProvideFeed creates the HTTP result feed.
func ProvideFeed(cfg *config.Config) drepo.ResultFeed {
	return blaze.New(cfg.Feed.URL, cfg.Feed.FetchTimeout)
}

// ProvideHub creates the WebSocket snapshot hub.
func ProvideHub(cfg *config.Config, l *logger.Logger) *ws.Hub {
	return ws.NewHub(cfg.Server.StreamClients, l)
}

// ProvideSnapshotCache stores the latest snapshot per strategy in the shared cache.
func ProvideSnapshotCache(cfg *config.Config, c cache.Service) *internalrepo.SnapshotCache {
	return internalrepo.NewSnapshotCache(c, cfg.Redis.TTL)
}

// ProvideSnapshotStore exposes the snapshot cache to readers outside the engines.
func ProvideSnapshotStore(sc *internalrepo.SnapshotCache) drepo.SnapshotStore {
	return sc
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideSignalEventSink publishes transitions to Kafka, or nil when Kafka is disabled.
func ProvideSignalEventSink(cfg *config.Config, producer *pkgkafka.Producer) *internalrepo.SignalEventSink {
	if producer == nil {
		return nil
	}
	return internalrepo.NewSignalEventSink(internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.Topic))
}

// ProvideOutcomeStore opens the configured journal backend. It returns nil for "none".
func ProvideOutcomeStore(cfg *config.Config, l *logger.Logger) (drepo.OutcomeStore, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()

	var (
		store drepo.OutcomeStore
		err   error
	)
	switch cfg.Journal.Backend {
	case "clickhouse":
		var ch *pkgch.Client
		ch, err = pkgch.NewClient(ctx,
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}
		store, err = internalrepo.NewCHOutcomeStore(ctx, ch, cfg.ClickHouse.Database, l)
		if err != nil {
			_ = ch.Close()
			return nil, nil, fmt.Errorf("clickhouse journal: %w", err)
		}
	case "sqlite":
		if dir := filepath.Dir(cfg.Journal.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("sqlite journal dir: %w", err)
			}
		}
		store, err = internalrepo.NewSQLiteOutcomeStore(ctx, cfg.Journal.SQLitePath, l)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite journal: %w", err)
		}
	default:
		return nil, func() {}, nil
	}

	l.Info("outcome journal ready", logger.String("backend", cfg.Journal.Backend))
	return store, func() { _ = store.Close() }, nil
}

// ProvideJournal builds the outcome journal pipeline, or nil without a store.
func ProvideJournal(cfg *config.Config, store drepo.OutcomeStore, m drepo.Metrics, l *logger.Logger) *mid.JournalPipeline {
	if store == nil {
		return nil
	}
	return mid.NewJournalPipeline(store, svccache.NewTTLCache(), m, l,
		mid.WithBufferSize(cfg.Journal.BufferSize),
		mid.WithBatch(cfg.Journal.BatchSize, cfg.Journal.FlushInterval),
		mid.WithDedupeTTL(cfg.Journal.DedupeTTL),
	)
}

// ProvideSinks lists every snapshot consumer that is enabled.
func ProvideSinks(hub *ws.Hub, snaps *internalrepo.SnapshotCache, events *internalrepo.SignalEventSink, journal *mid.JournalPipeline) []drepo.SnapshotSink {
	sinks := []drepo.SnapshotSink{hub, snaps}
	if events != nil {
		sinks = append(sinks, events)
	}
	if journal != nil {
		sinks = append(sinks, journal)
	}
	return sinks
}

// ProvideEngines creates one engine per enabled strategy.
func ProvideEngines(cfg *config.Config, feed drepo.ResultFeed, sinks []drepo.SnapshotSink, m drepo.Metrics, l *logger.Logger) ([]*usecase.Engine, error) {
	type spec struct {
		detector   domsvc.Detector
		popularity int
	}
	var specs []spec
	if cfg.Strategies.Colors.Enabled {
		specs = append(specs, spec{detector: detector.NewColorSequence()})
	}
	if cfg.Strategies.White.Enabled {
		loc, err := cfg.WhiteLocation()
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec{
			detector:   detector.NewWhiteTiming(cfg.Strategies.White.Offset, loc),
			popularity: cfg.Strategies.White.Popularity,
		})
	}

	engines := make([]*usecase.Engine, 0, len(specs))
	for _, s := range specs {
		strategy := s.detector.Strategy()
		poller := usecase.NewResultPoller(strategy, feed, outcome.NewSynthesizer(newRand()),
			cfg.Feed.FetchTimeout, time.Now, l, m)
		lifecycle := usecase.NewSignalLifecycle(strategy, newRand(), time.Now, s.popularity)
		engines = append(engines, usecase.NewEngine(cfg.Feed.PollInterval, s.detector, poller, lifecycle, sinks, time.Now, l, m))
	}
	return engines, nil
}

// newRand returns an independently seeded generator. Callers serialize access.
func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// ProvideHTTPServer mounts the strategy API and the snapshot stream.
func ProvideHTTPServer(
	cfg *config.Config,
	l *logger.Logger,
	engines []*usecase.Engine,
	hub *ws.Hub,
	store drepo.OutcomeStore,
	sessions api.SessionStore,
	limiter *ratelimit.Limiter,
) *xhttp.Server {
	list := make([]api.StrategyEngine, 0, len(engines))
	for _, e := range engines {
		list = append(list, e)
	}
	opts := []api.HandlerOption{
		api.WithStream(hub.Serve),
		api.WithGate(api.SessionGate(sessions, cfg.Session.Header, l)),
		api.WithActionLimits(api.RateLimit(limiter)),
	}
	if store != nil {
		opts = append(opts, api.WithJournal(store))
	}
	handler := api.NewStrategiesEchoHandler(l, list, opts...)

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(l, []xhttp.Handler{handler},
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithAllowedHeaders(cfg.Session.Header),
	)
}

// ProvideApp assembles the runnable application.
func ProvideApp(
	l *logger.Logger,
	engines []*usecase.Engine,
	srv *xhttp.Server,
	journal *mid.JournalPipeline,
	hub *ws.Hub,
	limiter *ratelimit.Limiter,
) *server.App {
	l.Info("engines ready", logger.Strings("strategies", strategiesOf(engines)))
	return server.New(l, usecase.NewScheduler(engines, l), srv, journal, hub, limiter)
}

func strategiesOf(engines []*usecase.Engine) []string {
	out := make([]string, 0, len(engines))
	for _, e := range engines {
		out = append(out, string(e.Strategy()))
	}
	return out
}
