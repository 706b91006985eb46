package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bronxpinstripes/engagerr-analytics/config"
	"github.com/bronxpinstripes/engagerr-analytics/internal/repositories/audienceoverlap"
	"github.com/bronxpinstripes/engagerr-analytics/internal/repositories/contentnode"
	"github.com/bronxpinstripes/engagerr-analytics/internal/repositories/dailymetric"
	"github.com/bronxpinstripes/engagerr-analytics/internal/repositories/relationshipedge"
	"github.com/bronxpinstripes/engagerr-analytics/internal/repositories/standardizationprofile"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/contentgraph"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/database"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/events"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/graphdb"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/ingest"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/insights"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/kafka"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/middleware"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/redis"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/rollup"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/routes/content"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/routes/family"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/routes/health"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/routes/insight"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/routes/overlap"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/routes/profile"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/routes/relationship"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/routes/suggestion"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/standardize"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/startup"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/suggest"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/tracing"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/tracing/exporters"
)

var version = "dev"

// application holds every long-lived resource. Startup dependencies fill it
// in DAG order; buildContainer wires the service layer once the resources
// are up.
type application struct {
	cfg    config.Config
	logger ectologger.Logger

	sqlDB    *sqlx.DB
	db       database.DB
	redis    *redis.Client
	graph    *graphdb.Client
	producer *kafka.Producer
	consumer *kafka.Consumer

	echo    *echo.Echo
	checker *health.Checker

	tracerProvider *sdktrace.TracerProvider
}

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	zapLogger, err := newZapLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zapLogger.Sync() }()
	logger := zapadapter.NewZapEctoLogger(zapLogger, nil)

	// lib/pq wants $n placeholders
	sqlbuilder.DefaultFlavor = sqlbuilder.PostgreSQL

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := &application{cfg: cfg, logger: logger}

	boot := startup.NewStartup[any](logger, cfg.StartupMaxAttempts)
	boot.AddDependency(&tracingDependency{app})
	boot.AddDependency(&databaseDependency{app})
	boot.AddDependency(&migrationDependency{app})
	boot.AddDependency(&redisDependency{app})
	boot.AddDependency(&graphDependency{app})
	boot.AddDependency(&producerDependency{app})
	boot.AddDependency(&containerDependency{app})
	boot.AddDependency(&consumerDependency{app})
	boot.AddDependency(&serverDependency{app})

	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("startup failed")
		os.Exit(1)
	}

	logger.WithField("port", cfg.Port).Infof("%s is running", cfg.AppName)

	<-ctx.Done()
	logger.Info("shutdown signal received")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := boot.Stop(stopCtx); err != nil {
		logger.WithError(err).Error("shutdown did not complete cleanly")
		os.Exit(1)
	}
}

func newZapLogger(cfg config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zapCfg.Build()
}

// buildContainer constructs the service layer on top of the started
// resources and registers everything the route handlers resolve.
func (a *application) buildContainer() error {
	cfg := a.cfg

	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return fmt.Errorf("failed to create dependency container: %w", err)
	}

	nodeRepo := contentnode.NewRepository(a.db, a.logger)
	edgeRepo := relationshipedge.NewRepository(a.db, a.logger)
	metricRepo := dailymetric.NewRepository(a.db, a.logger)
	profileRepo := standardizationprofile.NewRepository(a.db, a.logger)
	overlapRepo := audienceoverlap.NewRepository(a.db, a.logger)

	locker := redis.NewLocker(a.redis, cfg.AppName)
	versions := redis.NewVersionTracker(a.redis)
	emitter := events.NewEmitter(a.producer, a.logger)

	var graphProjector *graphdb.Projector
	var projector contentgraph.Projector
	var nodeProjector ingest.NodeProjector
	if a.graph != nil {
		graphProjector = graphdb.NewProjector(a.graph, a.logger)
		projector = graphProjector
		nodeProjector = graphProjector
	}

	builder := contentgraph.NewBuilder(contentgraph.Config{
		MaxFamilyDepth: cfg.MaxFamilyDepth,
		LockTTL:        cfg.LockTTL,
	}, nodeRepo, edgeRepo, locker, versions, emitter, projector, a.logger)

	profileCache := standardize.NewProfileCache(profileRepo, cfg.ProfileCacheTTL)
	standardizer := standardize.NewEngine(profileCache, a.logger)

	rollupCache := rollup.NewRedisCache(a.redis, cfg.RollupCacheTTL, a.logger)
	rollupEngine := rollup.NewEngine(builder, metricRepo, overlapRepo, standardizer, versions, rollupCache, emitter, a.logger)

	suggestEngine := suggest.NewEngine(suggest.Config{
		DefaultThreshold: cfg.SuggestionThreshold,
		MaxPoolSize:      cfg.SuggestionPoolSize,
	}, suggest.NewHeuristicClassifier(), builder, a.logger)

	insightGenerator := insights.NewGenerator(insights.Config{
		GrowthThreshold:    cfg.GrowthThreshold,
		ConcentrationShare: cfg.ConcentrationShare,
		MaxInsights:        cfg.InsightLimit,
	}, a.logger)
	insightCache := insights.NewRedisCache(a.redis, cfg.InsightCacheTTL, a.logger)

	if cfg.KafkaConsumerEnabled {
		processor := ingest.NewProcessor(a.logger, nodeRepo, nodeRepo, metricRepo, versions, emitter, nodeProjector)
		a.consumer = kafka.NewConsumer(cfg, a.logger, processor.HandleMessage)
	}

	registrations := []error{
		ectoinject.RegisterInstance[config.Config](container, cfg),
		ectoinject.RegisterInstance[ectologger.Logger](container, a.logger),
		ectoinject.RegisterInstance[database.DB](container, a.db),
		ectoinject.RegisterInstance[*contentnode.Repository](container, nodeRepo),
		ectoinject.RegisterInstance[*relationshipedge.Repository](container, edgeRepo),
		ectoinject.RegisterInstance[*dailymetric.Repository](container, metricRepo),
		ectoinject.RegisterInstance[*standardizationprofile.Repository](container, profileRepo),
		ectoinject.RegisterInstance[*audienceoverlap.Repository](container, overlapRepo),
		ectoinject.RegisterInstance[*redis.VersionTracker](container, versions),
		ectoinject.RegisterInstance[*contentgraph.Builder](container, builder),
		ectoinject.RegisterInstance[*standardize.ProfileCache](container, profileCache),
		ectoinject.RegisterInstance[*rollup.Engine](container, rollupEngine),
		ectoinject.RegisterInstance[*suggest.Engine](container, suggestEngine),
		ectoinject.RegisterInstance[*insights.Generator](container, insightGenerator),
		ectoinject.RegisterInstance[*insights.RedisCache](container, insightCache),
	}
	if a.graph != nil {
		registrations = append(registrations,
			ectoinject.RegisterInstance[*graphdb.Projector](container, graphProjector),
			ectoinject.RegisterInstance[*graphdb.QueryService](container, graphdb.NewQueryService(a.graph, a.logger)),
		)
	}
	for _, err := range registrations {
		if err != nil {
			return fmt.Errorf("failed to register dependency: %w", err)
		}
	}

	return nil
}

func (a *application) buildServer() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.HTTPErrorHandler = middleware.Error(a.logger)
	e.Use(middleware.Context())
	e.Use(middleware.Logger(a.logger))
	e.Use(otelecho.Middleware(a.cfg.AppName))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: a.cfg.AllowOrigins,
		AllowMethods: a.cfg.AllowMethods,
	}))

	api := e.Group("/api/v1")
	content.Register(api.Group("/content"))
	relationship.Register(api.Group("/relationships"))
	suggestion.Register(api.Group("/suggestions"))
	family.Register(api.Group("/families"))
	insight.Register(api.Group("/insights"))
	profile.Register(api.Group("/profiles"))
	overlap.Register(api.Group("/overlaps"))

	a.checker = health.NewChecker(a.sqlDB, a.redis, version)
	a.checker.RegisterRoutes(e)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.Server.ReadTimeout = time.Duration(a.cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(a.cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(a.cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(a.cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = a.cfg.MaxHeaderBytes

	a.echo = e
}

type tracingDependency struct{ app *application }

func (d *tracingDependency) GetName() string     { return "tracing" }
func (d *tracingDependency) DependsOn() []string { return nil }

func (d *tracingDependency) Start(ctx context.Context) error {
	if !d.app.cfg.TracingEnabled {
		return nil
	}

	exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
		Endpoint: d.app.cfg.TracingEndpoint,
		Protocol: d.app.cfg.TracingProtocol,
		Insecure: d.app.cfg.TracingInsecure,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(sdkresource.NewSchemaless(
			attribute.String("service.name", d.app.cfg.AppName),
			attribute.String("service.version", version),
		)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	tracing.SetTracer(tp.Tracer(d.app.cfg.AppName))

	d.app.tracerProvider = tp
	return nil
}

func (d *tracingDependency) Stop(ctx context.Context) error {
	if d.app.tracerProvider == nil {
		return nil
	}
	return d.app.tracerProvider.Shutdown(ctx)
}

type databaseDependency struct{ app *application }

func (d *databaseDependency) GetName() string     { return "database" }
func (d *databaseDependency) DependsOn() []string { return nil }

func (d *databaseDependency) Start(ctx context.Context) error {
	cfg := d.app.cfg
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode)

	db, err := sqlx.ConnectContext(ctx, cfg.DatabaseDriver, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

	d.app.sqlDB = db
	d.app.db = database.NewDatabaseInstance(db, d.app.logger)
	return nil
}

func (d *databaseDependency) Stop(ctx context.Context) error {
	if d.app.sqlDB == nil {
		return nil
	}
	return d.app.sqlDB.Close()
}

type migrationDependency struct{ app *application }

func (d *migrationDependency) GetName() string     { return "migrations" }
func (d *migrationDependency) DependsOn() []string { return []string{"database"} }

func (d *migrationDependency) Start(ctx context.Context) error {
	cfg := d.app.cfg

	driver, err := migratepg.WithInstance(d.app.sqlDB.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	ms := database.NewMigrationService(d.app.logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	return ms.Migrate(cfg.DatabaseName, driver)
}

func (d *migrationDependency) Stop(ctx context.Context) error { return nil }

type redisDependency struct{ app *application }

func (d *redisDependency) GetName() string     { return "redis" }
func (d *redisDependency) DependsOn() []string { return nil }

func (d *redisDependency) Start(ctx context.Context) error {
	cfg := d.app.cfg
	client, err := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, d.app.logger)
	if err != nil {
		return err
	}
	d.app.redis = client
	return nil
}

func (d *redisDependency) Stop(ctx context.Context) error {
	if d.app.redis == nil {
		return nil
	}
	return d.app.redis.Close()
}

type graphDependency struct{ app *application }

func (d *graphDependency) GetName() string     { return "graphdb" }
func (d *graphDependency) DependsOn() []string { return nil }

func (d *graphDependency) Start(ctx context.Context) error {
	cfg := d.app.cfg
	if !cfg.GraphDBEnabled {
		d.app.logger.Info("graph mirror is disabled; family graph endpoint will be unavailable")
		return nil
	}

	client, err := graphdb.NewClient(graphdb.Config{
		Host:     cfg.GraphDBHost,
		Port:     cfg.GraphDBPort,
		Username: cfg.GraphDBUser,
		Password: cfg.GraphDBPassword,
	}, d.app.logger)
	if err != nil {
		return err
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		_ = client.Close(ctx)
		return fmt.Errorf("failed to reach graph database: %w", err)
	}

	d.app.graph = client
	return nil
}

func (d *graphDependency) Stop(ctx context.Context) error {
	if d.app.graph == nil {
		return nil
	}
	return d.app.graph.Close(ctx)
}

type producerDependency struct{ app *application }

func (d *producerDependency) GetName() string     { return "kafka-producer" }
func (d *producerDependency) DependsOn() []string { return nil }

func (d *producerDependency) Start(ctx context.Context) error {
	cfg := d.app.cfg
	d.app.producer = kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaOutputTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, d.app.logger)
	return nil
}

func (d *producerDependency) Stop(ctx context.Context) error {
	if d.app.producer == nil {
		return nil
	}
	return d.app.producer.Close()
}

type containerDependency struct{ app *application }

func (d *containerDependency) GetName() string { return "container" }
func (d *containerDependency) DependsOn() []string {
	return []string{"database", "migrations", "redis", "graphdb", "kafka-producer"}
}

func (d *containerDependency) Start(ctx context.Context) error {
	return d.app.buildContainer()
}

func (d *containerDependency) Stop(ctx context.Context) error { return nil }

type consumerDependency struct{ app *application }

func (d *consumerDependency) GetName() string     { return "kafka-consumer" }
func (d *consumerDependency) DependsOn() []string { return []string{"container"} }

func (d *consumerDependency) Start(ctx context.Context) error {
	if d.app.consumer == nil {
		d.app.logger.Info("kafka consumer is disabled; platform sync ingestion is off")
		return nil
	}
	// The consume loop owns its own lifetime; the startup ctx is only for
	// the initial dial.
	return d.app.consumer.Start(context.Background())
}

func (d *consumerDependency) Stop(ctx context.Context) error {
	if d.app.consumer == nil {
		return nil
	}
	return d.app.consumer.Stop()
}

type serverDependency struct{ app *application }

func (d *serverDependency) GetName() string     { return "http-server" }
func (d *serverDependency) DependsOn() []string { return []string{"container"} }

func (d *serverDependency) Start(ctx context.Context) error {
	d.app.buildServer()

	go func() {
		addr := fmt.Sprintf(":%d", d.app.cfg.Port)
		if err := d.app.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			d.app.logger.WithError(err).Error("http server stopped unexpectedly")
		}
	}()

	d.app.checker.SetReady(true)
	return nil
}

func (d *serverDependency) Stop(ctx context.Context) error {
	if d.app.echo == nil {
		return nil
	}
	d.app.checker.SetReady(false)
	return d.app.echo.Shutdown(ctx)
}
