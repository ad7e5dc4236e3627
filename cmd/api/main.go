package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/stock-ledger/internal/application/batch"
	"github.com/jhoicas/stock-ledger/internal/application/fulfillment"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/ports"
	"github.com/jhoicas/stock-ledger/internal/domain"
	inframetrics "github.com/jhoicas/stock-ledger/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/stock-ledger/internal/infrastructure/pdf"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/jhoicas/stock-ledger/pkg/retry"
)

const swaggerFile = "./docs/swagger.json"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()

	// Persistencia
	repos, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("persistencia")
	}
	defer closeStore()

	// Métricas
	var recorder ports.MetricsRecorder = ports.NopMetrics{}
	var prom *inframetrics.Recorder
	if cfg.Metrics.Enabled {
		prom = inframetrics.NewRecorder(cfg.Metrics.Prefix)
		recorder = prom
	}

	// Reintentos ante límite de peticiones del almacén
	policy := retry.Policy{
		MaxRetries: cfg.Batch.MaxRetries,
		BaseDelay:  cfg.Batch.RetryBaseDelay,
		MaxDelay:   cfg.Batch.MaxDelay,
		Retryable:  domain.IsRateLimited,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			recorder.RateLimitRetry("store")
			log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("límite de peticiones, reintentando")
		},
	}

	ledger := inventory.NewLedgerWriter(repos.Lots, repos.Stock, repos.Movements, policy, recorder, log)
	fulfillmentSvc := fulfillment.NewService(repos, ledger, policy)
	purchaseUC := inventory.NewPurchaseUseCase(repos, ledger, policy)
	integrityUC := inventory.NewIntegrityUseCase(repos)

	// Un lote por empresa: lock en Redis si está configurado, si no en proceso
	guard, closeGuard, err := openGuard(ctx, cfg.Redis, log)
	if err != nil {
		closeStore()
		log.Fatal().Err(err).Msg("lock de lotes")
	}
	defer closeGuard()

	coordinator := batch.NewCoordinator(fulfillmentSvc, purchaseUC, repos.Orders, policy, batch.Options{
		Throttler: &batch.Throttler{
			Concurrency: cfg.Batch.DeleteConcurrency,
			BaseDelay:   cfg.Batch.BaseDelay,
			MaxDelay:    cfg.Batch.MaxDelay,
			Policy:      policy,
			OnRateLimit: func() { recorder.RateLimitRetry("batch_delete") },
		},
		Guard:   guard,
		Metrics: recorder,
		Logger:  log,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		BodyLimit:    12 << 20,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Stock Ledger API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "store": cfg.Store.Driver})
	})
	if prom != nil {
		app.Get("/metrics", adaptor.HTTPHandler(prom.Handler()))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		Fulfillment: fulfillmentSvc,
		Purchases:   purchaseUC,
		Integrity:   integrityUC,
		Batches:     coordinator,
		Report:      infrapdf.NewMarotoReportGenerator(),
		JWTSecret:   cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
