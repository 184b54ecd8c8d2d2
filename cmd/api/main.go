package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/stock-ledger/internal/application/cachekey"
	"github.com/jhoicas/stock-ledger/internal/application/catalog"
	"github.com/jhoicas/stock-ledger/internal/application/invalidation"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/cache"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memstore"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/messaging"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/jhoicas/stock-ledger/pkg/telemetry"
)

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatal().Err(err).Msg("configurar trazas")
	}

	// Almacén transaccional
	var (
		txRunner inventory.TxRunner
		source   catalog.CatalogSource
	)
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
		txRunner = postgres.NewTxRunner(pool)
		source = postgres.NewCatalogRepository(pool)
	default:
		store := memstore.New()
		if err := seedDemo(store); err != nil {
			log.Fatal().Err(err).Msg("seed en memoria")
		}
		txRunner = memstore.NewTxRunner(store)
		source = memstore.NewCatalogSource(store)
		log.Warn().Msg("almacén en memoria: los datos se pierden al reiniciar")
	}

	// Cache Store
	rules, err := cache.ParseTTLRules(cfg.Cache.TTLRules)
	if err != nil {
		log.Fatal().Err(err).Msg("reglas de TTL")
	}
	cacheStore := cache.New(
		cache.WithDefaultTTL(cfg.Cache.DefaultTTL),
		cache.WithTTLRules(rules),
		cache.WithNotifyBuffer(cfg.Cache.NotifyBuffer),
		cache.WithCascade(cascadeRules),
		cache.WithLogger(log),
	)
	cacheStore.StartJanitor(ctx, cfg.Cache.SweepInterval)

	g, gctx := errgroup.WithContext(ctx)

	// Difusión de invalidaciones entre instancias (opcional)
	var broadcaster invalidation.Broadcaster
	if cfg.Kafka.Enabled() {
		origin := instanceOrigin(cfg.Kafka)
		writer := messaging.NewWriter(cfg.Kafka)
		defer writer.Close()
		broadcaster = messaging.NewBroadcaster(writer, origin)

		consumer := messaging.NewConsumer(messaging.NewReader(cfg.Kafka, cfg.App.Name, origin), cacheStore, origin, log)
		defer consumer.Close()
		g.Go(func() error { return consumer.Run(gctx) })
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Str("origin", origin).Msg("difusión de invalidaciones activa")
	}
	router := invalidation.NewRouter(cacheStore, broadcaster, log)

	opts := []inventory.Option{
		inventory.WithLogger(log),
		inventory.WithRetry(inventory.RetryPolicy{MaxAttempts: cfg.Ledger.MaxRetries, Backoff: cfg.Ledger.RetryBackoff}),
	}
	ledgerUC := inventory.NewLedgerUseCase(txRunner, router, opts...)
	transferUC := inventory.NewTransferUseCase(txRunner, router, opts...)
	movementsUC := inventory.NewMovementLogUseCase(txRunner, opts...)
	reconcileUC := inventory.NewReconcileUseCase(txRunner, opts...)
	catalogUC := catalog.NewUseCase(cacheStore, source, ledgerUC, log)

	if cfg.Reconcile.Interval > 0 {
		g.Go(func() error {
			runReconcile(gctx, reconcileUC, cfg.Reconcile.Interval, log)
			return nil
		})
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:    ledgerUC,
		Transfers: transferUC,
		Movements: movementsUC,
		Reconcile: reconcileUC,
		Catalog:   catalogUC,
		Cache:     cacheStore,
		JWTSecret: cfg.JWT.Secret,
		JWTIssuer: cfg.JWT.Issuer,
	})

	g.Go(func() error {
		return app.Listen(cfg.HTTP.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("señal de apagado recibida, cerrando servidor...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("aplicación finalizada con error")
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		log.Error().Err(err).Msg("cerrar exportador de trazas")
	}
	log.Info().Msg("aplicación detenida")
}

// cascadeRules traduce cachekey.Dependents a objetivos del Cache Store.
func cascadeRules(key string) []cache.Target {
	keys, prefixes := cachekey.Dependents(key)
	out := make([]cache.Target, 0, len(keys)+len(prefixes))
	for _, k := range keys {
		out = append(out, cache.Target{Key: k})
	}
	for _, p := range prefixes {
		out = append(out, cache.Target{Key: p, Prefix: true})
	}
	return out
}

// instanceOrigin identifica a la instancia en la difusión. KAFKA_INSTANCE_ID
// mantiene el mismo grupo de consumo entre reinicios.
func instanceOrigin(cfg config.KafkaConfig) string {
	if cfg.InstanceID != "" {
		return cfg.InstanceID
	}
	return uuid.NewString()
}

// runReconcile concilia los sub-ledgers cada interval y registra las derivas.
func runReconcile(ctx context.Context, uc *inventory.ReconcileUseCase, interval time.Duration, log *logger.Logger) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			report, err := uc.Reconcile(ctx)
			if err != nil {
				log.Error().Err(err).Msg("conciliación fallida")
				continue
			}
			for _, d := range report.Drifts {
				log.Error().
					Str("distributor_id", d.DistributorID).
					Str("variant_id", d.VariantID).
					Int64("counter", d.Counter).
					Int64("replayed", d.Replayed).
					Msg("deriva entre contador y log de movimientos")
			}
		}
	}
}
