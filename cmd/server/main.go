package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/railverse/internal/api"
	"github.com/annel0/railverse/internal/cache"
	"github.com/annel0/railverse/internal/config"
	"github.com/annel0/railverse/internal/eventbus"
	"github.com/annel0/railverse/internal/logging"
	"github.com/annel0/railverse/internal/observability"
	"github.com/annel0/railverse/internal/storage"
	"github.com/annel0/railverse/internal/world"
	"github.com/annel0/railverse/internal/world/block"
	_ "github.com/annel0/railverse/internal/world/block/implementations"
	"github.com/google/uuid"
)

func main() {
	// Инициализируем систему логирования
	if err := logging.InitLogger(); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseLogger()

	logging.LogInfo("🚂 Запуск Railverse Server...")

	// === КОНФИГУРАЦИЯ ===
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("❌ Ошибка чтения конфигурации: %v", err)
	}
	if cfg == nil {
		cfg = &config.Config{}
	}

	restPort := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	metricsPort := fmt.Sprintf(":%d", cfg.Server.GetMetricsPort())
	seed := cfg.World.GetSeed()
	dataPath := cfg.Storage.GetDataPath()

	logging.LogInfo("📡 Конфигурация: REST=%s, metrics=%s, seed=%d, data=%s", restPort, metricsPort, seed, dataPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === OBSERVABILITY ===
	shutdownTelemetry, err := observability.InitTelemetry(ctx, "railverse")
	if err != nil {
		logging.LogWarn("OpenTelemetry недоступен: %v", err)
		shutdownTelemetry = func(context.Context) error { return nil }
	}

	// === ШИНА СОБЫТИЙ ===
	var bus eventbus.EventBus
	if cfg.EventBus.URL != "" {
		retention := time.Duration(cfg.EventBus.Retention) * time.Hour
		if retention == 0 {
			retention = 24 * time.Hour
		}
		jsBus, err := eventbus.NewJetStreamBus(cfg.EventBus.URL, cfg.EventBus.Stream, retention)
		if err != nil {
			logging.LogWarn("NATS JetStream недоступен (%v), используем in-memory шину", err)
			bus = eventbus.NewMemoryBus(4096)
		} else {
			bus = jsBus
		}
	} else {
		bus = eventbus.NewMemoryBus(4096)
	}
	eventbus.Init(bus)

	if err := eventbus.StartLoggingListener(bus); err != nil {
		logging.LogWarn("Не удалось запустить логирование событий: %v", err)
	}

	busMetrics := eventbus.NewMetricsExporter(bus)
	busMetrics.StartHTTP(metricsPort)
	defer busMetrics.Stop()

	// === ХРАНИЛИЩЕ ===
	worldStorage, err := storage.NewWorldStorage(dataPath)
	if err != nil {
		log.Fatalf("❌ Ошибка открытия хранилища мира: %v", err)
	}
	defer worldStorage.Close()

	// === МИР ===
	wm := world.NewWorldManager(seed)
	wm.SetStorageFunctions(worldStorage.SaveChunk, worldStorage.LoadAndApplyChunk)
	wm.SetEventSink(func(event world.Event) {
		publishWorldEvent(ctx, event)
	})
	wm.Run(ctx)
	defer wm.Shutdown()

	// === КЕШ СНИМКОВ ЧАНКОВ ===
	// Redis как горячий слой, BadgerDB хранилища мира как холодный,
	// инвалидация между узлами через NATS
	var chunkCache *cache.ChunkCache
	if cfg.Cache.RedisAddr != "" {
		var invalidator cache.CacheInvalidator
		if cfg.EventBus.URL != "" {
			natsInv, err := cache.NewNATSInvalidator(cfg.EventBus.URL, "rail.cache.invalidation", uuid.NewString())
			if err != nil {
				logging.LogWarn("NATS инвалидация кеша недоступна: %v", err)
			} else {
				defer natsInv.Close()
				invalidator = natsInv
			}
		}

		repo, err := cache.NewRedisCache(&cache.CacheConfig{
			RedisURL:           cfg.Cache.RedisAddr,
			WriteBehindEnabled: true,
		}, worldStorage, invalidator)
		if err != nil {
			logging.LogWarn("Redis недоступен (%v), кеш снимков отключён", err)
		} else {
			defer repo.Close()
			if invalidator != nil {
				err := invalidator.SubscribeInvalidations(ctx, func(key string) error {
					dropCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					return repo.DropLocal(dropCtx, key)
				})
				if err != nil {
					logging.LogWarn("Не удалось подписаться на инвалидации кеша: %v", err)
				}
			}
			ttl := time.Duration(cfg.Cache.TTLSecs) * time.Second
			chunkCache = cache.NewChunkCache(repo, ttl)
			logging.LogInfo("✅ Кеш снимков чанков активен (Redis %s, холодный слой BadgerDB)", cfg.Cache.RedisAddr)
		}
	}

	// === REST API ===
	restServer := api.NewRestServer(api.Config{
		Port:       restPort,
		World:      wm,
		ChunkCache: chunkCache,
		Bus:        bus,
	})

	go func() {
		if err := restServer.Start(); err != nil {
			logging.LogError("❌ Ошибка REST API: %v", err)
		}
	}()

	logging.LogInfo("✅ Все сервисы запущены")
	logging.LogInfo("   🌐 REST API: http://localhost%s", restPort)
	logging.LogInfo("   📈 Метрики: http://localhost%s/metrics", metricsPort)
	logging.LogInfo("   ❤️  Health check: http://localhost%s/health", restPort)

	// Ждем сигнала для завершения
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logging.LogInfo("📡 Получен сигнал %v, завершение работы...", sig)

	// === GRACEFUL SHUTDOWN ===
	wm.SaveWorld(true)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logging.LogWarn("Ошибка остановки телеметрии: %v", err)
	}

	logging.LogInfo("👋 Сервер остановлен")
}

// publishWorldEvent переводит событие мира в конверт шины событий
// с типизированной нагрузкой
func publishWorldEvent(ctx context.Context, event world.Event) {
	var (
		eventType string
		payload   interface{}
	)

	switch e := event.(type) {
	case world.BlockEvent:
		eventType = eventbus.EventTypeBlockSet
		payload = eventbus.BlockSetPayload{
			Pos:     e.Position,
			BlockID: uint16(e.Block.ID),
			Chunk:   e.SourceChunk,
		}
	case world.BreakEvent:
		eventType = eventbus.EventTypeBlockBreak
		id := block.BlockID(e.BlockID)
		if id == block.RailBlockID || id == block.ReinforcedRailBlockID {
			eventType = eventbus.EventTypeRailBreak
		}
		payload = eventbus.BlockBreakPayload{
			Pos:     e.Position,
			BlockID: e.BlockID,
			Drops:   len(e.Drops),
		}
	case world.EffectEvent:
		eventType = eventbus.EventTypeEffect
		payload = eventbus.EffectPayload{Name: e.Name, Pos: e.Position}
	case world.SaveEvent:
		eventType = eventbus.EventTypeChunkSaved
		payload = eventbus.ChunkSavedPayload{Forced: e.Forced, Chunks: e.Saved}
	default:
		return // тики в шину не публикуем
	}

	envelope, err := eventbus.NewEnvelope(eventType, "railverse", payload)
	if err != nil {
		logging.LogWarn("Не удалось собрать конверт события: %v", err)
		return
	}
	if err := eventbus.Publish(ctx, envelope); err != nil {
		logging.LogWarn("Не удалось опубликовать событие: %v", err)
	}
}
