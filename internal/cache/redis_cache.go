package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/railverse/internal/logging"
	"github.com/go-redis/redis/v8"
)

// RedisCache реализует CacheRepo: Redis как горячий слой, под ним
// опциональное холодное хранилище. Промах в Redis добирается из холодного
// хранилища (read-through), записи стекают в него пачками в фоне
// (write-behind). Delete рассылает инвалидацию другим узлам, если задан
// invalidator.
type RedisCache struct {
	client      *redis.Client
	config      *CacheConfig
	coldStorage ColdStorage
	invalidator CacheInvalidator

	writeQueue chan writeItem
	writeStop  chan struct{}
	writeWg    sync.WaitGroup

	metrics      *CacheMetrics
	metricsMutex sync.RWMutex

	latencySumNs int64
	latencyCount int64
	maxLatencyNs int64
}

// writeItem - отложенная запись в холодное хранилище
type writeItem struct {
	key   string
	value []byte
}

// NewRedisCache подключается к Redis и, если включён write-behind и задано
// холодное хранилище, запускает фоновую запись. coldStorage и invalidator
// могут быть nil: кеш тогда работает как чистый Redis.
func NewRedisCache(config *CacheConfig, coldStorage ColdStorage, invalidator CacheInvalidator) (*RedisCache, error) {
	applyDefaults(config)

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.RedisURL,
		Password:     config.RedisPassword,
		DB:           config.RedisDB,
		PoolSize:     config.MaxConnections,
		PoolTimeout:  config.PoolTimeout,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis недоступен: %w", err)
	}

	cache := &RedisCache{
		client:      rdb,
		config:      config,
		coldStorage: coldStorage,
		invalidator: invalidator,
		metrics:     &CacheMetrics{LastUpdate: time.Now()},
	}

	if config.WriteBehindEnabled && coldStorage != nil {
		cache.writeQueue = make(chan writeItem, config.WriteBehindBatchSize*2)
		cache.writeStop = make(chan struct{})
		cache.startWriteBehind()
	}

	logging.LogInfo("Redis кеш подключен: %s (write-behind: %v)", config.RedisURL, config.WriteBehindEnabled)
	return cache, nil
}

func applyDefaults(config *CacheConfig) {
	if config.DefaultTTL == 0 {
		config.DefaultTTL = 30 * time.Second
	}
	if config.MaxTTL == 0 {
		config.MaxTTL = 1 * time.Hour
	}
	if config.WriteBehindInterval == 0 {
		config.WriteBehindInterval = 5 * time.Second
	}
	if config.WriteBehindBatchSize == 0 {
		config.WriteBehindBatchSize = 100
	}
	if config.MaxConnections == 0 {
		config.MaxConnections = 10
	}
	if config.PoolTimeout == 0 {
		config.PoolTimeout = 30 * time.Second
	}
}

// Get читает ключ из Redis, при промахе добирает из холодного хранилища
// и прогревает кеш найденным значением.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	defer r.recordLatency(start)

	atomic.AddInt64(&r.metrics.TotalRequests, 1)

	val, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		atomic.AddInt64(&r.metrics.CacheHits, 1)
		r.updateHitRatio()
		return val, nil
	}

	atomic.AddInt64(&r.metrics.CacheMisses, 1)
	r.updateHitRatio()

	if err != redis.Nil {
		logging.LogError("Redis Get %s: %v", key, err)
		return nil, fmt.Errorf("redis get: %w", err)
	}

	if r.coldStorage == nil {
		return nil, ErrCacheMiss
	}

	val, err = r.coldStorage.Load(ctx, key)
	if err != nil {
		logging.LogDebug("Промах холодного хранилища %s: %v", key, err)
		return nil, ErrCacheMiss
	}

	// Прогреваем кеш вне пути запроса
	go func() {
		warmCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.client.Set(warmCtx, key, val, r.config.DefaultTTL).Err(); err != nil {
			logging.LogDebug("Не удалось прогреть кеш %s: %v", key, err)
		}
	}()

	return val, nil
}

// Set пишет значение в Redis и ставит его в очередь фоновой записи
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	defer r.recordLatency(start)

	if ttl > r.config.MaxTTL {
		ttl = r.config.MaxTTL
	}

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		logging.LogError("Redis Set %s: %v", key, err)
		return fmt.Errorf("redis set: %w", err)
	}

	r.enqueueWrite(key, value)
	return nil
}

// enqueueWrite ставит запись в очередь write-behind; при переполненной
// очереди пишет в холодное хранилище синхронно в отдельной горутине
func (r *RedisCache) enqueueWrite(key string, value []byte) {
	if r.writeQueue == nil {
		return
	}

	select {
	case r.writeQueue <- writeItem{key: key, value: value}:
	default:
		logging.LogWarn("Очередь write-behind переполнена, пишем напрямую: %s", key)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := r.coldStorage.Store(ctx, key, value); err != nil {
				logging.LogError("Запись в холодное хранилище %s: %v", key, err)
			}
		}()
	}
}

// Delete убирает ключ и уведомляет другие узлы
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.DropLocal(ctx, key); err != nil {
		return err
	}

	if r.invalidator != nil {
		go func() {
			pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := r.invalidator.PublishInvalidation(pubCtx, key); err != nil {
				logging.LogError("Не удалось разослать инвалидацию %s: %v", key, err)
			}
		}()
	}

	return nil
}

// DropLocal убирает ключ только из локального Redis
func (r *RedisCache) DropLocal(ctx context.Context, key string) error {
	start := time.Now()
	defer r.recordLatency(start)

	if err := r.client.Del(ctx, key).Err(); err != nil {
		logging.LogError("Redis Del %s: %v", key, err)
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Invalidate помечает ключ устаревшим
func (r *RedisCache) Invalidate(ctx context.Context, key string) error {
	return r.Delete(ctx, key)
}

// Close останавливает фоновую запись, дописывает накопленное и закрывает Redis
func (r *RedisCache) Close() error {
	if r.writeStop != nil {
		close(r.writeStop)
		r.writeWg.Wait()
	}

	if err := r.client.Close(); err != nil {
		logging.LogError("Ошибка закрытия Redis: %v", err)
		return err
	}

	logging.LogInfo("Redis кеш закрыт")
	return nil
}

// GetMetrics возвращает копию текущих метрик
func (r *RedisCache) GetMetrics() *CacheMetrics {
	r.metricsMutex.RLock()
	metrics := *r.metrics
	r.metricsMutex.RUnlock()

	metrics.LastUpdate = time.Now()
	if r.writeQueue != nil {
		metrics.PendingWrites = int64(len(r.writeQueue))
	}
	return &metrics
}

// startWriteBehind запускает воркер фоновой записи: копит очередь в пачку
// и сбрасывает её по размеру или по таймеру
func (r *RedisCache) startWriteBehind() {
	r.writeWg.Add(1)
	go func() {
		defer r.writeWg.Done()

		ticker := time.NewTicker(r.config.WriteBehindInterval)
		defer ticker.Stop()

		batch := make(map[string][]byte)

		flush := func() {
			if len(batch) == 0 {
				return
			}
			r.flushBatch(batch)
			batch = make(map[string][]byte)
		}

		for {
			select {
			case item := <-r.writeQueue:
				batch[item.key] = item.value
				if len(batch) >= r.config.WriteBehindBatchSize {
					flush()
				}
			case <-ticker.C:
				flush()
			case <-r.writeStop:
				// Добираем то, что успело попасть в очередь
				for {
					select {
					case item := <-r.writeQueue:
						batch[item.key] = item.value
					default:
						flush()
						return
					}
				}
			}
		}
	}()

	logging.LogInfo("Write-behind запущен (интервал %v, пачка %d)",
		r.config.WriteBehindInterval, r.config.WriteBehindBatchSize)
}

// flushBatch записывает пачку в холодное хранилище
func (r *RedisCache) flushBatch(batch map[string][]byte) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := r.coldStorage.BatchStore(ctx, batch); err != nil {
		logging.LogError("Write-behind не записал пачку из %d записей: %v", len(batch), err)
		return
	}
	logging.LogDebug("Write-behind записал %d записей за %v", len(batch), time.Since(start))
}

func (r *RedisCache) recordLatency(start time.Time) {
	latency := time.Since(start).Nanoseconds()

	atomic.AddInt64(&r.latencySumNs, latency)
	count := atomic.AddInt64(&r.latencyCount, 1)

	for {
		current := atomic.LoadInt64(&r.maxLatencyNs)
		if latency <= current || atomic.CompareAndSwapInt64(&r.maxLatencyNs, current, latency) {
			break
		}
	}

	// Средние пересчитываем изредка, не на каждом запросе
	if count%100 == 0 {
		sum := atomic.LoadInt64(&r.latencySumNs)
		max := atomic.LoadInt64(&r.maxLatencyNs)
		r.metricsMutex.Lock()
		r.metrics.AvgLatencyMs = float64(sum) / float64(count) / 1e6
		r.metrics.MaxLatencyMs = float64(max) / 1e6
		r.metricsMutex.Unlock()
	}
}

func (r *RedisCache) updateHitRatio() {
	hits := atomic.LoadInt64(&r.metrics.CacheHits)
	misses := atomic.LoadInt64(&r.metrics.CacheMisses)
	if total := hits + misses; total > 0 {
		r.metricsMutex.Lock()
		r.metrics.HitRatio = float64(hits) / float64(total)
		r.metricsMutex.Unlock()
	}
}
