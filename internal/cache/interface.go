package cache

import (
	"context"
	"time"
)

// CacheRepo - горячий кеш поверх холодного хранилища. Реализация Redis
// живёт в redis_cache.go, доменная обёртка для снимков чанков - в
// chunk_cache.go. При промахе Get возвращает ErrCacheMiss.
type CacheRepo interface {
	Get(ctx context.Context, key string) ([]byte, error)

	// Set пишет значение с TTL; ttl = 0 означает бессрочно
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete убирает ключ локально и рассылает инвалидацию другим узлам
	Delete(ctx context.Context, key string) error

	// DropLocal убирает ключ только из локального кеша, без рассылки.
	// Используется обработчиком входящих инвалидаций, иначе узлы
	// зациклились бы, пересылая уведомления друг другу.
	DropLocal(ctx context.Context, key string) error

	// Invalidate - синоним Delete, смысловой акцент на устаревании
	Invalidate(ctx context.Context, key string) error

	Close() error

	GetMetrics() *CacheMetrics
}

// ColdStorage - постоянное хранилище под горячим кешем. Промах кеша
// добирается отсюда (read-through), записи стекают сюда асинхронно
// (write-behind). Реализуется хранилищем мира на BadgerDB.
type ColdStorage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Store(ctx context.Context, key string, value []byte) error
	BatchStore(ctx context.Context, items map[string][]byte) error
}

// CacheInvalidator рассылает и принимает уведомления об устаревании
// ключей между узлами через Pub/Sub.
type CacheInvalidator interface {
	PublishInvalidation(ctx context.Context, key string) error
	SubscribeInvalidations(ctx context.Context, handler InvalidationHandler) error
	Close() error
}

// InvalidationHandler обрабатывает входящее уведомление об инвалидации
type InvalidationHandler func(key string) error

// CacheMetrics - показатели работы кеша
type CacheMetrics struct {
	TotalRequests int64   `json:"total_requests"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	HitRatio      float64 `json:"hit_ratio"`

	AvgLatencyMs float64 `json:"avg_latency_ms"`
	MaxLatencyMs float64 `json:"max_latency_ms"`

	// Сколько записей ещё не стекло в холодное хранилище
	PendingWrites int64 `json:"pending_writes"`

	LastUpdate time.Time `json:"last_update"`
}

// CacheConfig - настройки Redis и фоновой записи
type CacheConfig struct {
	RedisURL      string `yaml:"redis_url"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	DefaultTTL time.Duration `yaml:"default_ttl"`
	MaxTTL     time.Duration `yaml:"max_ttl"`

	WriteBehindEnabled   bool          `yaml:"write_behind_enabled"`
	WriteBehindInterval  time.Duration `yaml:"write_behind_interval"`
	WriteBehindBatchSize int           `yaml:"write_behind_batch_size"`

	MaxConnections int           `yaml:"max_connections"`
	PoolTimeout    time.Duration `yaml:"pool_timeout"`
}

// ErrCacheMiss возвращается, когда ключа нет ни в кеше, ни в холодном хранилище
var ErrCacheMiss = &CacheError{Message: "cache miss"}

// CacheError представляет ошибку кеша
type CacheError struct {
	Message string
}

func (e *CacheError) Error() string {
	return e.Message
}

// IsCacheMiss проверяет, является ли ошибка промахом кеша
func IsCacheMiss(err error) bool {
	return err == ErrCacheMiss
}
