package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/annel0/railverse/internal/cache"
	"github.com/annel0/railverse/internal/eventbus"
	"github.com/annel0/railverse/internal/logging"
	"github.com/annel0/railverse/internal/middleware"
	"github.com/annel0/railverse/internal/rail"
	"github.com/annel0/railverse/internal/vec"
	"github.com/annel0/railverse/internal/world"
	"github.com/annel0/railverse/internal/world/block"
	"github.com/annel0/railverse/internal/world/block/implementations"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RestServer представляет REST API сервер
type RestServer struct {
	router     *gin.Engine
	world      *world.WorldManager
	chunkCache *cache.ChunkCache
	bus        eventbus.EventBus
	port       string
	metrics    *ServerMetrics
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port       string              // порт для запуска сервера
	World      *world.WorldManager // менеджер мира
	ChunkCache *cache.ChunkCache   // кеш снимков чанков (может быть nil)
	Bus        eventbus.EventBus   // шина событий для статистики (может быть nil)
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8080"
	}

	// Устанавливаем режим релиза для gin
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(middleware.RequestLogger())

	router.Use(otelgin.Middleware("rest_api"))

	promMw := middleware.NewPrometheusMiddleware("rest_api")
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	server := &RestServer{
		router:     router,
		world:      config.World,
		chunkCache: config.ChunkCache,
		bus:        config.Bus,
		port:       config.Port,
		metrics:    NewServerMetrics(),
	}

	// Настраиваем маршруты
	server.setupRoutes()

	return server
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	// Middleware для CORS
	rs.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/server", rs.handleServerInfo)
		api.GET("/stats", rs.handleStats)

		worldGroup := api.Group("/world")
		{
			worldGroup.GET("/block", rs.handleGetBlock)
			worldGroup.POST("/block", rs.handlePlaceBlock)
			worldGroup.DELETE("/block", rs.handleRemoveBlock)
			worldGroup.POST("/interact", rs.handleInteract)
			worldGroup.GET("/chunk/:cx/:cz", rs.handleGetChunk)
		}

		api.GET("/rail", rs.handleGetRail)
	}
}

// Start запускает сервер (блокирующий вызов)
func (rs *RestServer) Start() error {
	logging.LogInfo("REST API сервер запускается на %s", rs.port)
	return rs.router.Run(rs.port)
}

// Router возвращает gin-роутер (для тестов)
func (rs *RestServer) Router() *gin.Engine {
	return rs.router
}

// handleHealth - проверка живости сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleServerInfo возвращает информацию о процессе сервера
func (rs *RestServer) handleServerInfo(c *gin.Context) {
	memoryMB, _ := rs.metrics.GetMemoryUsage()
	cpuPercent, _ := rs.metrics.GetCPUUsage()

	c.JSON(http.StatusOK, gin.H{
		"uptime":      rs.metrics.GetUptime(),
		"memory_mb":   memoryMB,
		"cpu_percent": cpuPercent,
		"memory":      rs.metrics.GetDetailedMemoryStats(),
	})
}

// handleStats возвращает статистику мира и шины событий
func (rs *RestServer) handleStats(c *gin.Context) {
	stats := gin.H{
		"tick":          rs.world.CurrentTick(),
		"active_chunks": len(rs.world.ActiveChunks()),
		"seed":          rs.world.Seed(),
	}

	if rs.bus != nil {
		busStats := rs.bus.Metrics()
		stats["eventbus"] = gin.H{
			"published": busStats.Published,
			"consumed":  busStats.Consumed,
			"dropped":   busStats.Dropped,
			"inflight":  busStats.InFlight,
		}
	}

	c.JSON(http.StatusOK, stats)
}

// parsePosQuery извлекает мировые координаты из query-параметров
func parsePosQuery(c *gin.Context) (vec.Vec3, bool) {
	x, errX := strconv.Atoi(c.Query("x"))
	y, errY := strconv.Atoi(c.Query("y"))
	z, errZ := strconv.Atoi(c.Query("z"))
	if errX != nil || errY != nil || errZ != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "параметры x, y, z обязательны"})
		return vec.Vec3{}, false
	}
	return vec.Vec3{X: x, Y: y, Z: z}, true
}

// handleGetBlock возвращает блок по мировым координатам
func (rs *RestServer) handleGetBlock(c *gin.Context) {
	pos, ok := parsePosQuery(c)
	if !ok {
		return
	}

	blk := rs.world.GetBlock(pos)
	response := gin.H{
		"pos":   pos,
		"id":    blk.ID,
		"solid": rs.world.IsSolid(pos),
	}
	if behavior, exists := block.Get(blk.ID); exists {
		response["name"] = behavior.Name()
	}
	if len(blk.Payload) > 0 {
		response["payload"] = blk.Payload
	}

	c.JSON(http.StatusOK, response)
}

// placeBlockRequest - тело запроса на установку блока
type placeBlockRequest struct {
	X  int    `json:"x"`
	Y  int    `json:"y"`
	Z  int    `json:"z"`
	ID uint16 `json:"id"`
}

// handlePlaceBlock устанавливает блок, если позиция допустима
func (rs *RestServer) handlePlaceBlock(c *gin.Context) {
	var req placeBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := block.BlockID(req.ID)
	if !block.IsValidBlockID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("неизвестный блок: %d", req.ID)})
		return
	}

	pos := vec.Vec3{X: req.X, Y: req.Y, Z: req.Z}
	if !rs.world.CanPlaceBlock(pos, id) {
		c.JSON(http.StatusConflict, gin.H{"error": "блок нельзя установить в эту позицию"})
		return
	}

	rs.world.SetBlock(pos, id)
	rs.invalidateChunk(c, pos)

	c.JSON(http.StatusOK, gin.H{"pos": pos, "id": id})
}

// handleRemoveBlock ломает блок по мировым координатам
func (rs *RestServer) handleRemoveBlock(c *gin.Context) {
	pos, ok := parsePosQuery(c)
	if !ok {
		return
	}

	if rs.world.GetBlockID(pos) == block.AirBlockID {
		c.JSON(http.StatusNotFound, gin.H{"error": "блок не найден"})
		return
	}

	rs.world.RemoveBlock(pos)
	rs.invalidateChunk(c, pos)

	c.JSON(http.StatusOK, gin.H{"pos": pos})
}

// interactRequest - тело запроса взаимодействия с блоком
type interactRequest struct {
	X       int                    `json:"x"`
	Y       int                    `json:"y"`
	Z       int                    `json:"z"`
	Action  string                 `json:"action"`
	Payload map[string]interface{} `json:"payload"`
}

// handleInteract обрабатывает взаимодействие с блоком (добыча и т.п.)
func (rs *RestServer) handleInteract(c *gin.Context) {
	var req interactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pos := vec.Vec3{X: req.X, Y: req.Y, Z: req.Z}
	result := rs.world.InteractBlock(pos, req.Action, req.Payload)
	rs.invalidateChunk(c, pos)

	c.JSON(http.StatusOK, gin.H{
		"success": result.Success,
		"message": result.Message,
		"effects": result.Effects,
	})
}

// handleGetChunk возвращает снимок чанка, по возможности из кеша
func (rs *RestServer) handleGetChunk(c *gin.Context) {
	cx, errX := strconv.Atoi(c.Param("cx"))
	cz, errZ := strconv.Atoi(c.Param("cz"))
	if errX != nil || errZ != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректные координаты чанка"})
		return
	}

	coords := vec.Vec2{X: cx, Y: cz}

	if rs.chunkCache != nil {
		if snapshot, err := rs.chunkCache.Get(c.Request.Context(), coords); err == nil {
			c.JSON(http.StatusOK, snapshot)
			return
		}
	}

	// Промах кеша: строим снимок из живого мира
	var target *world.Chunk
	for _, chunk := range rs.world.ActiveChunks() {
		if chunk.Coords == coords {
			target = chunk
			break
		}
	}
	if target == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "чанк не активен"})
		return
	}

	snapshot := cache.SnapshotOf(target, rs.world.CurrentTick())
	if rs.chunkCache != nil {
		if err := rs.chunkCache.Put(c.Request.Context(), snapshot); err != nil {
			logging.LogWarn("Не удалось закешировать снимок чанка %v: %v", coords, err)
		}
	}

	c.JSON(http.StatusOK, snapshot)
}

// handleGetRail возвращает ориентацию рельса и его подтверждённые связи
func (rs *RestServer) handleGetRail(c *gin.Context) {
	pos, ok := parsePosQuery(c)
	if !ok {
		return
	}

	grid := implementations.RailGridOf(rs.world.BlockAPI())
	seg, exists := grid.SegmentAt(pos)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "в этой позиции нет рельса"})
		return
	}

	verified := rail.VerifiedConnections(grid, seg)
	connections := make([]string, 0, len(verified))
	for _, d := range verified {
		connections = append(connections, d.String())
	}

	c.JSON(http.StatusOK, gin.H{
		"pos":         pos,
		"orientation": seg.Orientation.String(),
		"ascending":   seg.Orientation.IsAscending(),
		"can_curve":   seg.CanCurve,
		"connections": connections,
	})
}

// invalidateChunk сбрасывает кешированный снимок чанка после изменения
func (rs *RestServer) invalidateChunk(c *gin.Context, pos vec.Vec3) {
	if rs.chunkCache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := rs.chunkCache.Invalidate(ctx, pos.ToChunkCoords()); err != nil {
		logging.LogWarn("Не удалось инвалидировать снимок чанка: %v", err)
	}
}
