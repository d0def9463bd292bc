package world

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/annel0/railverse/internal/vec"
	"github.com/annel0/railverse/internal/world/block"
)

// EventSink принимает события мира для доставки во внешние системы
// (шина событий, сетевой слой). Устанавливается через SetEventSink.
type EventSink func(Event)

// WorldManager управляет воксельным миром и координирует все процессы
type WorldManager struct {
	chunks       map[vec.Vec2]*Chunk // Активные чанки
	globalEvents chan Event          // Глобальные события
	seed         int64               // Глобальный сид для генерации
	generator    *WorldGenerator     // Генератор мира
	currentTick  uint64              // Текущий глобальный тик
	lastSaveTime time.Time           // Время последнего сохранения
	saveMu       sync.Mutex          // Мьютекс для операций сохранения
	mu           sync.RWMutex        // Мьютекс для доступа к чанкам
	tickMu       sync.Mutex          // Мьютекс для отложенных обновлений
	pendingOnce  map[vec.Vec3]struct{}
	ctx          context.Context
	cancelFunc   context.CancelFunc
	saveFunc     func(*Chunk) error // Функция сохранения чанка
	loadFunc     func(*Chunk) error // Применяет сохранённые изменения к свежему чанку
	eventSink    EventSink
	api          block.BlockAPI // Единый API для вызовов поведений блоков
}

// NewWorldManager создаёт новый менеджер мира с указанным сидом
func NewWorldManager(seed int64) *WorldManager {
	ctx, cancel := context.WithCancel(context.Background())

	wm := &WorldManager{
		chunks:       make(map[vec.Vec2]*Chunk),
		globalEvents: make(chan Event, 5000),
		seed:         seed,
		generator:    NewWorldGenerator(seed),
		lastSaveTime: time.Now(),
		pendingOnce:  make(map[vec.Vec3]struct{}),
		ctx:          ctx,
		cancelFunc:   cancel,
	}
	wm.api = newWorldBlockAPI(wm)
	return wm
}

// BlockAPI возвращает API, через который поведения блоков работают с миром
func (wm *WorldManager) BlockAPI() block.BlockAPI {
	return wm.api
}

// Seed возвращает сид мира
func (wm *WorldManager) Seed() int64 {
	return wm.seed
}

// CurrentTick возвращает номер текущего тика
func (wm *WorldManager) CurrentTick() uint64 {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return wm.currentTick
}

// SetStorageFunctions устанавливает функции для работы с хранилищем чанков
func (wm *WorldManager) SetStorageFunctions(
	saveFunc func(*Chunk) error,
	loadFunc func(*Chunk) error,
) {
	wm.saveFunc = saveFunc
	wm.loadFunc = loadFunc
}

// SetEventSink устанавливает приёмник глобальных событий
func (wm *WorldManager) SetEventSink(sink EventSink) {
	wm.eventSink = sink
}

// Run запускает фоновые процессы мира: обработку событий, тики и автосохранение
func (wm *WorldManager) Run(parentCtx context.Context) {
	if parentCtx != nil {
		childCtx, cancel := context.WithCancel(parentCtx)
		wm.ctx = childCtx
		wm.cancelFunc = cancel
	}

	go wm.processGlobalEvents()
	go wm.tickLoop()
	go wm.autoSaveLoop()
}

// Shutdown останавливает фоновые процессы и сохраняет мир
func (wm *WorldManager) Shutdown() {
	wm.SaveWorld(true)
	wm.cancelFunc()
}

// processGlobalEvents перекачивает глобальные события во внешний приёмник
func (wm *WorldManager) processGlobalEvents() {
	for {
		select {
		case <-wm.ctx.Done():
			return
		case event := <-wm.globalEvents:
			if wm.eventSink != nil {
				wm.eventSink(event)
			}
		}
	}
}

// tickLoop запускает глобальные тики мира
func (wm *WorldManager) tickLoop() {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-wm.ctx.Done():
			return
		case <-ticker.C:
			wm.ProcessTick()
		}
	}
}

// autoSaveLoop запускает периодическое сохранение мира
func (wm *WorldManager) autoSaveLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-wm.ctx.Done():
			return
		case <-ticker.C:
			wm.SaveWorld(false)
		}
	}
}

// ProcessTick обрабатывает один глобальный тик: сначала разовые отложенные
// обновления, затем блоки, требующие постоянных тиков
func (wm *WorldManager) ProcessTick() {
	wm.mu.Lock()
	wm.currentTick++
	tickID := wm.currentTick
	wm.mu.Unlock()

	// Забираем накопленные разовые обновления. Новые обновления,
	// запланированные в ходе обработки, попадут в следующий тик.
	wm.tickMu.Lock()
	pending := wm.pendingOnce
	wm.pendingOnce = make(map[vec.Vec3]struct{})
	wm.tickMu.Unlock()

	for pos := range pending {
		behavior, exists := block.Get(wm.GetBlockID(pos))
		if exists {
			behavior.OnNeighborChanged(wm.api, pos)
		}
	}

	// Постоянные тики для блоков, которые в них нуждаются
	wm.mu.RLock()
	chunks := make([]*Chunk, 0, len(wm.chunks))
	for _, chunk := range wm.chunks {
		chunks = append(chunks, chunk)
	}
	wm.mu.RUnlock()

	for _, chunk := range chunks {
		chunk.Mu.RLock()
		tickable := make([]vec.Vec3, 0, len(chunk.Tickable))
		for local := range chunk.Tickable {
			tickable = append(tickable, local)
		}
		coords := chunk.Coords
		chunk.Mu.RUnlock()

		for _, local := range tickable {
			pos := vec.Vec3{X: coords.X<<4 | local.X, Y: local.Y, Z: coords.Y<<4 | local.Z}
			behavior, exists := block.Get(wm.GetBlockID(pos))
			if exists && behavior.NeedsTick() {
				behavior.TickUpdate(wm.api, pos)
			}
		}
	}

	wm.publishEvent(TickEvent{TickID: tickID, DeltaTime: 0.05})
}

// getOrCreateChunk возвращает чанк по координатам, загружая или генерируя его
func (wm *WorldManager) getOrCreateChunk(coords vec.Vec2) *Chunk {
	wm.mu.RLock()
	chunk, exists := wm.chunks[coords]
	wm.mu.RUnlock()

	if exists {
		return chunk
	}

	wm.mu.Lock()
	defer wm.mu.Unlock()

	// Проверяем еще раз под блокировкой записи
	if chunk, exists = wm.chunks[coords]; exists {
		return chunk
	}

	chunk = wm.generator.GenerateChunk(coords)

	// Поверх сгенерированного рельефа применяем сохранённые изменения
	if wm.loadFunc != nil {
		if err := wm.loadFunc(chunk); err != nil {
			log.Printf("Ошибка загрузки чанка %v: %v", coords, err)
		}
	}

	wm.chunks[coords] = chunk
	return chunk
}

// GetBlockID возвращает ID блока по мировым координатам
func (wm *WorldManager) GetBlockID(pos vec.Vec3) block.BlockID {
	if !InBounds(pos.Y) {
		return block.AirBlockID
	}
	chunk := wm.getOrCreateChunk(pos.ToChunkCoords())
	return chunk.GetBlock(pos.LocalInChunk())
}

// GetBlock возвращает блок с метаданными по мировым координатам
func (wm *WorldManager) GetBlock(pos vec.Vec3) Block {
	if !InBounds(pos.Y) {
		return NewBlock(block.AirBlockID)
	}
	chunk := wm.getOrCreateChunk(pos.ToChunkCoords())
	local := pos.LocalInChunk()
	return Block{
		ID:      chunk.GetBlock(local),
		Payload: chunk.GetBlockMetadata(local),
	}
}

// IsSolid сообщает, может ли блок в указанной позиции служить опорой.
// Всё за пределами вертикальных границ мира опорой не считается.
func (wm *WorldManager) IsSolid(pos vec.Vec3) bool {
	if !InBounds(pos.Y) {
		return false
	}
	return block.IsSolidID(wm.GetBlockID(pos))
}

// CanPlaceBlock проверяет, допустима ли установка блока в позицию
func (wm *WorldManager) CanPlaceBlock(pos vec.Vec3, id block.BlockID) bool {
	if !InBounds(pos.Y) {
		return false
	}
	behavior, exists := block.Get(id)
	if !exists {
		return false
	}
	return behavior.CanPlaceAt(wm.api, pos)
}

// SetBlock устанавливает блок по мировым координатам: старый блок ломается,
// новый получает метаданные по умолчанию, соседи уведомляются
func (wm *WorldManager) SetBlock(pos vec.Vec3, id block.BlockID) {
	if !InBounds(pos.Y) {
		return
	}

	chunk := wm.getOrCreateChunk(pos.ToChunkCoords())
	local := pos.LocalInChunk()

	oldID := chunk.GetBlock(local)
	if oldID == id {
		return
	}

	if oldBehavior, exists := block.Get(oldID); exists && oldID != block.AirBlockID {
		oldBehavior.OnBreak(wm.api, pos)
	}

	chunk.SetBlock(local, id)

	newBehavior, exists := block.Get(id)
	if exists {
		chunk.Mu.Lock()
		if newBehavior.NeedsTick() {
			chunk.Tickable[local] = struct{}{}
		} else {
			delete(chunk.Tickable, local)
		}
		chunk.Mu.Unlock()

		if defaults := newBehavior.CreateMetadata(); len(defaults) > 0 {
			chunk.SetBlockMetadataMap(local, defaults)
		}
		newBehavior.OnPlace(wm.api, pos)
	}

	wm.publishEvent(BlockEvent{
		EventType:   EventTypeBlockSet,
		Position:    pos,
		Block:       Block{ID: id},
		SourceChunk: pos.ToChunkCoords(),
	})

	wm.TriggerNeighborUpdates(pos)
}

// RemoveBlock ломает блок: публикует событие дропа, заменяет блок воздухом
// и уведомляет соседей
func (wm *WorldManager) RemoveBlock(pos vec.Vec3) {
	if !InBounds(pos.Y) {
		return
	}

	chunk := wm.getOrCreateChunk(pos.ToChunkCoords())
	local := pos.LocalInChunk()

	oldID := chunk.GetBlock(local)
	if oldID == block.AirBlockID {
		return
	}

	if behavior, exists := block.Get(oldID); exists {
		behavior.OnBreak(wm.api, pos)
	}

	chunk.SetBlock(local, block.AirBlockID)
	chunk.Mu.Lock()
	delete(chunk.Tickable, local)
	chunk.Mu.Unlock()

	wm.publishEvent(BreakEvent{
		Position: pos,
		BlockID:  uint16(oldID),
		Drops:    []interface{}{oldID},
	})

	wm.TriggerNeighborUpdates(pos)
}

// GetBlockMetadata возвращает значение метаданных блока по ключу
func (wm *WorldManager) GetBlockMetadata(pos vec.Vec3, key string) interface{} {
	if !InBounds(pos.Y) {
		return nil
	}
	chunk := wm.getOrCreateChunk(pos.ToChunkCoords())
	value, exists := chunk.GetBlockMetadataValue(pos.LocalInChunk(), key)
	if !exists {
		return nil
	}
	return value
}

// SetBlockMetadata устанавливает значение метаданных блока по ключу и
// уведомляет соседей об изменении
func (wm *WorldManager) SetBlockMetadata(pos vec.Vec3, key string, value interface{}) {
	if !InBounds(pos.Y) {
		return
	}
	chunk := wm.getOrCreateChunk(pos.ToChunkCoords())
	chunk.SetBlockMetadata(pos.LocalInChunk(), key, value)

	wm.publishEvent(BlockEvent{
		EventType:   EventTypeBlockChange,
		Position:    pos,
		Block:       wm.GetBlock(pos),
		SourceChunk: pos.ToChunkCoords(),
	})

	wm.TriggerNeighborUpdates(pos)
}

// SetBlockMetadataSilent устанавливает значение метаданных без уведомлений.
// Изменение всё равно попадает в список изменений чанка для сохранения.
func (wm *WorldManager) SetBlockMetadataSilent(pos vec.Vec3, key string, value interface{}) {
	if !InBounds(pos.Y) {
		return
	}
	chunk := wm.getOrCreateChunk(pos.ToChunkCoords())
	chunk.SetBlockMetadata(pos.LocalInChunk(), key, value)
}

// ScheduleUpdateOnce помечает блок для разового обновления в следующем тике.
// Повторные пометки одной и той же позиции схлопываются.
func (wm *WorldManager) ScheduleUpdateOnce(pos vec.Vec3) {
	wm.tickMu.Lock()
	wm.pendingOnce[pos] = struct{}{}
	wm.tickMu.Unlock()
}

// TriggerNeighborUpdates синхронно уведомляет всех соседей блока об
// изменении: четырёх горизонтальных, верхнего и нижнего
func (wm *WorldManager) TriggerNeighborUpdates(pos vec.Vec3) {
	neighbors := [6]vec.Vec3{
		{X: pos.X, Y: pos.Y, Z: pos.Z - 1},
		{X: pos.X, Y: pos.Y, Z: pos.Z + 1},
		{X: pos.X - 1, Y: pos.Y, Z: pos.Z},
		{X: pos.X + 1, Y: pos.Y, Z: pos.Z},
		pos.Up(),
		pos.Down(),
	}

	for _, neighbor := range neighbors {
		if !InBounds(neighbor.Y) {
			continue
		}
		behavior, exists := block.Get(wm.GetBlockID(neighbor))
		if exists {
			behavior.OnNeighborChanged(wm.api, neighbor)
		}
	}
}

// EmitEffect испускает косметический эффект в точке мира
func (wm *WorldManager) EmitEffect(name string, pos vec.Vec3) {
	wm.publishEvent(EffectEvent{Name: name, Position: pos})
}

// InteractBlock обрабатывает взаимодействие игрока с блоком
func (wm *WorldManager) InteractBlock(pos vec.Vec3, action string, actionPayload map[string]interface{}) block.InteractionResult {
	if !InBounds(pos.Y) {
		return block.InteractionResult{Success: false, Message: "За пределами мира"}
	}

	chunk := wm.getOrCreateChunk(pos.ToChunkCoords())
	local := pos.LocalInChunk()

	id := chunk.GetBlock(local)
	behavior, exists := block.Get(id)
	if !exists {
		return block.InteractionResult{Success: false, Message: "Неизвестный блок"}
	}

	newID, newPayload, result := behavior.HandleInteraction(action, chunk.GetBlockMetadata(local), actionPayload)

	if newID != id {
		wm.SetBlock(pos, newID)
	}
	if newID != block.AirBlockID && len(newPayload) > 0 {
		chunk.SetBlockMetadataMap(local, newPayload)
	}

	for _, effect := range result.Effects {
		wm.EmitEffect(effect, pos)
	}

	return result
}

// publishEvent отправляет событие в глобальный канал без блокировки
func (wm *WorldManager) publishEvent(event Event) {
	select {
	case wm.globalEvents <- event:
	default:
		log.Printf("Переполнен канал глобальных событий, событие %T отброшено", event)
	}
}

// ActiveChunks возвращает снимок списка активных чанков
func (wm *WorldManager) ActiveChunks() []*Chunk {
	wm.mu.RLock()
	defer wm.mu.RUnlock()

	chunks := make([]*Chunk, 0, len(wm.chunks))
	for _, chunk := range wm.chunks {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// SaveWorld сохраняет все изменённые чанки через установленную функцию хранения
func (wm *WorldManager) SaveWorld(force bool) {
	wm.saveMu.Lock()
	defer wm.saveMu.Unlock()

	if !force && time.Since(wm.lastSaveTime) < time.Minute {
		return // Сохранение было недавно, пропускаем
	}

	if wm.saveFunc == nil {
		return
	}

	saved := 0
	for _, chunk := range wm.ActiveChunks() {
		chunk.Mu.RLock()
		dirty := chunk.ChangeCounter > 0
		chunk.Mu.RUnlock()

		if !dirty && !force {
			continue
		}

		if err := wm.saveFunc(chunk); err != nil {
			log.Printf("Ошибка сохранения чанка %v: %v", chunk.Coords, err)
			continue
		}
		chunk.ResetChanges()
		saved++
	}

	wm.lastSaveTime = time.Now()
	if saved > 0 {
		log.Printf("Сохранено чанков: %d", saved)
		wm.publishEvent(SaveEvent{Forced: force, Saved: saved})
	}
}
