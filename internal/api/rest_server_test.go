package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/annel0/railverse/internal/vec"
	"github.com/annel0/railverse/internal/world"
	"github.com/annel0/railverse/internal/world/block"
	_ "github.com/annel0/railverse/internal/world/block/implementations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*RestServer, *world.WorldManager) {
	t.Helper()

	wm := world.NewWorldManager(1)
	server := NewRestServer(Config{World: wm})
	return server, wm
}

func doRequest(server *RestServer, method, url string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	return w
}

func TestRestServer_Health(t *testing.T) {
	server, _ := newTestServer(t)

	w := doRequest(server, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code, "Health должен отвечать 200")
}

func TestRestServer_GetBlock(t *testing.T) {
	server, wm := newTestServer(t)

	pos := vec.Vec3{X: 1, Y: 20, Z: 1}
	wm.SetBlock(pos, block.StoneBlockID)

	w := doRequest(server, http.MethodGet, "/api/world/block?x=1&y=20&z=1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.EqualValues(t, block.StoneBlockID, response["id"], "ID блока должен совпадать")
	assert.Equal(t, "Stone", response["name"], "Имя поведения должно попасть в ответ")
	assert.Equal(t, true, response["solid"], "Камень должен быть отмечен как опора")
}

func TestRestServer_GetBlockBadQuery(t *testing.T) {
	server, _ := newTestServer(t)

	w := doRequest(server, http.MethodGet, "/api/world/block?x=1&y=abc&z=1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "Некорректные координаты должны давать 400")
}

func TestRestServer_PlaceBlock(t *testing.T) {
	server, wm := newTestServer(t)

	// Опора для рельса
	wm.SetBlock(vec.Vec3{X: 2, Y: 20, Z: 2}, block.StoneBlockID)

	w := doRequest(server, http.MethodPost, "/api/world/block", map[string]interface{}{
		"x": 2, "y": 21, "z": 2, "id": uint16(block.RailBlockID),
	})
	require.Equal(t, http.StatusOK, w.Code, "Установка рельса на камень должна удаться")
	assert.Equal(t, block.RailBlockID, wm.GetBlockID(vec.Vec3{X: 2, Y: 21, Z: 2}))
}

func TestRestServer_PlaceBlockRejected(t *testing.T) {
	server, _ := newTestServer(t)

	// Рельс в воздухе без опоры
	w := doRequest(server, http.MethodPost, "/api/world/block", map[string]interface{}{
		"x": 2, "y": 30, "z": 2, "id": uint16(block.RailBlockID),
	})
	assert.Equal(t, http.StatusConflict, w.Code, "Рельс без опоры должен отклоняться")

	// Неизвестный ID блока
	w = doRequest(server, http.MethodPost, "/api/world/block", map[string]interface{}{
		"x": 2, "y": 30, "z": 2, "id": uint16(9999),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "Неизвестный блок должен давать 400")
}

func TestRestServer_RemoveBlock(t *testing.T) {
	server, wm := newTestServer(t)

	pos := vec.Vec3{X: 3, Y: 20, Z: 3}
	wm.SetBlock(pos, block.StoneBlockID)

	w := doRequest(server, http.MethodDelete, "/api/world/block?x=3&y=20&z=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, block.AirBlockID, wm.GetBlockID(pos), "Блок должен быть сломан")

	w = doRequest(server, http.MethodDelete, "/api/world/block?x=3&y=20&z=3", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "Повторное удаление должно давать 404")
}

func TestRestServer_GetRail(t *testing.T) {
	server, wm := newTestServer(t)

	// Два рельса в линию запад-восток
	wm.SetBlock(vec.Vec3{X: 4, Y: 20, Z: 4}, block.StoneBlockID)
	wm.SetBlock(vec.Vec3{X: 5, Y: 20, Z: 4}, block.StoneBlockID)
	wm.SetBlock(vec.Vec3{X: 4, Y: 21, Z: 4}, block.RailBlockID)
	wm.SetBlock(vec.Vec3{X: 5, Y: 21, Z: 4}, block.RailBlockID)

	w := doRequest(server, http.MethodGet, "/api/rail?x=4&y=21&z=4", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "straight_ew", response["orientation"], "Рельсы должны выстроиться в линию")
	assert.Equal(t, true, response["can_curve"], "Обычный рельс может поворачивать")

	connections, ok := response["connections"].([]interface{})
	require.True(t, ok)
	assert.Len(t, connections, 1, "У крайнего рельса одна подтверждённая связь")

	// Для пустой ячейки - 404
	w = doRequest(server, http.MethodGet, "/api/rail?x=9&y=21&z=9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRestServer_GetChunkSnapshot(t *testing.T) {
	server, wm := newTestServer(t)

	pos := vec.Vec3{X: 6, Y: 20, Z: 6}
	wm.SetBlock(pos, block.StoneBlockID)

	coords := pos.ToChunkCoords()
	w := doRequest(server, http.MethodGet, fmt.Sprintf("/api/world/chunk/%d/%d", coords.X, coords.Y), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	blocks, ok := response["blocks"].([]interface{})
	require.True(t, ok, "Снимок должен содержать блоки")
	assert.NotEmpty(t, blocks, "В чанке есть сгенерированный рельеф и наш камень")
}

func TestRestServer_Stats(t *testing.T) {
	server, wm := newTestServer(t)
	wm.SetBlock(vec.Vec3{X: 0, Y: 20, Z: 0}, block.StoneBlockID)

	w := doRequest(server, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.EqualValues(t, 1, response["active_chunks"], "Должен быть один активный чанк")
}
