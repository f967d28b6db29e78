package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/wricardo/tiles-server/game/engine"
	"github.com/wricardo/tiles-server/game/service"
	"github.com/wricardo/tiles-server/game/session"
	"github.com/wricardo/tiles-server/protocol"
	"github.com/wricardo/tiles-server/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	StatusFunc      func(ctx context.Context) (*service.StatusInfo, error)
	HistoryFunc     func(ctx context.Context, opts service.HistoryOptions) (*service.HistoryResponse, error)
	BoardFunc       func(ctx context.Context) (*engine.BoardSnapshot, error)
	ListGamesFunc   func(ctx context.Context) ([]*service.GameSummary, error)
	GetGameFunc     func(ctx context.Context, id string) (*session.GameRecord, error)
	ListPresetsFunc func(ctx context.Context) ([]*service.ConfigInfo, error)
}

func (m *MockGameService) Status(ctx context.Context) (*service.StatusInfo, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx)
	}
	return &service.StatusInfo{Status: session.Status{Current: -1}, Rules: engine.DefaultRules()}, nil
}

func (m *MockGameService) History(ctx context.Context, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, opts)
	}
	return &service.HistoryResponse{Events: []protocol.Envelope{}, Page: 1}, nil
}

func (m *MockGameService) Board(ctx context.Context) (*engine.BoardSnapshot, error) {
	if m.BoardFunc != nil {
		return m.BoardFunc(ctx)
	}
	snap := engine.NewBoard(5, 5).Snapshot()
	return &snap, nil
}

func (m *MockGameService) ListGames(ctx context.Context) ([]*service.GameSummary, error) {
	if m.ListGamesFunc != nil {
		return m.ListGamesFunc(ctx)
	}
	return []*service.GameSummary{}, nil
}

func (m *MockGameService) GetGame(ctx context.Context, id string) (*session.GameRecord, error) {
	if m.GetGameFunc != nil {
		return m.GetGameFunc(ctx, id)
	}
	return nil, session.ErrGameNotFound
}

func (m *MockGameService) Rules(ctx context.Context) *engine.Rules {
	return engine.DefaultRules()
}

func (m *MockGameService) ListPresets(ctx context.Context) ([]*service.ConfigInfo, error) {
	if m.ListPresetsFunc != nil {
		return m.ListPresetsFunc(ctx)
	}
	return []*service.ConfigInfo{}, nil
}

func (m *MockGameService) Tiles(ctx context.Context) []service.TileInfo {
	return []service.TileInfo{{ID: 0, Pairs: [][2]int{{0, 1}, {2, 3}, {4, 5}, {6, 7}}, Symmetry: 1}}
}

func setupTestServer(svc service.GameService) *Server {
	return NewServer(svc, nil)
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to parse response: %v\nBody: %s", err, w.Body.String())
	}
}

func get(server *Server, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
	return w
}

func TestStatus(t *testing.T) {
	started := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	mockService := &MockGameService{
		StatusFunc: func(ctx context.Context) (*service.StatusInfo, error) {
			return &service.StatusInfo{
				Status: session.Status{
					Connected: 3,
					Queue:     []session.PlayerInfo{{ID: 2, Name: "10.0.0.3:5000"}},
					Lobby:     []session.PlayerInfo{{ID: 0, Acted: true}, {ID: 1}},
					InGame:    true,
					GameID:    "g-1",
					StartedAt: &started,
					TurnOrder: []int{0, 1},
					Current:   1,
				},
				Rules:  engine.DefaultRules(),
				Uptime: "5m0s",
			}, nil
		},
	}

	w := get(setupTestServer(mockService), "/api/status")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}

	var resp map[string]interface{}
	parseResponse(t, w, &resp)
	if resp["game_id"] != "g-1" {
		t.Errorf("Expected game_id g-1, got %v", resp["game_id"])
	}
	if resp["current"].(float64) != 1 {
		t.Errorf("Expected current 1, got %v", resp["current"])
	}
	if len(resp["lobby"].([]interface{})) != 2 {
		t.Errorf("Expected 2 lobby members, got %v", resp["lobby"])
	}
	rules := resp["rules"].(map[string]interface{})
	if rules["name"] != "classic" {
		t.Errorf("Expected classic rules, got %v", rules["name"])
	}
}

func TestStatusError(t *testing.T) {
	mockService := &MockGameService{
		StatusFunc: func(ctx context.Context) (*service.StatusInfo, error) {
			return nil, fmt.Errorf("service error")
		},
	}

	w := get(setupTestServer(mockService), "/api/status")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
	var resp map[string]string
	parseResponse(t, w, &resp)
	if resp["error"] != "service error" {
		t.Errorf("Expected error message 'service error', got %s", resp["error"])
	}
}

func TestHistory(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		expectedStatus int
		expectedOpts   *service.HistoryOptions
	}{
		{name: "defaults", query: "", expectedStatus: http.StatusOK, expectedOpts: &service.HistoryOptions{}},
		{name: "paging", query: "?page=2&limit=10&order=desc", expectedStatus: http.StatusOK, expectedOpts: &service.HistoryOptions{Page: 2, Limit: 10, Order: "desc"}},
		{name: "bad page", query: "?page=zero", expectedStatus: http.StatusBadRequest},
		{name: "negative limit", query: "?limit=-4", expectedStatus: http.StatusBadRequest},
		{name: "bad order", query: "?order=sideways", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *service.HistoryOptions
			mockService := &MockGameService{
				HistoryFunc: func(ctx context.Context, opts service.HistoryOptions) (*service.HistoryResponse, error) {
					got = &opts
					env, _ := protocol.ToEnvelope(protocol.PlaceTile{ID: 1, TileID: 4, X: 0, Y: 0})
					return &service.HistoryResponse{GameID: "g", Events: []protocol.Envelope{env}, TotalEvents: 1, Page: 1, PageSize: 50, TotalPages: 1}, nil
				},
			}

			w := get(setupTestServer(mockService), "/api/history"+tt.query)
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.expectedOpts == nil {
				if got != nil {
					t.Error("service should not be called for a bad request")
				}
				return
			}
			if *got != *tt.expectedOpts {
				t.Errorf("Expected options %+v, got %+v", *tt.expectedOpts, *got)
			}

			var resp service.HistoryResponse
			parseResponse(t, w, &resp)
			if len(resp.Events) != 1 || resp.Events[0].Type != "place_tile" {
				t.Errorf("Unexpected events %+v", resp.Events)
			}
		})
	}
}

func TestBoard(t *testing.T) {
	w := get(setupTestServer(&MockGameService{}), "/api/board")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var snap engine.BoardSnapshot
	parseResponse(t, w, &snap)
	if snap.Width != 5 || len(snap.Cells) != 5 {
		t.Errorf("Unexpected board %+v", snap)
	}
}

func TestGames(t *testing.T) {
	record := &session.GameRecord{
		ID:        "g-42",
		Rules:     "classic",
		TurnOrder: []int{0, 1},
		Winner:    1,
		Events:    []protocol.Message{protocol.PlaceTile{ID: 0, TileID: 3, X: 0, Y: 0}},
	}
	mockService := &MockGameService{
		ListGamesFunc: func(ctx context.Context) ([]*service.GameSummary, error) {
			return []*service.GameSummary{{ID: "g-42", Winner: 1, Events: 1}}, nil
		},
		GetGameFunc: func(ctx context.Context, id string) (*session.GameRecord, error) {
			switch id {
			case "g-42":
				return record, nil
			case "bad.id":
				return nil, session.ErrInvalidGameID
			case "broken":
				return nil, fmt.Errorf("disk on fire")
			}
			return nil, session.ErrGameNotFound
		},
	}
	server := setupTestServer(mockService)

	t.Run("list", func(t *testing.T) {
		w := get(server, "/api/games")
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var resp map[string]interface{}
		parseResponse(t, w, &resp)
		if resp["total"].(float64) != 1 {
			t.Errorf("Expected total 1, got %v", resp["total"])
		}
	})

	t.Run("get", func(t *testing.T) {
		w := get(server, "/api/games/g-42")
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var rec session.GameRecord
		parseResponse(t, w, &rec)
		if rec.ID != "g-42" || rec.Winner != 1 || len(rec.Events) != 1 {
			t.Errorf("Unexpected record %+v", rec)
		}
	})

	statuses := map[string]int{
		"missing": http.StatusNotFound,
		"bad.id":  http.StatusBadRequest,
		"broken":  http.StatusInternalServerError,
	}
	for id, want := range statuses {
		t.Run(id, func(t *testing.T) {
			w := get(server, "/api/games/"+id)
			if w.Code != want {
				t.Errorf("Expected status %d, got %d", want, w.Code)
			}
		})
	}
}

func TestRulesEndpoints(t *testing.T) {
	mockService := &MockGameService{
		ListPresetsFunc: func(ctx context.Context) ([]*service.ConfigInfo, error) {
			return []*service.ConfigInfo{{ConfigID: "blitz", BoardWidth: 4}}, nil
		},
	}
	server := setupTestServer(mockService)

	t.Run("rules", func(t *testing.T) {
		var rules engine.Rules
		parseResponse(t, get(server, "/api/rules"), &rules)
		if rules.Name != "classic" || rules.HandSize != 4 {
			t.Errorf("Unexpected rules %+v", rules)
		}
	})

	t.Run("configs", func(t *testing.T) {
		var configs []service.ConfigInfo
		parseResponse(t, get(server, "/api/configs"), &configs)
		if len(configs) != 1 || configs[0].ConfigID != "blitz" {
			t.Errorf("Unexpected configs %+v", configs)
		}
	})

	t.Run("tiles", func(t *testing.T) {
		var tiles []service.TileInfo
		parseResponse(t, get(server, "/api/tiles"), &tiles)
		if len(tiles) != 1 || tiles[0].Symmetry != 1 {
			t.Errorf("Unexpected tiles %+v", tiles)
		}
	})
}

func TestMethodNotAllowed(t *testing.T) {
	server := setupTestServer(&MockGameService{})
	tests := []struct {
		method string
		path   string
	}{
		{"POST", "/api/status"},
		{"DELETE", "/api/status"},
		{"POST", "/api/history"},
		{"DELETE", "/api/board"},
		{"DELETE", "/api/games"},
		{"PUT", "/api/games/abc"},
		{"POST", "/api/rules"},
		{"POST", "/api/configs"},
		{"DELETE", "/api/tiles"},
		{"DELETE", "/healthz"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("Expected status 405, got %d", w.Code)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	w := get(setupTestServer(&MockGameService{}), "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp map[string]string
	parseResponse(t, w, &resp)
	if resp["status"] != "healthy" {
		t.Errorf("Expected healthy, got %v", resp)
	}
}

func TestWebSocketDisabled(t *testing.T) {
	w := get(setupTestServer(&MockGameService{}), "/ws")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestWebSocketSpectator(t *testing.T) {
	m := session.NewManager()
	hub := websocket.NewHub(m)
	m.AddObserver(hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	ts := httptest.NewServer(NewServer(&MockGameService{}, hub))
	defer ts.Close()

	conn, _, err := gorillaws.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if n, _ := hub.Clients(ctx); n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("spectator never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	m.Broadcast(protocol.Countdown{}, false)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg websocket.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	if msg.Type != "countdown" || msg.Seq != 1 {
		t.Errorf("Unexpected message %+v", msg)
	}
}
