// Package feed follows a tiles server's spectator WebSocket and rebuilds the
// board it describes. It has no rendering code so it can be tested without a
// display.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Envelope is one spectator message
type Envelope struct {
	Seq  uint64          `json:"seq"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Placed is a tile on the board
type Placed struct {
	Tile     int
	Rotation int
	Owner    int
}

// Token is a player's position: a cell and one of its eight edge points
type Token struct {
	X, Y, Point int
}

type moveData struct {
	ID       int `json:"id"`
	TileID   int `json:"tile_id"`
	Rotation int `json:"rotation"`
	X        int `json:"x"`
	Y        int `json:"y"`
	Position int `json:"position"`
}

// Board is the spectator's copy of the running game
type Board struct {
	Width, Height int
	Cells         map[[2]int]Placed
	Tokens        map[int]Token
	Eliminated    map[int]bool
	TurnOrder     []int
	Current       int
	InGame        bool
	Games         int
	LastSeq       uint64

	collecting bool
}

// NewBoard creates an empty board
func NewBoard(width, height int) *Board {
	b := &Board{Width: width, Height: height}
	b.reset()
	b.InGame = false
	return b
}

func (b *Board) reset() {
	b.Cells = map[[2]int]Placed{}
	b.Tokens = map[int]Token{}
	b.Eliminated = map[int]bool{}
	b.TurnOrder = nil
	b.Current = -1
	b.InGame = true
	b.collecting = true
}

// Apply folds one message into the board. Messages at or below the last
// applied sequence number are ignored.
func (b *Board) Apply(env Envelope) error {
	if env.Seq != 0 && env.Seq < b.LastSeq {
		return nil
	}
	if env.Seq > b.LastSeq {
		b.LastSeq = env.Seq
	}

	if env.Type != "player_turn" {
		b.collecting = false
	}

	var d moveData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return fmt.Errorf("decode %s: %w", env.Type, err)
		}
	}

	switch env.Type {
	case "game_start":
		b.reset()
		b.Games++
	case "player_turn":
		if b.collecting && !slices.Contains(b.TurnOrder, d.ID) {
			b.TurnOrder = append(b.TurnOrder, d.ID)
			return nil
		}
		b.collecting = false
		b.Current = d.ID
	case "place_tile":
		b.Cells[[2]int{d.X, d.Y}] = Placed{Tile: d.TileID, Rotation: d.Rotation, Owner: d.ID}
	case "move_token":
		b.Tokens[d.ID] = Token{X: d.X, Y: d.Y, Point: d.Position}
	case "player_eliminated":
		b.Eliminated[d.ID] = true
	}
	return nil
}

// Alive returns the players of the turn order not yet eliminated
func (b *Board) Alive() []int {
	var out []int
	for _, id := range b.TurnOrder {
		if !b.Eliminated[id] {
			out = append(out, id)
		}
	}
	return out
}

// PointOffset returns where an edge point sits on a unit cell, with y
// growing downward. Points run counterclockwise from the bottom left.
func PointOffset(point int) (float64, float64) {
	const a, b = 1.0 / 3, 2.0 / 3
	switch point {
	case 0:
		return a, 1
	case 1:
		return b, 1
	case 2:
		return 1, b
	case 3:
		return 1, a
	case 4:
		return b, 0
	case 5:
		return a, 0
	case 6:
		return 0, a
	default:
		return 0, b
	}
}

// Rotate turns a tile's connections by quarter turns
func Rotate(pairs [][2]int, rotation int) [][2]int {
	shift := 2 * (((rotation % 4) + 4) % 4)
	out := make([][2]int, len(pairs))
	for i, p := range pairs {
		out[i] = [2]int{(p[0] + shift) % 8, (p[1] + shift) % 8}
	}
	return out
}

// Client reads the status API of one server
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client for the status API at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) get(ctx context.Context, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// BoardSize fetches the running rules' board dimensions
func (c *Client) BoardSize(ctx context.Context) (int, int, error) {
	var rules struct {
		Width  int `json:"board_width"`
		Height int `json:"board_height"`
	}
	if err := c.get(ctx, "/api/rules", &rules); err != nil {
		return 0, 0, err
	}
	return rules.Width, rules.Height, nil
}

// Tiles fetches the connections of every catalogue tile, indexed by id
func (c *Client) Tiles(ctx context.Context) ([][][2]int, error) {
	var tiles []struct {
		ID    int      `json:"id"`
		Pairs [][2]int `json:"pairs"`
	}
	if err := c.get(ctx, "/api/tiles", &tiles); err != nil {
		return nil, err
	}
	out := make([][][2]int, len(tiles))
	for _, t := range tiles {
		if t.ID >= 0 && t.ID < len(out) {
			out[t.ID] = t.Pairs
		}
	}
	return out, nil
}

// Follow streams spectator messages to fn until ctx ends or the connection
// fails.
func (c *Client) Follow(ctx context.Context, fn func(Envelope)) error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return err
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = "/ws"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		fn(env)
	}
}
