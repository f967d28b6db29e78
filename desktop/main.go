// Command desktop is a spectator window for a tiles server. It follows the
// server's WebSocket feed and draws the board, the paths of every placed
// tile and each player's token.
//
//	go run . -server http://localhost:8080
package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"log"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"desktop/feed"
)

const (
	cellSize     = 96
	headerHeight = 64
	margin       = 16
	tokenSize    = 10
	retryDelay   = 2 * time.Second
)

// Player colors, indexed by player id
var playerColors = []color.RGBA{
	{255, 100, 100, 255}, // Red
	{100, 100, 255, 255}, // Blue
	{100, 255, 100, 255}, // Green
	{255, 255, 100, 255}, // Yellow
	{255, 100, 255, 255}, // Magenta
	{100, 255, 255, 255}, // Cyan
	{255, 165, 0, 255},   // Orange
	{128, 0, 128, 255},   // Purple
}

func playerColor(id int) color.RGBA {
	if id < 0 {
		return color.RGBA{200, 200, 200, 255}
	}
	return playerColors[id%len(playerColors)]
}

// Game is the ebiten game drawing one spectated server
type Game struct {
	client *feed.Client
	tiles  [][][2]int

	mu     sync.RWMutex
	board  *feed.Board
	status string
	cancel context.CancelFunc
}

// NewGame fetches the board size and tile catalogue and starts following
// the feed.
func NewGame(client *feed.Client) (*Game, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	width, height, err := client.BoardSize(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rules: %w", err)
	}
	tiles, err := client.Tiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tiles: %w", err)
	}

	g := &Game{
		client: client,
		tiles:  tiles,
		board:  feed.NewBoard(width, height),
		status: "connecting",
	}
	g.connect()
	return g, nil
}

// connect (re)starts the feed with a fresh board
func (g *Game) connect() {
	g.mu.Lock()
	if g.cancel != nil {
		g.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	board := feed.NewBoard(g.board.Width, g.board.Height)
	g.board = board
	g.mu.Unlock()

	go g.follow(ctx, board)
}

// follow keeps the feed open, retrying after a lost connection. Every
// retry replays the game into the same board.
func (g *Game) follow(ctx context.Context, board *feed.Board) {
	for ctx.Err() == nil {
		g.setStatus("connected")
		err := g.client.Follow(ctx, func(env feed.Envelope) {
			g.mu.Lock()
			defer g.mu.Unlock()
			if err := board.Apply(env); err != nil {
				log.Printf("feed: %v", err)
			}
		})
		if ctx.Err() != nil {
			return
		}
		log.Printf("feed lost: %v", err)
		g.setStatus("reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay):
		}
	}
}

func (g *Game) setStatus(s string) {
	g.mu.Lock()
	g.status = s
	g.mu.Unlock()
}

// Update handles input: R reconnects with a fresh board
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.connect()
	}
	return nil
}

// Draw renders the header, the board and the tokens
func (g *Game) Draw(screen *ebiten.Image) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	g.drawHeader(screen)

	b := g.board
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			ox, oy := cellOrigin(x, y)
			ebitenutil.DrawRect(screen, ox, oy, cellSize-2, cellSize-2, color.RGBA{40, 40, 40, 255})

			placed, ok := b.Cells[[2]int{x, y}]
			if !ok {
				continue
			}
			ebitenutil.DrawRect(screen, ox, oy, cellSize-2, cellSize-2, color.RGBA{70, 60, 50, 255})
			g.drawTile(screen, ox, oy, placed)
		}
	}

	for id, tok := range b.Tokens {
		ox, oy := cellOrigin(tok.X, tok.Y)
		px, py := feed.PointOffset(tok.Point)
		cx, cy := ox+px*(cellSize-2), oy+py*(cellSize-2)
		clr := playerColor(id)
		if b.Eliminated[id] {
			clr = color.RGBA{90, 90, 90, 255}
		}
		ebitenutil.DrawRect(screen, cx-tokenSize/2, cy-tokenSize/2, tokenSize, tokenSize, clr)
		ebitenutil.DebugPrintAt(screen, fmt.Sprint(id), int(cx)+tokenSize/2, int(cy)-tokenSize)
	}
}

func (g *Game) drawTile(screen *ebiten.Image, ox, oy float64, placed feed.Placed) {
	if placed.Tile < 0 || placed.Tile >= len(g.tiles) {
		return
	}
	clr := playerColor(placed.Owner)
	for _, p := range feed.Rotate(g.tiles[placed.Tile], placed.Rotation) {
		x0, y0 := feed.PointOffset(p[0])
		x1, y1 := feed.PointOffset(p[1])
		ebitenutil.DrawLine(screen,
			ox+x0*(cellSize-2), oy+y0*(cellSize-2),
			ox+x1*(cellSize-2), oy+y1*(cellSize-2),
			clr)
	}
}

func (g *Game) drawHeader(screen *ebiten.Image) {
	b := g.board
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Tiles spectator: %s  (%s)  [R] reconnect", g.client.BaseURL, g.status), margin, 4)

	if !b.InGame {
		ebitenutil.DebugPrintAt(screen, "Waiting for a game to start...", margin, 22)
		return
	}
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Game #%d  turn order: %v  alive: %v", b.Games, b.TurnOrder, b.Alive()), margin, 22)
	if b.Current >= 0 {
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Waiting for player %d", b.Current), margin, 40)
	}
}

// Layout sizes the screen to the board
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return screenSize(g.board.Width, g.board.Height)
}

func cellOrigin(x, y int) (float64, float64) {
	return float64(margin + x*cellSize), float64(headerHeight + y*cellSize)
}

func screenSize(width, height int) (int, int) {
	return 2*margin + width*cellSize, headerHeight + margin + height*cellSize
}

func main() {
	server := flag.String("server", "http://localhost:8080", "status API base URL")
	flag.Parse()

	game, err := NewGame(feed.NewClient(*server))
	if err != nil {
		log.Fatal(err)
	}

	w, h := screenSize(game.board.Width, game.board.Height)
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowTitle("Tiles - Spectator")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
