package protocol

// Kind identifies a message type on the wire
type Kind uint8

const (
	KindWelcome Kind = iota + 1
	KindPlayerJoined
	KindPlayerLeft
	KindPlayerEliminated
	KindGameStart
	KindCountdown
	KindPlayerTurn
	KindPlaceTile
	KindMoveToken
	KindAddTileToHand
)

var kindNames = map[Kind]string{
	KindWelcome:          "welcome",
	KindPlayerJoined:     "player_joined",
	KindPlayerLeft:       "player_left",
	KindPlayerEliminated: "player_eliminated",
	KindGameStart:        "game_start",
	KindCountdown:        "countdown",
	KindPlayerTurn:       "player_turn",
	KindPlaceTile:        "place_tile",
	KindMoveToken:        "move_token",
	KindAddTileToHand:    "add_tile_to_hand",
}

// String returns the snake_case name of the kind
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// KindFromString returns the kind with the given name
func KindFromString(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// Message is implemented by every protocol message
type Message interface {
	Kind() Kind
	isMessage()
}

// Welcome tells a new connection its player id
type Welcome struct {
	ID int `json:"id"`
}

// PlayerJoined announces a connected player
type PlayerJoined struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

// PlayerLeft announces a disconnected player
type PlayerLeft struct {
	ID int `json:"id"`
}

// PlayerEliminated announces a player knocked out of the current game
type PlayerEliminated struct {
	ID int `json:"id"`
}

// GameStart marks the beginning of a game
type GameStart struct{}

// Countdown warns that a game is about to be formed
type Countdown struct{}

// PlayerTurn names the player whose move is awaited
type PlayerTurn struct {
	ID int `json:"id"`
}

// PlaceTile puts a tile from the player's hand on the board
type PlaceTile struct {
	ID       int `json:"id"`
	TileID   int `json:"tile_id"`
	Rotation int `json:"rotation"`
	X        int `json:"x"`
	Y        int `json:"y"`
}

// MoveToken chooses a start point, or reports where a token ended up
type MoveToken struct {
	ID       int `json:"id"`
	X        int `json:"x"`
	Y        int `json:"y"`
	Position int `json:"position"`
}

// AddTileToHand deals one tile to the receiving player
type AddTileToHand struct {
	TileID int `json:"tile_id"`
}

func (Welcome) Kind() Kind          { return KindWelcome }
func (PlayerJoined) Kind() Kind     { return KindPlayerJoined }
func (PlayerLeft) Kind() Kind       { return KindPlayerLeft }
func (PlayerEliminated) Kind() Kind { return KindPlayerEliminated }
func (GameStart) Kind() Kind        { return KindGameStart }
func (Countdown) Kind() Kind        { return KindCountdown }
func (PlayerTurn) Kind() Kind       { return KindPlayerTurn }
func (PlaceTile) Kind() Kind        { return KindPlaceTile }
func (MoveToken) Kind() Kind        { return KindMoveToken }
func (AddTileToHand) Kind() Kind    { return KindAddTileToHand }

func (Welcome) isMessage()          {}
func (PlayerJoined) isMessage()     {}
func (PlayerLeft) isMessage()       {}
func (PlayerEliminated) isMessage() {}
func (GameStart) isMessage()        {}
func (Countdown) isMessage()        {}
func (PlayerTurn) isMessage()       {}
func (PlaceTile) isMessage()        {}
func (MoveToken) isMessage()        {}
func (AddTileToHand) isMessage()    {}

// PlayerID returns the player a message refers to, if any
func PlayerID(m Message) (int, bool) {
	switch m := m.(type) {
	case Welcome:
		return m.ID, true
	case PlayerJoined:
		return m.ID, true
	case PlayerLeft:
		return m.ID, true
	case PlayerEliminated:
		return m.ID, true
	case PlayerTurn:
		return m.ID, true
	case PlaceTile:
		return m.ID, true
	case MoveToken:
		return m.ID, true
	default:
		return 0, false
	}
}
