package protocol

import (
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// MaxFrameSize bounds the body length of a single frame
const MaxFrameSize = 4096

// Protocol errors
var (
	ErrMalformed     = errors.New("malformed frame")
	ErrFrameTooLarge = errors.New("frame too large")
	ErrUnknownKind   = errors.New("unknown message kind")
)

const (
	fieldKind     protowire.Number = 1
	fieldID       protowire.Number = 2
	fieldTile     protowire.Number = 3
	fieldRotation protowire.Number = 4
	fieldX        protowire.Number = 5
	fieldY        protowire.Number = 6
	fieldPoint    protowire.Number = 7
	fieldName     protowire.Number = 8
)

// Encode returns the framed wire form of a message
func Encode(m Message) []byte {
	body := encodeBody(m)
	frame := make([]byte, 0, protowire.SizeVarint(uint64(len(body)))+len(body))
	frame = protowire.AppendVarint(frame, uint64(len(body)))
	return append(frame, body...)
}

// EncodeAll returns the frames of msgs written back to back
func EncodeAll(msgs []Message) []byte {
	var out []byte
	for _, m := range msgs {
		out = append(out, Encode(m)...)
	}
	return out
}

// Decode reads one frame from the start of buf. It returns the message and
// the number of bytes consumed; zero bytes and a nil error mean the frame is
// incomplete. When the body of a complete frame cannot be decoded, the frame
// length is still reported so the caller can skip it.
func Decode(buf []byte) (Message, int, error) {
	size, n := protowire.ConsumeVarint(buf)
	if n < 0 {
		if errors.Is(protowire.ParseError(n), io.ErrUnexpectedEOF) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("%w: bad length prefix", ErrMalformed)
	}
	if size > MaxFrameSize {
		return nil, 0, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}

	end := n + int(size)
	if len(buf) < end {
		return nil, 0, nil
	}

	msg, err := decodeBody(buf[n:end])
	if err != nil {
		return nil, end, err
	}
	return msg, end, nil
}

func encodeBody(m Message) []byte {
	b := appendInt(nil, fieldKind, int(m.Kind()))

	switch m := m.(type) {
	case Welcome:
		b = appendInt(b, fieldID, m.ID)
	case PlayerJoined:
		b = appendInt(b, fieldID, m.ID)
		b = protowire.AppendTag(b, fieldName, protowire.BytesType)
		b = protowire.AppendString(b, m.Name)
	case PlayerLeft:
		b = appendInt(b, fieldID, m.ID)
	case PlayerEliminated:
		b = appendInt(b, fieldID, m.ID)
	case PlayerTurn:
		b = appendInt(b, fieldID, m.ID)
	case PlaceTile:
		b = appendInt(b, fieldID, m.ID)
		b = appendInt(b, fieldTile, m.TileID)
		b = appendInt(b, fieldRotation, m.Rotation)
		b = appendInt(b, fieldX, m.X)
		b = appendInt(b, fieldY, m.Y)
	case MoveToken:
		b = appendInt(b, fieldID, m.ID)
		b = appendInt(b, fieldX, m.X)
		b = appendInt(b, fieldY, m.Y)
		b = appendInt(b, fieldPoint, m.Position)
	case AddTileToHand:
		b = appendInt(b, fieldTile, m.TileID)
	}

	return b
}

func appendInt(b []byte, num protowire.Number, v int) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(int64(v)))
}

type fields struct {
	kind     Kind
	id       int
	tile     int
	rotation int
	x        int
	y        int
	point    int
	name     string
}

func decodeBody(b []byte) (Message, error) {
	var f fields
	haveKind := false

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldName && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			f.name = v
			b = b[n:]
		case typ == protowire.VarintType && num >= fieldKind && num <= fieldPoint:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			f.set(num, int(int64(v)))
			if num == fieldKind {
				haveKind = true
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if !haveKind {
		return nil, fmt.Errorf("%w: missing kind", ErrMalformed)
	}
	return f.message()
}

func (f *fields) set(num protowire.Number, v int) {
	switch num {
	case fieldKind:
		f.kind = Kind(v)
	case fieldID:
		f.id = v
	case fieldTile:
		f.tile = v
	case fieldRotation:
		f.rotation = v
	case fieldX:
		f.x = v
	case fieldY:
		f.y = v
	case fieldPoint:
		f.point = v
	}
}

func (f *fields) message() (Message, error) {
	switch f.kind {
	case KindWelcome:
		return Welcome{ID: f.id}, nil
	case KindPlayerJoined:
		return PlayerJoined{Name: f.name, ID: f.id}, nil
	case KindPlayerLeft:
		return PlayerLeft{ID: f.id}, nil
	case KindPlayerEliminated:
		return PlayerEliminated{ID: f.id}, nil
	case KindGameStart:
		return GameStart{}, nil
	case KindCountdown:
		return Countdown{}, nil
	case KindPlayerTurn:
		return PlayerTurn{ID: f.id}, nil
	case KindPlaceTile:
		return PlaceTile{ID: f.id, TileID: f.tile, Rotation: f.rotation, X: f.x, Y: f.y}, nil
	case KindMoveToken:
		return MoveToken{ID: f.id, X: f.x, Y: f.y, Position: f.point}, nil
	case KindAddTileToHand:
		return AddTileToHand{TileID: f.tile}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, f.kind)
	}
}
