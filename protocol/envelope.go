package protocol

import (
	"encoding/json"
	"fmt"
)

// Envelope is the JSON form of a message
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ToEnvelope wraps a message for JSON output
func ToEnvelope(m Message) (Envelope, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s: %w", m.Kind(), err)
	}
	return Envelope{Type: m.Kind().String(), Data: data}, nil
}

// ToEnvelopes wraps a list of messages
func ToEnvelopes(msgs []Message) ([]Envelope, error) {
	out := make([]Envelope, 0, len(msgs))
	for _, m := range msgs {
		e, err := ToEnvelope(m)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Message decodes the wrapped message
func (e Envelope) Message() (Message, error) {
	kind, ok := KindFromString(e.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, e.Type)
	}

	var err error
	var msg Message
	switch kind {
	case KindWelcome:
		var m Welcome
		err = unmarshalData(e.Data, &m)
		msg = m
	case KindPlayerJoined:
		var m PlayerJoined
		err = unmarshalData(e.Data, &m)
		msg = m
	case KindPlayerLeft:
		var m PlayerLeft
		err = unmarshalData(e.Data, &m)
		msg = m
	case KindPlayerEliminated:
		var m PlayerEliminated
		err = unmarshalData(e.Data, &m)
		msg = m
	case KindGameStart:
		msg = GameStart{}
	case KindCountdown:
		msg = Countdown{}
	case KindPlayerTurn:
		var m PlayerTurn
		err = unmarshalData(e.Data, &m)
		msg = m
	case KindPlaceTile:
		var m PlaceTile
		err = unmarshalData(e.Data, &m)
		msg = m
	case KindMoveToken:
		var m MoveToken
		err = unmarshalData(e.Data, &m)
		msg = m
	case KindAddTileToHand:
		var m AddTileToHand
		err = unmarshalData(e.Data, &m)
		msg = m
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", e.Type, err)
	}
	return msg, nil
}

// FromEnvelopes unwraps a list of envelopes
func FromEnvelopes(envs []Envelope) ([]Message, error) {
	out := make([]Message, 0, len(envs))
	for _, e := range envs {
		m, err := e.Message()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func unmarshalData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
