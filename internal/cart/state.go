package cart

import (
	"encoding/json"
	"errors"
	"fmt"
)

// StateVersion is written into every persisted blob.
const StateVersion = 1

// ErrUnsupportedVersion is returned when a blob was written by a newer release.
var ErrUnsupportedVersion = errors.New("unsupported cart state version")

// State is the persisted form of a cart.
type State struct {
	Version int    `json:"version"`
	Items   []Item `json:"items"`
}

// legacyEnvelope is the browser storage shape ({"state":{"items":[...]},"version":0})
// carts were kept in before they moved server side.
type legacyEnvelope struct {
	State *struct {
		Items []Item `json:"items"`
	} `json:"state"`
	Version int `json:"version"`
}

// EncodeState serializes state with the current version marker.
func EncodeState(state State) ([]byte, error) {
	state.Version = StateVersion
	if state.Items == nil {
		state.Items = []Item{}
	}
	return json.Marshal(state)
}

// DecodeState parses a persisted blob. It accepts the current format and the
// legacy browser envelope.
func DecodeState(raw []byte) (*State, error) {
	var probe legacyEnvelope
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("decode cart state: %w", err)
	}
	if probe.State != nil {
		return &State{Version: StateVersion, Items: probe.State.Items}, nil
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode cart state: %w", err)
	}
	if state.Version > StateVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, state.Version)
	}
	state.Version = StateVersion
	return &state, nil
}
