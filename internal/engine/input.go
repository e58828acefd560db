package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrUnknownInput   = errors.New("engine: unknown input kind")
	ErrDuplicateInput = errors.New("engine: input kind already registered")
)

// Input is an external command applied at the start of a tick, in order.
// Implementations must be deterministic given the world they are applied to.
type Input interface {
	Kind() string
	Apply(w *World) error
}

// Envelope is the wire form of an Input
type Envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// InputCodec maps kind names to input constructors
type InputCodec struct {
	mu        sync.RWMutex
	factories map[string]func() Input
}

func NewInputCodec() *InputCodec {
	return &InputCodec{factories: make(map[string]func() Input)}
}

// Register adds a kind. factory must return a pointer that json can decode into.
func (c *InputCodec) Register(kind string, factory func() Input) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.factories[kind]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateInput, kind)
	}
	c.factories[kind] = factory
	return nil
}

// Kinds returns the registered kind names, sorted
func (c *InputCodec) Kinds() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	kinds := make([]string, 0, len(c.factories))
	for k := range c.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func (c *InputCodec) Encode(inputs []Input) ([]Envelope, error) {
	out := make([]Envelope, 0, len(inputs))
	for _, in := range inputs {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode input %q: %w", in.Kind(), err)
		}
		out = append(out, Envelope{Kind: in.Kind(), Payload: payload})
	}
	return out, nil
}

func (c *InputCodec) Decode(envelopes []Envelope) ([]Input, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Input, 0, len(envelopes))
	for i, env := range envelopes {
		factory, ok := c.factories[env.Kind]
		if !ok {
			return nil, fmt.Errorf("%w: %q at %d", ErrUnknownInput, env.Kind, i)
		}
		in := factory()
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, in); err != nil {
				return nil, fmt.Errorf("decode input %q at %d: %w", env.Kind, i, err)
			}
		}
		out = append(out, in)
	}
	return out, nil
}

// EncodeJSON encodes inputs as a JSON array of envelopes
func (c *InputCodec) EncodeJSON(inputs []Input) ([]byte, error) {
	envs, err := c.Encode(inputs)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envs)
}

// DecodeJSON decodes a JSON array of envelopes
func (c *InputCodec) DecodeJSON(data []byte) ([]Input, error) {
	var envs []Envelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return nil, fmt.Errorf("decode envelopes: %w", err)
	}
	return c.Decode(envs)
}
