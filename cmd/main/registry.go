package main

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"textchain/pkg/markov"
)

// Model bundles a built state space with the chain that generates from it.
// The chain owns a random source, so generation is serialized per model.
type Model struct {
	Name      string
	Order     int
	CreatedAt time.Time

	space      *markov.StateSpace
	chain      *markov.Chain
	tokenStats markov.TokenStats

	genMu sync.Mutex
}

// ModelInfo is the JSON representation of a registered model.
type ModelInfo struct {
	Name      string            `json:"name"`
	Order     int               `json:"order"`
	CreatedAt time.Time         `json:"created_at"`
	Tokens    markov.TokenStats `json:"tokens"`
	States    markov.StateStats `json:"states"`
}

// Generate produces a sequence of exactly length tokens from the model,
// reporting whether the prefix had to be repaired.
func (m *Model) Generate(length int, prefix string) (string, bool, error) {
	m.genMu.Lock()
	defer m.genMu.Unlock()

	repaired, fallback := m.chain.CheckPrefix(prefix)
	sequence, err := m.chain.GenerateSequence(length, repaired)
	return sequence, fallback, err
}

// Next samples a single next token for the given prefix.
func (m *Model) Next(prefix string) (string, bool, error) {
	m.genMu.Lock()
	defer m.genMu.Unlock()

	repaired, fallback := m.chain.CheckPrefix(prefix)
	token, err := m.chain.NextElement(repaired)
	return token, fallback, err
}

// Info returns the model's JSON representation with current stats.
func (m *Model) Info() ModelInfo {
	return ModelInfo{
		Name:      m.Name,
		Order:     m.Order,
		CreatedAt: m.CreatedAt,
		Tokens:    m.tokenStats,
		States:    m.space.Stats(),
	}
}

// ModelRegistry holds the named in-memory models behind a read-write lock.
// Models live for the process lifetime only.
type ModelRegistry struct {
	mu     sync.RWMutex
	models map[string]*Model
}

// NewModelRegistry creates an empty registry.
func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{models: make(map[string]*Model)}
}

// Add builds a model from corpus text and registers it under name. It fails
// if the name is already taken or construction fails.
func (r *ModelRegistry) Add(name string, order int, text string) (*Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.models[name]; exists {
		return nil, fmt.Errorf("model %q already exists", name)
	}

	tok, err := markov.NewTextTokens(text)
	if err != nil {
		return nil, err
	}
	space, err := markov.NewStateSpace(tok, order)
	if err != nil {
		return nil, err
	}

	model := &Model{
		Name:       name,
		Order:      order,
		CreatedAt:  time.Now().UTC(),
		space:      space,
		chain:      markov.NewChain(space),
		tokenStats: tok.Stats(),
	}
	r.models[name] = model
	return model, nil
}

// Get returns the model registered under name, if any.
func (r *ModelRegistry) Get(name string) (*Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	model, ok := r.models[name]
	return model, ok
}

// Remove deletes the model registered under name, reporting whether it existed.
func (r *ModelRegistry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[name]; !ok {
		return false
	}
	delete(r.models, name)
	return true
}

// List returns info for all registered models, sorted by name.
func (r *ModelRegistry) List() []ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ModelInfo, 0, len(r.models))
	for _, model := range r.models {
		infos = append(infos, model.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
