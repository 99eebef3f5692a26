// Package strategy defines the Strategy interface for signal generators and
// provides a Registry for looking them up by name.
package strategy

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownStrategy is returned when a name has no registered factory.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy turns a price series into a position-signal series.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Signals returns one signal per price (+1 long, 0 flat, -1 short).
	// Signal i may depend only on prices[0..i].
	Signals(prices []float64) ([]int, error)
}

// Params carries integer tuning parameters such as window lengths.
type Params map[string]int

// Int returns the value for key, or def when the key is absent.
func (p Params) Int(key string, def int) int {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Factory builds a Strategy from caller-supplied parameters.
type Factory func(Params) (Strategy, error)

// Registry holds a named collection of strategy factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory under name, replacing any previous one.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// New builds the named strategy with the given parameters.
func (r *Registry) New(name string, params Params) (Strategy, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return f(params)
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
