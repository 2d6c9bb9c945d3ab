// Package hook lets callers observe and rewrite the runner's work: every
// instruction before it reaches the dispatcher and every finished case.
package hook

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrInterrupt stops the chain. For BeforeInstruction it also skips the
// instruction.
var ErrInterrupt = errors.New("hook interrupted")

// Runner events.
const (
	// BeforeInstruction carries a *runner.InstructionEvent.
	BeforeInstruction = "before_instruction"
	// AfterCase carries a *runner.Result.
	AfterCase = "after_case"
)

// Fn handles one event. It returns the data for the next handler.
type Fn func(ctx context.Context, event string, data any) (any, error)

type entry struct {
	priority int
	name     string
	fn       Fn
}

// Center holds the handlers of every event, lowest priority first.
type Center struct {
	mu    sync.RWMutex
	hooks map[string][]entry
}

func NewCenter() *Center {
	return &Center{hooks: make(map[string][]entry)}
}

// Register adds fn for event. Handlers with equal priority run in
// registration order.
func (c *Center) Register(event string, priority int, name string, fn Fn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := append(c.hooks[event], entry{priority: priority, name: name, fn: fn})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].priority < entries[j].priority
	})
	c.hooks[event] = entries
}

// Unregister removes the handlers called name from event.
func (c *Center) Unregister(event, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks[event] = without(c.hooks[event], name)
}

// UnregisterAll removes the handlers called name from every event.
func (c *Center) UnregisterAll(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for event, entries := range c.hooks {
		c.hooks[event] = without(entries, name)
	}
}

func without(entries []entry, name string) []entry {
	out := entries[:0]
	for _, e := range entries {
		if e.name != name {
			out = append(out, e)
		}
	}
	return out
}

// Has reports whether event has any handler.
func (c *Center) Has(event string) bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.hooks[event]) > 0
}

// Trigger passes data through the handlers of event in order. The first
// error, ErrInterrupt included, stops the chain and is returned. A nil
// Center returns data unchanged.
func (c *Center) Trigger(ctx context.Context, event string, data any) (any, error) {
	if c == nil {
		return data, nil
	}
	c.mu.RLock()
	entries := append([]entry(nil), c.hooks[event]...)
	c.mu.RUnlock()

	for _, e := range entries {
		var err error
		if data, err = e.fn(ctx, event, data); err != nil {
			return data, err
		}
	}
	return data, nil
}
