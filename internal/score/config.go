package score

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	ErrDuplicateCategory = errors.New("an instrument of this category already exists")
	ErrUnknownInstrument = errors.New("unknown instrument")
)

// Config is the UI-owned instrument configuration. It enforces at most one
// instrument per category and hands out copies via Snapshot.
type Config struct {
	mu          sync.RWMutex
	instruments []Instrument
}

// NewConfig builds a configuration from instruments, rejecting duplicates.
func NewConfig(instruments ...Instrument) (*Config, error) {
	c := &Config{}
	for _, in := range instruments {
		if err := c.Add(in); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Config) Add(in Instrument) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.instruments {
		if existing.Category == in.Category {
			return fmt.Errorf("%w: %s", ErrDuplicateCategory, in.Category)
		}
	}
	c.instruments = append(c.instruments, in)
	return nil
}

func (c *Config) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownInstrument, id)
	}
	c.instruments = slices.Delete(c.instruments, idx, idx+1)
	return nil
}

// Update applies fn to a copy of the instrument with the given ID and stores
// the result. Category changes that would break uniqueness are rejected.
func (c *Config) Update(id string, fn func(*Instrument)) (Instrument, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.indexOf(id)
	if idx < 0 {
		return Instrument{}, fmt.Errorf("%w: %s", ErrUnknownInstrument, id)
	}
	updated := c.instruments[idx]
	fn(&updated)
	updated.ID = id
	for i, other := range c.instruments {
		if i != idx && other.Category == updated.Category {
			return Instrument{}, fmt.Errorf("%w: %s", ErrDuplicateCategory, updated.Category)
		}
	}
	c.instruments[idx] = updated
	return updated, nil
}

// Replace swaps the whole configuration, as a load from storage does.
func (c *Config) Replace(instruments []Instrument) error {
	next, err := NewConfig(instruments...)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.instruments = next.instruments
	c.mu.Unlock()
	return nil
}

func (c *Config) Get(id string) (Instrument, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx := c.indexOf(id)
	if idx < 0 {
		return Instrument{}, false
	}
	return c.instruments[idx], true
}

// Snapshot returns an independent copy of the instrument list.
func (c *Config) Snapshot() []Instrument {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.instruments)
}

func (c *Config) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.instruments)
}

func (c *Config) indexOf(id string) int {
	return slices.IndexFunc(c.instruments, func(in Instrument) bool { return in.ID == id })
}
