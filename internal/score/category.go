package score

import (
	"fmt"
	"strings"
)

// Category is one of the four fixed instrument classes.
type Category string

const (
	Percussion Category = "Percussion"
	Bass       Category = "Bass"
	Lead       Category = "Lead"
	Pad        Category = "Pad"
)

// Categories lists every category in display order.
var Categories = []Category{Percussion, Bass, Lead, Pad}

var categoryAliases = map[string]Category{
	"percussion": Percussion,
	"drums":      Percussion,
	"drum":       Percussion,
	"kit":        Percussion,
	"bass":       Bass,
	"lead":       Lead,
	"synth":      Lead,
	"melody":     Lead,
	"pad":        Pad,
	"pads":       Pad,
}

// ParseCategory resolves a track or instrument name to a category.
// Matching is case-insensitive and accepts a few common aliases.
func ParseCategory(name string) (Category, bool) {
	c, ok := categoryAliases[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

func (c Category) Valid() bool {
	switch c {
	case Percussion, Bass, Lead, Pad:
		return true
	}
	return false
}

// UnmarshalText accepts aliases so persisted and generated data can use either form.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, ok := ParseCategory(string(text))
	if !ok {
		return fmt.Errorf("unknown instrument category %q", string(text))
	}
	*c = parsed
	return nil
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c), nil
}
