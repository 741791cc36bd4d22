// Package generate draws concrete values for fields from their FieldSpecs.
//
// A Generator turns a FieldSpec into a lazy sequence of candidate values.
// FULL_SEQUENTIAL walks the admissible values in order from the lower
// bound, INTERESTING yields a handful of boundary values, and RANDOM draws
// without end. Every value a Generator yields satisfies the FieldSpec it
// was drawn from.
package generate

import (
	"fmt"
	"strings"
)

// Mode selects how values are drawn from a FieldSpec.
type Mode string

const (
	ModeFullSequential Mode = "full_sequential"
	ModeInteresting    Mode = "interesting"
	ModeRandom         Mode = "random"
)

// Modes returns every mode in a stable order.
func Modes() []Mode {
	return []Mode{ModeFullSequential, ModeInteresting, ModeRandom}
}

// ParseMode parses a mode name. Names are case-insensitive and accept
// hyphens in place of underscores.
func ParseMode(s string) (Mode, error) {
	normalized := Mode(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	for _, m := range Modes() {
		if normalized == m {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown generation mode %q: must be one of full_sequential, interesting, random", s)
}

// Finite reports whether sequences drawn in this mode can end on their own.
func (m Mode) Finite() bool {
	return m != ModeRandom
}
