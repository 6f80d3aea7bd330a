// Package settlement moves native funds between the C, X and P ledgers by
// pairing an export on the source ledger with an import on the destination.
package settlement

import (
	"fmt"
	"strings"

	"github.com/iJaack/evalanche/pkg/types"
)

// Direction is an ordered pair of distinct ledgers.
type Direction struct {
	From types.Chain
	To   types.Chain
}

// Directions returns the six valid directions.
func Directions() []Direction {
	chains := []types.Chain{types.ChainC, types.ChainX, types.ChainP}
	dirs := make([]Direction, 0, 6)
	for _, from := range chains {
		for _, to := range chains {
			if from != to {
				dirs = append(dirs, Direction{From: from, To: to})
			}
		}
	}
	return dirs
}

// ParseDirection parses the "C->X" form produced by String.
func ParseDirection(s string) (Direction, error) {
	from, to, ok := strings.Cut(s, "->")
	if !ok {
		return Direction{}, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
	d := Direction{
		From: types.Chain(strings.ToUpper(strings.TrimSpace(from))),
		To:   types.Chain(strings.ToUpper(strings.TrimSpace(to))),
	}
	if err := d.Validate(); err != nil {
		return Direction{}, err
	}
	return d, nil
}

// Validate rejects unknown ledgers and self-pairs.
func (d Direction) Validate() error {
	if !d.From.Valid() {
		return fmt.Errorf("%w: unknown source chain %q", ErrInvalidDirection, d.From)
	}
	if !d.To.Valid() {
		return fmt.Errorf("%w: unknown destination chain %q", ErrInvalidDirection, d.To)
	}
	if d.From == d.To {
		return fmt.Errorf("%w: %s to itself", ErrInvalidDirection, d.From)
	}
	return nil
}

func (d Direction) String() string {
	return string(d.From) + "->" + string(d.To)
}

// MarshalText encodes the direction as "C->X".
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes the "C->X" form.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
