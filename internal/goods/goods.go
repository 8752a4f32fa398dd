// Package goods defines the closed set of tradable good kinds.
package goods

import (
	"errors"
	"fmt"
)

// Kind enumerates the tradable goods. The set is fixed for the lifetime
// of a simulation — dispatch is always an exhaustive switch, never
// string reflection.
type Kind uint8

const (
	Apple Kind = iota
	Chip
	Gold
)

// NumKinds is the total number of good kinds.
const NumKinds = 3

// ErrUnknownKind is returned when a name does not map to a good kind.
var ErrUnknownKind = errors.New("unknown good kind")

// String returns the canonical lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case Apple:
		return "apple"
	case Chip:
		return "chip"
	case Gold:
		return "gold"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind maps a canonical name to its Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "apple":
		return Apple, nil
	case "chip":
		return Chip, nil
	case "gold":
		return Gold, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
}

// Kinds returns all good kinds in declaration order.
func Kinds() [NumKinds]Kind {
	return [NumKinds]Kind{Apple, Chip, Gold}
}
