package goods_test

import (
	"errors"
	"testing"

	"github.com/caio-almeid4/marketplace-simulation/internal/goods"
)

func TestParseKind(t *testing.T) {
	cases := []struct {
		name string
		want goods.Kind
		ok   bool
	}{
		{"apple", goods.Apple, true},
		{"chip", goods.Chip, true},
		{"gold", goods.Gold, true},
		{"silver", 0, false},
		{"", 0, false},
		{"Apple", 0, false},
	}

	for _, tc := range cases {
		got, err := goods.ParseKind(tc.name)
		if tc.ok {
			if err != nil {
				t.Errorf("ParseKind(%q) returned error: %v", tc.name, err)
			}
			if got != tc.want {
				t.Errorf("ParseKind(%q) = %v, want %v", tc.name, got, tc.want)
			}
			continue
		}
		if !errors.Is(err, goods.ErrUnknownKind) {
			t.Errorf("ParseKind(%q) error = %v, want ErrUnknownKind", tc.name, err)
		}
	}
}

func TestKindStringRoundTrip(t *testing.T) {
	for _, k := range goods.Kinds() {
		parsed, err := goods.ParseKind(k.String())
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", k.String(), err)
		}
		if parsed != k {
			t.Errorf("round trip for %v gave %v", k, parsed)
		}
	}
}
