package indicators

import "fmt"

// MarshalText renders the direction label
func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText parses a direction label
func (d *Direction) UnmarshalText(b []byte) error {
	for _, c := range []Direction{DirectionUnknown, DirectionFalling, DirectionStable, DirectionRising} {
		if c.String() == string(b) {
			*d = c
			return nil
		}
	}
	return fmt.Errorf("unknown direction %q", b)
}

// MarshalText renders the divergence label
func (d Divergence) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText parses a divergence label
func (d *Divergence) UnmarshalText(b []byte) error {
	for _, c := range []Divergence{NoDivergence, BullishDivergence, BearishDivergence} {
		if c.String() == string(b) {
			*d = c
			return nil
		}
	}
	return fmt.Errorf("unknown divergence %q", b)
}

// MarshalText renders the base label
func (b BasePattern) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// UnmarshalText parses a base label
func (b *BasePattern) UnmarshalText(text []byte) error {
	for _, c := range []BasePattern{NoBase, TightBase, AscendingBase, FlatBase} {
		if c.String() == string(text) {
			*b = c
			return nil
		}
	}
	return fmt.Errorf("unknown base pattern %q", text)
}
