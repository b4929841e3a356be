package grid

import (
	"fmt"
	"strings"
)

// Component names one of the six field arrays.
type Component int

const (
	Ex Component = iota
	Ey
	Ez
	Hx
	Hy
	Hz
)

// Components lists all six in storage order.
var Components = [...]Component{Ex, Ey, Ez, Hx, Hy, Hz}

var componentNames = [...]string{"ex", "ey", "ez", "hx", "hy", "hz"}

func (c Component) String() string {
	if c < Ex || c > Hz {
		return fmt.Sprintf("component(%d)", int(c))
	}
	return componentNames[c]
}

// Electric reports whether c is Ex, Ey or Ez.
func (c Component) Electric() bool { return c >= Ex && c <= Ez }

// Valid reports whether c is one of the six components.
func (c Component) Valid() bool { return c >= Ex && c <= Hz }

// ParseComponent accepts "ex".."hz", case-insensitive.
func ParseComponent(s string) (Component, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range componentNames {
		if n == s {
			return Component(i), nil
		}
	}
	return 0, fmt.Errorf("unknown field component %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Component) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid field component %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Component) UnmarshalText(b []byte) error {
	v, err := ParseComponent(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
