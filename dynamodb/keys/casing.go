package keys

import (
	"fmt"
	"strings"
)

// Casing controls how a finished key string is cased before it is stored.
type Casing string

const (
	// CasingDefault behaves as CasingLower.
	CasingDefault Casing = ""
	CasingLower   Casing = "lower"
	CasingUpper   Casing = "upper"
	CasingNone    Casing = "none"
)

func (c Casing) Validate() error {
	switch c {
	case CasingDefault, CasingLower, CasingUpper, CasingNone:
		return nil
	}
	return fmt.Errorf("unknown key casing %q", c)
}

// Normalize maps CasingDefault to the effective casing.
func (c Casing) Normalize() Casing {
	if c == CasingDefault {
		return CasingLower
	}
	return c
}

func (c Casing) Apply(s string) string {
	switch c.Normalize() {
	case CasingLower:
		return strings.ToLower(s)
	case CasingUpper:
		return strings.ToUpper(s)
	}
	return s
}
