package knowledge

import (
	"fmt"
	"strings"
)

// Tier is the hierarchical level of a scope. Higher values are more specific.
type Tier int

const (
	TierGeneral Tier = iota
	TierProduct
	TierGroup
	TierProject
)

var tierNames = map[Tier]string{
	TierGeneral: "GENERAL",
	TierProduct: "PRODUCT",
	TierGroup:   "GROUP",
	TierProject: "PROJECT",
}

// String returns the canonical upper-case tier name.
func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// Valid reports whether t is one of the four defined tiers.
func (t Tier) Valid() bool {
	_, ok := tierNames[t]
	return ok
}

// ParseTier parses a tier name case-insensitively.
func ParseTier(s string) (Tier, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GENERAL":
		return TierGeneral, nil
	case "PRODUCT":
		return TierProduct, nil
	case "GROUP":
		return TierGroup, nil
	case "PROJECT":
		return TierProject, nil
	}
	return 0, fmt.Errorf("unknown tier %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid tier %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
