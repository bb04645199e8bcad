package platoon

import "strings"

// Selector decides whether a vehicle type is eligible for platoon control.
type Selector interface {
	Select(typeName string) bool
}

// SelectorFunc adapts a function to the Selector interface.
type SelectorFunc func(typeName string) bool

func (f SelectorFunc) Select(typeName string) bool { return f(typeName) }

// SubstringSelector selects types containing any of its substrings.
// Matching is case-sensitive; an empty selector matches every type.
type SubstringSelector []string

func (s SubstringSelector) Select(typeName string) bool {
	if len(s) == 0 {
		return true
	}
	for _, sub := range s {
		if strings.Contains(typeName, sub) {
			return true
		}
	}
	return false
}
