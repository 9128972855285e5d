// Package normalization maps loosely written user input onto enum values.
package normalization

import (
	"fmt"
	"sort"
	"strings"

	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
)

// Normalizer maps case-insensitive, space-trimmed strings to enum values.
type Normalizer[T comparable] struct {
	name         string
	validValues  map[string]T
	defaultValue T
	validKeys    []string
}

// New creates a normalizer for the enum called name. Aliases may map
// several keys to one value.
func New[T comparable](name string, values map[string]T, defaultValue T) *Normalizer[T] {
	n := &Normalizer[T]{
		name:         name,
		validValues:  make(map[string]T, len(values)),
		defaultValue: defaultValue,
		validKeys:    make([]string, 0, len(values)),
	}
	for k, v := range values {
		key := clean(k)
		n.validValues[key] = v
		n.validKeys = append(n.validKeys, key)
	}
	sort.Strings(n.validKeys)
	return n
}

// Normalize returns the value for raw, or the default when unrecognized.
func (n *Normalizer[T]) Normalize(raw string) T {
	if v, ok := n.validValues[clean(raw)]; ok {
		return v
	}
	return n.defaultValue
}

// Parse returns the value for raw or a validation error listing the
// accepted spellings.
func (n *Normalizer[T]) Parse(raw string) (T, error) {
	if v, ok := n.validValues[clean(raw)]; ok {
		return v, nil
	}
	var zero T
	return zero, ferrors.ValidationError(fmt.Sprintf("invalid %s %q, valid options: %s", n.name, raw, strings.Join(n.validKeys, ", "))).
		WithContext(n.name, raw).
		Build()
}

// ValidKeys returns the accepted spellings, sorted.
func (n *Normalizer[T]) ValidKeys() []string {
	return append([]string(nil), n.validKeys...)
}

func clean(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
