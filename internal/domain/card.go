// Package domain contains the pure data model for the pricing engine.
// No infrastructure dependencies live here.
package domain

import (
	"fmt"
	"strings"
)

// CardKey identifies a distinct card printing by name and set.
// Uniqueness is case-insensitive and whitespace-normalized.
type CardKey struct {
	Name string `json:"name" msgpack:"name"`
	Set  string `json:"set" msgpack:"set"`
}

// NewCardKey builds a CardKey from raw user input.
func NewCardKey(name, set string) CardKey {
	return CardKey{
		Name: strings.TrimSpace(name),
		Set:  strings.TrimSpace(set),
	}
}

// Validate checks the invariant that a CardKey is never empty.
func (k CardKey) Validate() error {
	if strings.TrimSpace(k.Name) == "" {
		return fmt.Errorf("card key: name must not be empty")
	}
	if strings.TrimSpace(k.Set) == "" {
		return fmt.Errorf("card key: set must not be empty")
	}
	return nil
}

// Normalized returns the canonical lookup form: lowercase with collapsed
// internal whitespace. Two keys that normalize equal identify the same card.
func (k CardKey) Normalized() CardKey {
	return CardKey{
		Name: NormalizeText(k.Name),
		Set:  NormalizeText(k.Set),
	}
}

// Equal reports whether two keys identify the same printing.
func (k CardKey) Equal(other CardKey) bool {
	return k.Normalized() == other.Normalized()
}

func (k CardKey) String() string {
	return fmt.Sprintf("%s (%s)", k.Name, k.Set)
}

// NormalizeText lowercases a string and collapses runs of whitespace into
// single spaces. Used for card keys and keyword matching.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
