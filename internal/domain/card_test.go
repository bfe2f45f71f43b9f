package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCardKey(t *testing.T) {
	k := NewCardKey("  Charizard VMAX  ", " Champions Path ")
	assert.Equal(t, "Charizard VMAX", k.Name)
	assert.Equal(t, "Champions Path", k.Set)
}

func TestCardKeyValidate(t *testing.T) {
	tests := []struct {
		name    string
		key     CardKey
		wantErr bool
	}{
		{"valid", CardKey{Name: "Pikachu V", Set: "Vivid Voltage"}, false},
		{"empty name", CardKey{Name: "", Set: "Vivid Voltage"}, true},
		{"whitespace name", CardKey{Name: "   ", Set: "Vivid Voltage"}, true},
		{"empty set", CardKey{Name: "Pikachu V", Set: ""}, true},
		{"both empty", CardKey{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.key.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCardKeyNormalized(t *testing.T) {
	k := CardKey{Name: "Charizard   VMAX", Set: "CHAMPIONS Path"}
	n := k.Normalized()
	assert.Equal(t, "charizard vmax", n.Name)
	assert.Equal(t, "champions path", n.Set)
}

func TestCardKeyEqual(t *testing.T) {
	a := CardKey{Name: "Umbreon VMAX", Set: "Evolving Skies"}
	b := CardKey{Name: "umbreon  vmax", Set: "EVOLVING SKIES"}
	c := CardKey{Name: "Umbreon V", Set: "Evolving Skies"}

	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a))
	assert.False(t, a.Equal(c))
}

func TestCardKeyString(t *testing.T) {
	k := CardKey{Name: "Pikachu V", Set: "Vivid Voltage"}
	assert.Equal(t, "Pikachu V (Vivid Voltage)", k.String())
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Charizard VMAX", "charizard vmax"},
		{"  lots   of\tspace  ", "lots of space"},
		{"", ""},
		{"   ", ""},
		{"already normal", "already normal"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeText(tt.in), "input %q", tt.in)
	}
}
