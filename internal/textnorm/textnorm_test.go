package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "accents", input: "Champú Suave", want: "champu suave"},
		{name: "enye is decomposed", input: "Piña", want: "pina"},
		{name: "already normalized", input: "leche", want: "leche"},
		{name: "uppercase with digits", input: "TOMATE 400G", want: "tomate 400g"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestWords(t *testing.T) {
	assert.Equal(t, []string{"tomate", "frito", "bote", "400g"}, Words("Tomate Frito Bote 400g"))
	assert.Equal(t, []string{"aceite", "oliva", "0", "4"}, Words("Aceite (oliva) 0,4"))
	assert.Empty(t, Words(" -- "))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "leche entera", Key("  LECHE ENTERA "))
}

func TestPrefixes(t *testing.T) {
	assert.Equal(t, []string{"to", "tom", "toma", "tomat", "tomate"}, Prefixes("tomate", 2, 8))
	assert.Equal(t, []string{"ma", "man", "mant", "mante", "manteq", "mantequ", "mantequi"}, Prefixes("mantequilla", 2, 8))
	assert.Nil(t, Prefixes("a", 2, 8))
}

func TestIsDigits(t *testing.T) {
	assert.True(t, IsDigits("400"))
	assert.False(t, IsDigits("400g"))
	assert.False(t, IsDigits(""))
}

func TestHasLetter(t *testing.T) {
	assert.True(t, HasLetter("1 L"))
	assert.False(t, HasLetter("12,50 €"))
}
