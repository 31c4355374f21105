package usecases

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"punctuation", "Hello,   world!", "Hello world"},
		{"isolated punctuation", "  a - b  ", "a b"},
		{"newlines and tabs", "line one\n\nline\ttwo", "line one line two"},
		{"unicode letters", "Café, déjà vu.", "Café déjà vu"},
		{"digits kept", "Version 2.0 released in 2024", "Version 20 released in 2024"},
		{"underscore dropped", "snake_case_name", "snakecasename"},
		{"only punctuation", "?!... ---", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Paris is the capital of France.",
		"  lots   of\n\n space \t here ",
		"a - b -- c --- d",
		"émoji 🎉 and symbols © ® ™",
		"mixed: 1, 2, 3; done!",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}
