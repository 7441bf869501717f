package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ana", "Ana"},
		{"  BRUNO  ", "Bruno"},
		{"carla   maria", "Carla Maria"},
		{"\tdana\n", "Dana"},
		{"josé LUIS", "José Luis"},
		{"ÁLVARO", "Álvaro"},
		{"o'neil", "O'neil"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := NormalizeName(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, NormalizeName(got), "normalizing twice should not change the name")
		})
	}
}

func TestSameName(t *testing.T) {
	assert.True(t, sameName(" Ana ", "ana"))
	assert.True(t, sameName("BRUNO", "Bruno"))
	assert.False(t, sameName("Ana Maria", "Ana  Maria"))
	assert.False(t, sameName("Ana", "Anabel"))
}
