package repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildFTSQuery(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"сколько потратили на плитку", "сколько:* | потратили:* | на:* | плитку:*"},
		{"Электрика", "электрика:*"},
		{"а б в", ""},
		{"", ""},
		{"budget 2024!", "budget:* | 2024:*"},
		{"что с кухней?", "что:* | кухней:*"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BuildFTSQuery(tt.in), tt.in)
	}
}

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[0.5,-1,0.25]", vectorLiteral([]float32{0.5, -1, 0.25}))
	assert.Equal(t, "[]", vectorLiteral(nil))
}
