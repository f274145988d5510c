package whitelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestIsWhitelisted(t *testing.T) {
	checker := NewChecker([]string{" Example.COM ", "@corp.net", "", "example.com"}, zaptest.NewLogger(t))

	tests := []struct {
		from string
		want bool
	}{
		{"alice@example.com", true},
		{"ALICE@EXAMPLE.COM", true},
		{"bob@mail.example.com", true},
		{"carol@corp.net", true},
		{"dave@notexample.com", false},
		{"eve@example.com.evil.org", false},
		{"no-at-sign", false},
		{"trailing@", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			assert.Equal(t, tt.want, checker.IsWhitelisted(tt.from))
		})
	}
}

func TestEmptyChecker(t *testing.T) {
	assert.False(t, NewChecker(nil, nil).IsWhitelisted("a@example.com"))

	var nilChecker *Checker
	assert.False(t, nilChecker.IsWhitelisted("a@example.com"))
}
