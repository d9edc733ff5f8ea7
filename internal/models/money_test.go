package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestIsMoney(t *testing.T) {
	tests := []struct {
		amount string
		ok     bool
	}{
		{"0", true},
		{"101", true},
		{"101.5", true},
		{"101.50", true},
		{"101.500", true},
		{"101.004", false},
		{"0.004", false},
		{"999999999999.99", true},
		{"1000000000000", false},
		{"-999999999999.99", true},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			require.Equal(t, tt.ok, IsMoney(decimal.RequireFromString(tt.amount)))
		})
	}
}
