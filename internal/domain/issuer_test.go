package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortIssuerName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"strips inc", "MOLINA HEALTHCARE INC", "MOLINA HEALTHCARE"},
		{"strips corp", "NVIDIA CORP", "NVIDIA"},
		{"strips class suffix", "ALPHABET INC CL A", "ALPHABET"},
		{"strips com", "APPLE INC COM", "APPLE"},
		{"strips multiple", "UBER TECHNOLOGIES INC", "UBER"},
		{"plain name untouched", "TESLA", "TESLA"},
		{"falls back when emptied", "CORP", "CORP"},
		{"trailing slash", "BROOKFIELD ASSET MGMT /", "BROOKFIELD ASSET MGMT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShortIssuerName(tt.input))
		})
	}
}

func TestPositionLabel(t *testing.T) {
	ticker := "MSFT"

	assert.Equal(t, "MSFT", PositionLabel(&ticker, "MICROSOFT CORP", OptionNone))
	assert.Equal(t, "MSFT [PUT]", PositionLabel(&ticker, "MICROSOFT CORP", OptionPut))
	assert.Equal(t, "MICROSOFT", PositionLabel(nil, "MICROSOFT CORP", OptionNone))
	assert.Equal(t, "MICROSOFT [CALL]", PositionLabel(nil, "MICROSOFT CORP", OptionCall))
}
