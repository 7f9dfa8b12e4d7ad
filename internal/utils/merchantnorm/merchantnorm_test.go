package merchantnorm_test

import (
	"testing"

	"github.com/finagent/finagent/internal/utils/merchantnorm"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases", "STARBUCKS", "starbucks"},
		{"strips hash store number", "STARBUCKS #123", "starbucks"},
		{"strips trailing digit run", "WALMART 4821", "walmart"},
		{"strips store token with digits", "TARGET STORE 0042", "target"},
		{"strips stacked volatile tokens", "SHELL OIL 57442 #9912", "shell oil"},
		{"collapses whitespace", "TRADER   JOE'S", "trader joe's"},
		{"keeps embedded digits", "7-ELEVEN", "7-eleven"},
		{"keeps short digit-free tail", "UBER TRIP", "uber trip"},
		{"keeps single-token digits", "12345", "12345"},
		{"trims surrounding space", "  CHIPOTLE  ", "chipotle"},
		{"strips no. token", "CVS PHARMACY NO.2210", "cvs pharmacy"},
		{"empty input", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, merchantnorm.Normalize(tc.input))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"STARBUCKS #123",
		"SHELL OIL 57442 #9912",
		"TRADER   JOE'S",
		"7-ELEVEN",
		"",
	}
	for _, in := range inputs {
		once := merchantnorm.Normalize(in)
		assert.Equal(t, once, merchantnorm.Normalize(once), "input %q", in)
	}
}
