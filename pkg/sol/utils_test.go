package sol

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSolToLamports(t *testing.T) {
	validCases := map[string]uint64{
		"0.000000001": 1,
		"0.000000002": 2,
		"0.000000020": 20,
		"0.000002000": 2000,
		"0.020000000": 2e7,
		"0.200000000": 2e8,
		"1.000000000": 1e9,
		"1.500000000": 1e9 + 1e9/2,
		"1":           1e9,
		"2":           2e9,
		// Total supply is ~590 million SOL
		"590000000": 590_000_000 * 1e9,
		"9974.999000000": 9974999000000,
	}
	for in, expected := range validCases {
		actual, err := StrToLamports(in)
		assert.NoError(t, err)
		assert.Equal(t, expected, actual)

		if strings.Contains(in, ".") {
			assert.Equal(t, in, StrFromLamports(expected))
		} else {
			assert.Equal(t, fmt.Sprintf("%s.000000000", in), StrFromLamports(expected))
		}
	}

	// Ensure odd padding works.
	validCases = map[string]uint64{
		"0.5":      5e8,
		"0.05":     5e7,
		"1.000":    1e9,
		"1.25":     1e9 + 25e7,
		" 3 ":      3e9,
		"18446744073.709551615": math.MaxUint64,
	}
	for in, expected := range validCases {
		actual, err := StrToLamports(in)
		assert.NoError(t, err)
		assert.Equal(t, expected, actual)
	}

	invalidCases := []string{
		"",
		"0.0000000001",
		"18446744073.709551616",
		"999999999999",
		"abc",
		"-1",
		"10.-1",
		"10.0.0",
		".5",
		"5.",
	}
	for _, in := range invalidCases {
		actual, err := StrToLamports(in)
		assert.Error(t, err, in)
		assert.Equal(t, uint64(0), actual)
	}
}

func TestDisplayFromLamports(t *testing.T) {
	assert.Equal(t, "0", DisplayFromLamports(0))
	assert.Equal(t, "1", DisplayFromLamports(1e9))
	assert.Equal(t, "1.5", DisplayFromLamports(15e8))
	assert.Equal(t, "0.000000001", DisplayFromLamports(1))
	assert.Equal(t, "12.34", DisplayFromLamports(12_340_000_000))
}
