package units

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad test literal " + s)
	}
	return v
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *big.Int
		hasError bool
	}{
		{"whole tokens", "5", wei("5000000000000000000"), false},
		{"fractional", "1.5", wei("1500000000000000000"), false},
		{"leading point", ".25", wei("250000000000000000"), false},
		{"trailing point", "7.", wei("7000000000000000000"), false},
		{"one wei", "0.000000000000000001", big.NewInt(1), false},
		{"zero", "0", big.NewInt(0), false},
		{"padded", "  2.0 ", wei("2000000000000000000"), false},
		{"too many decimals", "0.0000000000000000001", nil, true},
		{"negative", "-1", nil, true},
		{"empty", "", nil, true},
		{"only point", ".", nil, true},
		{"letters", "abc", nil, true},
		{"multiple points", "1.2.3", nil, true},
		{"exponent", "1e18", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 0, tt.expected.Cmp(got), "got %s want %s", got, tt.expected)
		})
	}
}

func TestParseSuiAmount(t *testing.T) {
	got, err := ParseSuiAmount("5")
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000_000), got)

	_, err = ParseSuiAmount("0.0000000001")
	assert.Error(t, err)

	_, err = ParseSuiAmount("18446744074")
	assert.Error(t, err, "exceeds u64 once scaled")
}

func TestToSuiRoundTripsWhenDivisible(t *testing.T) {
	for _, in := range []string{"1000000000", "5000000000000000000", "123456789000000000", "18446744073709551615000000000"} {
		amount := wei(in)
		mist, rem, err := ToSui(amount)
		require.NoError(t, err)
		assert.Zero(t, rem.Sign(), in)
		assert.Equal(t, 0, FromSui(mist).Cmp(amount), in)
	}
}

func TestToSuiTruncates(t *testing.T) {
	tests := []struct {
		in        string
		mist      uint64
		remainder int64
	}{
		{"1", 0, 1},
		{"999999999", 0, 999999999},
		{"1000000001", 1, 1},
		{"1500000000999999999", 1500000000, 999999999},
	}

	for _, tt := range tests {
		mist, rem, err := ToSui(wei(tt.in))
		require.NoError(t, err)
		assert.Equal(t, tt.mist, mist, tt.in)
		assert.Equal(t, tt.remainder, rem.Int64(), tt.in)
		assert.True(t, FromSui(mist).Cmp(wei(tt.in)) < 0, "truncated value must be strictly smaller")
	}
}

func TestToSuiRejectsOverflow(t *testing.T) {
	_, _, err := ToSui(wei("18446744073709551616000000000"))
	assert.Error(t, err)

	_, _, err = ToSui(big.NewInt(-1))
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in       *big.Int
		decimals int
		expected string
	}{
		{wei("5000000000000000000"), EthereumDecimals, "5"},
		{wei("1500000000000000000"), EthereumDecimals, "1.5"},
		{big.NewInt(1), EthereumDecimals, "0.000000000000000001"},
		{big.NewInt(0), EthereumDecimals, "0"},
		{big.NewInt(5_000_000_000), SuiDecimals, "5"},
		{big.NewInt(-250_000_000), SuiDecimals, "-0.25"},
		{nil, SuiDecimals, "0"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Format(tt.in, tt.decimals))
	}

	assert.Equal(t, "10", FormatWei(wei("10000000000000000000")))
	assert.Equal(t, "0.000000001", FormatMist(1))
}
