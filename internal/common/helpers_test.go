package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPluralizeLira(t *testing.T) {
	cases := []struct {
		n    int64
		want string
	}{
		{1, "лира"},
		{21, "лира"},
		{101, "лира"},
		{2, "лиры"},
		{4, "лиры"},
		{23, "лиры"},
		{0, "лир"},
		{5, "лир"},
		{11, "лир"},
		{12, "лир"},
		{14, "лир"},
		{100, "лир"},
		{111, "лир"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, PluralizeLira(c.n), "n=%d", c.n)
	}
}

func TestGroupDigits(t *testing.T) {
	assert.Equal(t, "0", GroupDigits(0))
	assert.Equal(t, "999", GroupDigits(999))
	assert.Equal(t, "1 000", GroupDigits(1000))
	assert.Equal(t, "1 234 567", GroupDigits(1234567))
	assert.Equal(t, "-50 000", GroupDigits(-50000))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "150 000 лир", FormatAmount(150000))
	assert.Equal(t, "1 лира", FormatAmount(1))
	assert.Equal(t, "22 лиры", FormatAmount(22))
}

func TestGenerateReferralCode(t *testing.T) {
	code := GenerateReferralCode(123456789)
	assert.True(t, strings.HasPrefix(code, "REF456789"), "код: %s", code)
	assert.Len(t, code, 13)

	// Короткий ID дополняется нулями
	short := GenerateReferralCode(42)
	assert.True(t, strings.HasPrefix(short, "REF000042"), "код: %s", short)
}

func TestGenerateGiftCode(t *testing.T) {
	code := GenerateGiftCode()
	assert.Len(t, code, 8)
	for _, r := range code {
		assert.Contains(t, codeAlphabet, string(r))
	}

	// Два подряд сгенерированных кода почти наверняка различаются
	assert.NotEqual(t, code, GenerateGiftCode())
}
