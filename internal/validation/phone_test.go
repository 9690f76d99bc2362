package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/camerannonces/internal/apperr"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "local mobile", input: "698123456", want: "237698123456"},
		{name: "already prefixed", input: "237698123456", want: "237698123456"},
		{name: "trunk zero", input: "0698123456", want: "237698123456"},
		{name: "trunk zero before country prefix", input: "0237698123456", want: "237698123456"},
		{name: "international exit prefix", input: "00237698123456", want: "237698123456"},
		{name: "double zero local stays invalid", input: "00698123456", want: "00698123456"},
		{name: "formatted with spaces", input: "+237 6 98 12 34 56", want: "237698123456"},
		{name: "landline", input: "222123456", want: "237222123456"},
		{name: "dashes", input: "698-123-456", want: "237698123456"},
		{name: "unknown prefix untouched", input: "12345", want: "12345"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.input))
		})
	}
}

func TestIsValidPhone(t *testing.T) {
	valid := []string{"698123456", "237698123456", "0698123456", "+237 698 12 34 56"}
	for _, phone := range valid {
		assert.True(t, IsValidPhone(phone), phone)
	}

	invalid := []string{"12345", "", "2376981234", "23769812345678", "abc", "598123456", "00698123456"}
	for _, phone := range invalid {
		assert.False(t, IsValidPhone(phone), phone)
	}
}

func TestValidatePhone(t *testing.T) {
	phone, err := ValidatePhone("0698123456")
	require.NoError(t, err)
	assert.Equal(t, "237698123456", phone)

	_, err = ValidatePhone("   ")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, FieldPhone, apperr.FieldOf(err))

	_, err = ValidatePhone("12345")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "237698123456")
}
