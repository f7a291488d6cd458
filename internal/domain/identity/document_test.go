package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRUC(t *testing.T) {
	tests := []struct {
		name  string
		ruc   string
		valid bool
	}{
		{"company ruc", "20539782232", true},
		{"company ruc with check 0", "20100070970", true},
		{"person ruc with check 1", "10123456781", true},
		{"wrong check digit", "20539782233", false},
		{"unknown prefix", "30539782232", false},
		{"too short", "2053978223", false},
		{"letters", "2053978223A", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRUC(tt.ruc)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidRUC)
			}
		})
	}
}

func TestRUCCheckDigit(t *testing.T) {
	assert.Equal(t, 2, RUCCheckDigit("2053978223"))
	assert.Equal(t, 0, RUCCheckDigit("2010007097"))
	assert.Equal(t, 1, RUCCheckDigit("1012345678"))
	assert.Equal(t, -1, RUCCheckDigit("123"))
}

func TestValidateDNI(t *testing.T) {
	assert.NoError(t, ValidateDNI("12345678"))
	assert.NoError(t, ValidateDNI("123456781"), "numeric verification digit")
	assert.NoError(t, ValidateDNI("12345678e"), "letter verification digit, any case")
	assert.ErrorIs(t, ValidateDNI("123456782"), ErrInvalidDNI)
	assert.ErrorIs(t, ValidateDNI("1234567"), ErrInvalidDNI)
	assert.ErrorIs(t, ValidateDNI("1234567A"), ErrInvalidDNI)
}

func TestDNICheckDigit(t *testing.T) {
	number, letter, ok := DNICheckDigit("12345678")
	assert.True(t, ok)
	assert.Equal(t, byte('1'), number)
	assert.Equal(t, byte('E'), letter)

	_, _, ok = DNICheckDigit("abc")
	assert.False(t, ok)
}

func TestValidateDocument(t *testing.T) {
	assert.NoError(t, ValidateDocument(DocumentTypeCE, "001234567"))
	assert.ErrorIs(t, ValidateDocument(DocumentTypeCE, "12-345"), ErrInvalidCE)
	assert.ErrorIs(t, ValidateDocument("PASSPORT", "X"), ErrInvalidDocumentType)
	assert.Equal(t, "6", DocumentTypeRUC.SunatCode())
	assert.Equal(t, "1", DocumentTypeDNI.SunatCode())
	assert.True(t, IsCompanyRUC("20539782232"))
	assert.False(t, IsCompanyRUC("10123456781"))
}
