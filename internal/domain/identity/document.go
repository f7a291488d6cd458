package identity

import (
	"strings"

	"github.com/induservicios/backend/internal/domain/shared"
)

// DocumentType identifies a Peruvian identity document
type DocumentType string

const (
	DocumentTypeDNI DocumentType = "DNI"
	DocumentTypeRUC DocumentType = "RUC"
	DocumentTypeCE  DocumentType = "CE"
)

// SUNAT catalog 06 codes, used in receipt QR payloads
const (
	sunatCodeDNI  = "1"
	sunatCodeCE   = "4"
	sunatCodeRUC  = "6"
	sunatCodeNone = "0"
)

// IsValid reports whether the document type is known
func (d DocumentType) IsValid() bool {
	switch d {
	case DocumentTypeDNI, DocumentTypeRUC, DocumentTypeCE:
		return true
	}
	return false
}

// SunatCode returns the SUNAT catalog 06 code for the document type
func (d DocumentType) SunatCode() string {
	switch d {
	case DocumentTypeDNI:
		return sunatCodeDNI
	case DocumentTypeRUC:
		return sunatCodeRUC
	case DocumentTypeCE:
		return sunatCodeCE
	}
	return sunatCodeNone
}

var (
	ErrInvalidRUC          = shared.NewDomainError("INVALID_RUC", "RUC must have 11 digits and a valid check digit")
	ErrInvalidDNI          = shared.NewDomainError("INVALID_DNI", "DNI must have 8 digits")
	ErrInvalidCE           = shared.NewDomainError("INVALID_CE", "Carné de extranjería must have 9 to 12 alphanumeric characters")
	ErrInvalidDocumentType = shared.NewDomainError("INVALID_DOCUMENT_TYPE", "Document type must be DNI, RUC or CE")
)

var (
	rucWeights = []int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}
	dniWeights = []int{3, 2, 7, 6, 5, 4, 3, 2}

	dniCheckNumbers = []byte("67890112345")
	dniCheckLetters = []byte("KABCDEFGHIJ")

	rucPrefixes = []string{"10", "15", "16", "17", "20"}
)

// ValidateDocument validates a document number for its type
func ValidateDocument(docType DocumentType, number string) error {
	switch docType {
	case DocumentTypeDNI:
		return ValidateDNI(number)
	case DocumentTypeRUC:
		return ValidateRUC(number)
	case DocumentTypeCE:
		return ValidateCE(number)
	}
	return ErrInvalidDocumentType
}

// ValidateRUC checks length, taxpayer prefix and the mod-11 check digit
func ValidateRUC(ruc string) error {
	if len(ruc) != 11 || !isDigits(ruc) {
		return ErrInvalidRUC
	}
	if !hasRUCPrefix(ruc) {
		return ErrInvalidRUC
	}
	if RUCCheckDigit(ruc[:10]) != int(ruc[10]-'0') {
		return ErrInvalidRUC
	}
	return nil
}

// RUCCheckDigit computes the check digit for the first ten RUC digits.
// Returns -1 when the input is not ten digits.
func RUCCheckDigit(base string) int {
	if len(base) != 10 || !isDigits(base) {
		return -1
	}
	sum := 0
	for i, w := range rucWeights {
		sum += int(base[i]-'0') * w
	}
	check := 11 - sum%11
	switch check {
	case 10:
		return 0
	case 11:
		return 1
	}
	return check
}

// IsCompanyRUC reports whether the RUC belongs to a legal entity (prefix 20)
func IsCompanyRUC(ruc string) bool {
	return strings.HasPrefix(ruc, "20")
}

// ValidateDNI checks that a DNI is exactly 8 digits.
// A ninth character is accepted as the printed verification digit and checked.
func ValidateDNI(dni string) error {
	switch len(dni) {
	case 8:
		if !isDigits(dni) {
			return ErrInvalidDNI
		}
		return nil
	case 9:
		if !isDigits(dni[:8]) {
			return ErrInvalidDNI
		}
		number, letter, ok := DNICheckDigit(dni[:8])
		c := strings.ToUpper(dni[8:])[0]
		if !ok || (c != number && c != letter) {
			return ErrInvalidDNI
		}
		return nil
	}
	return ErrInvalidDNI
}

// DNICheckDigit returns the numeric and letter forms of the DNI verification digit
func DNICheckDigit(dni string) (number byte, letter byte, ok bool) {
	if len(dni) != 8 || !isDigits(dni) {
		return 0, 0, false
	}
	sum := 0
	for i, w := range dniWeights {
		sum += int(dni[i]-'0') * w
	}
	idx := 11 - sum%11
	if idx == 11 {
		idx = 0
	}
	return dniCheckNumbers[idx], dniCheckLetters[idx], true
}

// ValidateCE checks a carné de extranjería number
func ValidateCE(ce string) error {
	if len(ce) < 9 || len(ce) > 12 {
		return ErrInvalidCE
	}
	for i := 0; i < len(ce); i++ {
		c := ce[i]
		if !(c >= '0' && c <= '9') && !(c >= 'A' && c <= 'Z') && !(c >= 'a' && c <= 'z') {
			return ErrInvalidCE
		}
	}
	return nil
}

func hasRUCPrefix(ruc string) bool {
	for _, p := range rucPrefixes {
		if strings.HasPrefix(ruc, p) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
