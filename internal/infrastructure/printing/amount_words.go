package printing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	unitWords = [...]string{"CERO", "UNO", "DOS", "TRES", "CUATRO", "CINCO", "SEIS", "SIETE", "OCHO", "NUEVE"}
	teenWords = [...]string{"DIEZ", "ONCE", "DOCE", "TRECE", "CATORCE", "QUINCE",
		"DIECISEIS", "DIECISIETE", "DIECIOCHO", "DIECINUEVE"}
	tensWords = [...]string{"", "", "VEINTE", "TREINTA", "CUARENTA", "CINCUENTA",
		"SESENTA", "SETENTA", "OCHENTA", "NOVENTA"}
	hundredWords = [...]string{"", "CIENTO", "DOSCIENTOS", "TRESCIENTOS", "CUATROCIENTOS", "QUINIENTOS",
		"SEISCIENTOS", "SETECIENTOS", "OCHOCIENTOS", "NOVECIENTOS"}
)

// AmountInWords renders the "SON:" line printed on receipts, e.g.
// 1250.50 -> "SON: MIL DOSCIENTOS CINCUENTA Y 50/100 SOLES".
func AmountInWords(d decimal.Decimal) string {
	d = d.Abs().Round(2)
	whole := d.IntPart()
	cents := d.Sub(decimal.NewFromInt(whole)).Mul(decimal.NewFromInt(100)).IntPart()
	return fmt.Sprintf("SON: %s Y %02d/100 SOLES", NumberToWords(whole), cents)
}

// NumberToWords spells a non-negative integer in upper-case Spanish
func NumberToWords(n int64) string {
	if n <= 0 {
		return unitWords[0]
	}

	var parts []string
	if millions := n / 1_000_000; millions > 0 {
		if millions == 1 {
			parts = append(parts, "UN MILLON")
		} else {
			parts = append(parts, apocope(NumberToWords(millions))+" MILLONES")
		}
	}
	if thousands := (n / 1000) % 1000; thousands > 0 {
		if thousands == 1 {
			parts = append(parts, "MIL")
		} else {
			parts = append(parts, apocope(hundredsToWords(int(thousands)))+" MIL")
		}
	}
	if rest := n % 1000; rest > 0 {
		parts = append(parts, hundredsToWords(int(rest)))
	}
	return strings.Join(parts, " ")
}

func hundredsToWords(n int) string {
	if n == 100 {
		return "CIEN"
	}
	h, r := n/100, n%100
	switch {
	case h == 0:
		return tensToWords(r)
	case r == 0:
		return hundredWords[h]
	default:
		return hundredWords[h] + " " + tensToWords(r)
	}
}

func tensToWords(n int) string {
	switch {
	case n < 10:
		return unitWords[n]
	case n < 20:
		return teenWords[n-10]
	case n == 20:
		return tensWords[2]
	case n < 30:
		return "VEINTI" + unitWords[n-20]
	case n%10 == 0:
		return tensWords[n/10]
	default:
		return tensWords[n/10] + " Y " + unitWords[n%10]
	}
}

// "VEINTIUNO MIL" -> "VEINTIUN MIL"
func apocope(s string) string {
	if strings.HasSuffix(s, "UNO") {
		return strings.TrimSuffix(s, "O")
	}
	return s
}
