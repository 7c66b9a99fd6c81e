package plate

import (
	"strings"
)

// Format renders the canonical "<region> <number> <suffix>" form.
func Format(p Parsed) string {
	return strings.Join([]string{p.RegionCode, p.Number, p.Suffix}, " ")
}

type Parity string

const (
	Genap  Parity = "Genap"
	Ganjil Parity = "Ganjil"
)

// Category classifies a plate as odd or even by the last digit of its number,
// as used by the odd-even traffic rule.
func Category(p Parsed) Parity {
	if p.Number == "" {
		return ""
	}
	if (p.Number[len(p.Number)-1]-'0')%2 == 0 {
		return Genap
	}
	return Ganjil
}
