package core

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeDescription strips diacritics, collapses whitespace and
// upper-cases, so that "Pão  de açúcar" and "PAO DE ACUCAR" key alike.
func NormalizeDescription(s string) string {
	if stripped, _, err := transform.String(stripMarks, s); err == nil {
		s = stripped
	}
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToUpper(s)
}

// TxKey derives the canonical fingerprint of a transaction from card, date,
// normalized description, amount and installment position. The key is
// deterministic; identical real-world duplicate purchases on the same day
// necessarily collide, so callers must tolerate N-to-N key collisions.
func TxKey(cardID int64, date Date, description string, amount Money, installmentTotal, installmentNum int) string {
	if installmentTotal <= 0 {
		installmentTotal = 1
	}
	if installmentNum <= 0 {
		installmentNum = 1
	}
	return fmt.Sprintf("%d|%s|%s|%s|%d/%d",
		cardID,
		date.String(),
		NormalizeDescription(description),
		amount.DecimalString(),
		installmentNum,
		installmentTotal,
	)
}
