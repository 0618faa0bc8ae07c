package core

import (
	"fmt"
	"regexp"
	"strings"
)

// Totalizer rows have no foreign key into the ledger; they are recognized by
// a machine-parsable marker embedded in the free-text note, plus a trailing
// legacy-mirror status suffix maintained by the sync.

var legadoSuffixRe = regexp.MustCompile(`\s*\[LEGADO:[A-Z_]+\](?:\s*\([^)]*\))*`)

// TotalizerTag builds the note marker for one bank and month bucket.
func TotalizerTag(bank, monthRef string) string {
	return fmt.Sprintf("[CARTAO_TOTALIZADOR:%s:%s]", bank, monthRef)
}

// HasTotalizerTag reports whether the note carries the given marker.
func HasTotalizerTag(note, tag string) bool {
	return strings.Contains(note, tag)
}

// EnsureTag returns the note with exactly one copy of the marker, preserving
// any other free text. Existing copies and legacy status suffixes are
// stripped first.
func EnsureTag(note, tag string) string {
	note = StripLegacyStatus(note)
	note = strings.ReplaceAll(note, tag, "")
	note = strings.Join(strings.Fields(note), " ")
	if note == "" {
		return tag
	}
	return note + " " + tag
}

// StripLegacyStatus removes any [LEGADO:...] suffix from the note.
func StripLegacyStatus(note string) string {
	return strings.TrimSpace(legadoSuffixRe.ReplaceAllString(note, ""))
}

// LegacyStatusSuffix renders the mirror outcome as a note suffix, e.g.
// "[LEGADO:SUCCESS] (appended) (range Legado!A7:K7)".
func LegacyStatusSuffix(status, message, cellRange string) string {
	s := fmt.Sprintf("[LEGADO:%s]", strings.ToUpper(status))
	if strings.TrimSpace(message) != "" {
		s += fmt.Sprintf(" (%s)", message)
	}
	if strings.TrimSpace(cellRange) != "" {
		s += fmt.Sprintf(" (range %s)", cellRange)
	}
	return s
}
