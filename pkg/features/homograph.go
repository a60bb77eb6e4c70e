package features

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// IsHomoglyphCandidate reports whether host mixes Latin with Cyrillic or
// Greek letters in a way characteristic of IDN homograph attacks — a pure
// Latin or pure Cyrillic host is fine, but mixing scripts within one name
// is a strong phishing signal. Ported from the original Python service's
// has_mixed_scripts (unicodedata category scan), using Go's per-script
// unicode range tables instead of character-name substring matching.
func IsHomoglyphCandidate(host string) bool {
	normalized := norm.NFC.String(strings.ToLower(host))

	scripts := make(map[string]struct{}, 3)
	for _, r := range normalized {
		if r == '.' || r == '-' || r == '_' || unicode.IsDigit(r) {
			continue
		}
		if !unicode.IsLetter(r) {
			continue
		}
		switch {
		case unicode.Is(unicode.Cyrillic, r):
			scripts["cyrillic"] = struct{}{}
		case unicode.Is(unicode.Greek, r):
			scripts["greek"] = struct{}{}
		case r < unicode.MaxASCII || unicode.Is(unicode.Latin, r):
			scripts["latin"] = struct{}{}
		default:
			scripts["other"] = struct{}{}
		}
	}
	return len(scripts) > 1
}
