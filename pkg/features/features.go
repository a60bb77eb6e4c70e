// Package features turns a normalized URL into the fixed-width numeric
// feature vector the gradient-boosted classifier expects. The feature set,
// order, and defaults are frozen in schema.go; Extract must never reorder
// or resize what it returns.
package features

import (
	"strings"
	"unicode"

	"github.com/qrshield/urlscan/pkg/normalizeurl"
	"github.com/qrshield/urlscan/pkg/redirect"
	"github.com/qrshield/urlscan/pkg/regexcache"
	"github.com/qrshield/urlscan/pkg/strutil"
	"github.com/qrshield/urlscan/internal/hexutil"
)

// FeatureVector is the ordered (name, value) pairing Extract produces.
// Names is always Schema(); Values always has the same length.
type FeatureVector struct {
	Names  []string  `json:"names"`
	Values []float64 `json:"values"`
}

// noPort is the sentinel value for "no explicit port" features.
const noPort = -1

var percentEncodedSet = buildPercentSet()
var doublePercentEncodedSet = buildDoublePercentSet()

func buildPercentSet() map[string]struct{} {
	set := make(map[string]struct{}, 512)
	for _, s := range hexutil.URLEncoded {
		set[s] = struct{}{}
	}
	for _, s := range hexutil.URLEncodedLower {
		set[s] = struct{}{}
	}
	return set
}

func buildDoublePercentSet() map[string]struct{} {
	set := make(map[string]struct{}, 256)
	for _, s := range hexutil.DoubleURLEncoded {
		set[s] = struct{}{}
	}
	return set
}

// Extract computes the frozen feature vector for a normalized URL.
func Extract(u *normalizeurl.URL) *FeatureVector {
	full := u.String()
	host := u.Host
	path := u.Path
	query := u.Query
	tld := extractTLD(host)

	values := make(map[string]float64, len(schema))

	values["url_length"] = float64(len(full))
	values["host_length"] = float64(len(host))
	values["path_length"] = float64(len(path))
	values["query_length"] = float64(len(query))
	values["digit_ratio"] = strutil.DigitRatio(full)
	values["letter_ratio"] = strutil.LetterRatio(full)
	values["special_char_count"] = float64(countSpecialChars(full))
	values["consecutive_digit_run"] = float64(strutil.LongestRun(full, unicode.IsDigit))
	values["host_entropy"] = strutil.ShannonEntropy(host)
	values["longest_label_length"] = float64(longestLabel(host))
	values["vowel_ratio"] = vowelRatio(full)
	values["path_digit_ratio"] = strutil.DigitRatio(path)
	values["digit_count"] = float64(strutil.CountFunc(full, unicode.IsDigit))
	values["letter_count"] = float64(strutil.CountFunc(full, unicode.IsLetter))
	values["uppercase_count"] = float64(strutil.CountFunc(full, unicode.IsUpper))

	values["dot_count"] = float64(strings.Count(host, "."))
	values["slash_count"] = float64(strings.Count(path, "/"))
	values["hyphen_count"] = float64(strings.Count(host, "-"))
	values["at_count"] = float64(strings.Count(full, "@"))
	values["subdomain_count"] = float64(subdomainCount(host, u.RegisteredDomain))
	values["has_double_slash_in_path"] = boolFloat(strings.Contains(path, "//"))
	values["underscore_count"] = float64(strings.Count(full, "_"))
	values["query_param_count"] = float64(queryParamCount(query))
	values["colon_count"] = float64(strings.Count(full, ":"))
	values["question_mark_count"] = float64(strings.Count(full, "?"))
	values["consecutive_hyphen_run"] = float64(strutil.LongestRun(host, func(r rune) bool { return r == '-' }))
	values["path_segment_count"] = float64(pathSegmentCount(path))
	if len(full) > 0 {
		values["query_length_ratio"] = float64(len(query)) / float64(len(full))
	}
	values["path_has_numeric_segment"] = boolFloat(hasNumericSegment(path))

	values["tld_length"] = float64(len(tld))
	values["tld_is_high_abuse"] = boolFloat(highAbuseTLDs[tld])
	values["tld_is_country_code"] = boolFloat(isCountryCodeTLD(tld))
	values["tld_numeric"] = boolFloat(isNumericTLD(tld))

	values["is_ip_literal"] = boolFloat(u.IsIPLiteral)
	values["is_punycode"] = boolFloat(u.IsPunycode)
	values["is_homoglyph_candidate"] = boolFloat(IsHomoglyphCandidate(u.UnicodeHost))
	values["has_port"] = boolFloat(u.HasNonstandardPort())
	values["nonstandard_port"] = boolFloat(u.HasNonstandardPort())
	if u.HasNonstandardPort() {
		values["port_value"] = float64(u.Port)
	} else {
		values["port_value"] = noPort
	}

	values["percent_encoded_count"] = float64(countPercentEncoded(full))
	values["hex_run_length"] = float64(strutil.LongestRun(full, isHexDigit))
	values["base64_like_segment_count"] = float64(countBase64LikeSegments(full))
	values["double_percent_encoded_count"] = float64(countDoublePercentEncoded(full))

	values["has_open_redirect_param"] = boolFloat(len(redirect.DetectRedirectParams(full)) > 0)
	values["has_external_redirect_target"] = boolFloat(len(redirect.ExternalRedirectTargets(full)) > 0)

	for _, tok := range suspiciousTokens {
		values["token_"+tok+"_in_host"] = boolFloat(strings.Contains(host, tok))
		values["token_"+tok+"_in_path"] = boolFloat(strings.Contains(strings.ToLower(path), tok))
		values["token_"+tok+"_in_query"] = boolFloat(strings.Contains(strings.ToLower(query), tok))
	}

	for _, r := range specialChars {
		values["char_count_"+string(r)] = float64(strings.Count(full, string(r)))
	}

	labels := strings.Split(host, ".")
	for i := 0; i < labelEntropySlots; i++ {
		if i < len(labels) {
			values["label_entropy_"+itoa(i)] = strutil.ShannonEntropy(labels[i])
		} else {
			values["label_entropy_"+itoa(i)] = 0
		}
	}

	fv := &FeatureVector{Names: Schema(), Values: make([]float64, len(schema))}
	for i, name := range fv.Names {
		fv.Values[i] = values[name]
	}
	return fv
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func countSpecialChars(s string) int {
	set := make(map[rune]struct{}, len(specialChars))
	for _, r := range specialChars {
		set[r] = struct{}{}
	}
	n := 0
	for _, r := range s {
		if _, ok := set[r]; ok {
			n++
		}
	}
	return n
}

func longestLabel(host string) int {
	longest := 0
	for _, l := range strings.Split(host, ".") {
		if len(l) > longest {
			longest = len(l)
		}
	}
	return longest
}

func vowelRatio(s string) float64 {
	if s == "" {
		return 0
	}
	return float64(strutil.CountFunc(strings.ToLower(s), isVowel)) / float64(len([]rune(s)))
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

func subdomainCount(host, registeredDomain string) int {
	if registeredDomain == "" || host == registeredDomain {
		return 0
	}
	prefix := strings.TrimSuffix(host, "."+registeredDomain)
	if prefix == host {
		return 0
	}
	if prefix == "" {
		return 0
	}
	return strings.Count(prefix, ".") + 1
}

func queryParamCount(query string) int {
	if query == "" {
		return 0
	}
	return strings.Count(query, "&") + 1
}

func pathSegmentCount(path string) int {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 1 && segments[0] == "" {
		return 0
	}
	return len(segments)
}

func hasNumericSegment(path string) bool {
	re, err := regexcache.Get(`^[0-9]+$`)
	if err != nil {
		return false
	}
	for _, seg := range strings.Split(path, "/") {
		if seg != "" && re.MatchString(seg) {
			return true
		}
	}
	return false
}

// IsHighAbuseTLD reports whether host's TLD is on the curated high-abuse
// list — exported so C6's risk-factor rules can flag it without
// re-deriving the feature vector.
func IsHighAbuseTLD(host string) bool {
	return highAbuseTLDs[extractTLD(host)]
}

func extractTLD(host string) string {
	labels := strings.Split(host, ".")
	if len(labels) == 0 {
		return ""
	}
	return labels[len(labels)-1]
}

func isCountryCodeTLD(tld string) bool {
	return len(tld) == 2 && !highAbuseTLDs[tld]
}

func isNumericTLD(tld string) bool {
	re, err := regexcache.Get(numericOnlyRegexp)
	if err != nil {
		return false
	}
	return re.MatchString(tld)
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func countPercentEncoded(s string) int {
	count := 0
	for i := 0; i+2 < len(s); i++ {
		if s[i] == '%' {
			if _, ok := percentEncodedSet[s[i:i+3]]; ok {
				count++
			}
		}
	}
	return count
}

func countDoublePercentEncoded(s string) int {
	count := 0
	for i := 0; i+4 < len(s); i++ {
		if s[i] == '%' && s[i+1] == '2' && (s[i+2] == '5') {
			if _, ok := doublePercentEncodedSet[s[i:i+5]]; ok {
				count++
			}
		}
	}
	return count
}

func countBase64LikeSegments(s string) int {
	re, err := regexcache.Get(`[A-Za-z0-9+/]{8,}={0,2}`)
	if err != nil {
		return 0
	}
	return len(re.FindAllString(s, -1))
}
