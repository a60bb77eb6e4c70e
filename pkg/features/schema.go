package features

// suspiciousTokens is the curated keyword list checked against host, path,
// and query independently — carried from the original service's heuristic
// feature set.
var suspiciousTokens = []string{
	"login", "secure", "verify", "update", "account",
	"bank", "paypal", "wallet", "confirm",
}

// specialChars is scanned one count-feature per rune so the classifier can
// weight individual punctuation marks differently rather than a single
// blended "special_char_count".
var specialChars = []rune{
	'?', '&', '=', '%', '#', '~', ';', ':', '@', '!',
	'$', '^', '*', '(', ')', '+', '[', ']', '{', '}',
}

// highAbuseTLDs is the curated set of TLDs with disproportionately high
// phishing/abuse rates per public abuse-reporting aggregates.
var highAbuseTLDs = map[string]bool{
	"tk": true, "ml": true, "ga": true, "cf": true, "gq": true,
	"xyz": true, "top": true, "club": true, "work": true, "click": true,
	"link": true, "loan": true, "icu": true, "rest": true, "cam": true,
}

// numericOnlyRegexp matches an all-digit TLD label (the tld_numeric
// feature). There is no ccTLD list: isCountryCodeTLD treats any two-letter
// TLD that is not in highAbuseTLDs as a country code.
var numericOnlyRegexp = `^[0-9]+$`

// labelEntropySlots bounds how many subdomain labels get their own entropy
// feature — fixed so the vector stays constant length regardless of how
// many labels a given host has.
const labelEntropySlots = 5

// schema is the frozen, ordered feature name list. Extract must produce
// exactly one value per entry, in this order — this is the wire contract
// spec.md §6 calls the "feature schema file".
var schema = buildSchema()

// Schema returns the frozen ordered feature-name list. Copied so callers
// can't mutate the package-level schema.
func Schema() []string {
	out := make([]string, len(schema))
	copy(out, schema)
	return out
}

func buildSchema() []string {
	names := []string{
		// Lexical
		"url_length", "host_length", "path_length", "query_length",
		"digit_ratio", "letter_ratio", "special_char_count",
		"consecutive_digit_run", "host_entropy", "longest_label_length",
		"vowel_ratio", "path_digit_ratio", "digit_count", "letter_count",
		"uppercase_count",

		// Structural
		"dot_count", "slash_count", "hyphen_count", "at_count",
		"subdomain_count", "has_double_slash_in_path", "underscore_count",
		"query_param_count", "colon_count", "question_mark_count",
		"consecutive_hyphen_run", "path_segment_count", "query_length_ratio",
		"path_has_numeric_segment",

		// TLD
		"tld_length", "tld_is_high_abuse", "tld_is_country_code", "tld_numeric",

		// Host class
		"is_ip_literal", "is_punycode", "is_homoglyph_candidate", "has_port",
		"nonstandard_port", "port_value",

		// Encoding
		"percent_encoded_count", "hex_run_length",
		"base64_like_segment_count", "double_percent_encoded_count",

		// Redirect laundering
		"has_open_redirect_param", "has_external_redirect_target",
	}

	for _, tok := range suspiciousTokens {
		names = append(names,
			"token_"+tok+"_in_host",
			"token_"+tok+"_in_path",
			"token_"+tok+"_in_query",
		)
	}

	for _, r := range specialChars {
		names = append(names, "char_count_"+string(r))
	}

	for i := 0; i < labelEntropySlots; i++ {
		names = append(names, "label_entropy_"+itoa(i))
	}

	return names
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
