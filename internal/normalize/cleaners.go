package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reDigits  = regexp.MustCompile(`\D`)
	reZipTail = regexp.MustCompile(`[\s-].*$`)
	reOrdinal = regexp.MustCompile(`^\d+(st|nd|rd|th)$`)
	reGrade   = regexp.MustCompile(`\d+`)
)

// Abbreviations expanded during school-name title casing.
var titleReplacements = []struct {
	pattern *regexp.Regexp
	repl    string
}{
	{regexp.MustCompile(`(?i)\bel\b`), "Elementary School"},
	{regexp.MustCompile(`(?i)\bhts\b`), "Heights"},
	{regexp.MustCompile(`(?i)\bpri\b`), "Primary"},
	{regexp.MustCompile(`(?i)\bmiddle\b`), "Middle School"},
	{regexp.MustCompile(`(?i)\bcharter\b`), "Charter School"},
}

var minorWords = map[string]bool{
	"of": true, "for": true, "and": true, "the": true, "a": true,
	"an": true, "in": true, "on": true, "at": true,
}

var acronyms = map[string]bool{
	"IDEA": true, "ILTEXAS": true, "ISD": true,
}

// TitleCase applies intelligent title casing: common abbreviations are
// expanded, ordinal suffixes stay lowercase, minor words stay lowercase
// after the first word, and known acronyms stay uppercase.
func TitleCase(text string) string {
	if text == "" {
		return ""
	}

	s := strings.ToLower(text)
	for _, r := range titleReplacements {
		s = r.pattern.ReplaceAllString(s, r.repl)
	}

	words := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(words))
	for i, word := range words {
		upper := strings.ToUpper(word)
		switch {
		case acronyms[upper]:
			if upper == "ILTEXAS" {
				out = append(out, "ILTexas")
			} else {
				out = append(out, upper)
			}
		case reOrdinal.MatchString(word):
			out = append(out, word)
		case i > 0 && minorWords[word]:
			out = append(out, word)
		default:
			out = append(out, capitalize(word))
		}
	}
	return strings.Join(out, " ")
}

// DistrictTitleCase title-cases a district name and forces ISD uppercase.
func DistrictTitleCase(text string) string {
	if text == "" {
		return ""
	}
	titled := TitleCase(text)
	return regexp.MustCompile(`(?i)\bisd\b`).ReplaceAllString(titled, "ISD")
}

func capitalize(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}

// RootZip strips zip-code extensions: "78757-1234" becomes "78757".
func RootZip(val string) string {
	return reZipTail.ReplaceAllString(strings.TrimSpace(val), "")
}

// DigitsOnlyPhone strips everything but digits from a phone number.
func DigitsOnlyPhone(val string) string {
	return reDigits.ReplaceAllString(val, "")
}

// StripTranslation removes bilingual text after a forward slash in each
// semicolon-separated part: "Yes/Sí; No/No" becomes "Yes; No".
func StripTranslation(val string) string {
	if val == "" {
		return ""
	}
	parts := strings.Split(val, ";")
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		cleaned = append(cleaned, strings.TrimSpace(strings.SplitN(p, "/", 2)[0]))
	}
	return strings.Join(cleaned, "; ")
}

// ToIntIfWhole renders float text as an integer when it has no fractional
// part: "3.0" becomes "3", "3.5" stays "3.5", non-numeric text is unchanged.
func ToIntIfWhole(val string) string {
	trimmed := strings.TrimSpace(val)
	if trimmed == "" {
		return val
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return val
	}
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return trimmed
}

// CleanPublicNCESID pads a public-school NCES id to 12 digits.
// Non-digits are stripped first; empty input yields empty output.
func CleanPublicNCESID(val string) string {
	digits := reDigits.ReplaceAllString(val, "")
	if digits == "" {
		return ""
	}
	return padDigits(digits, 12)
}

// CleanLEAID pads a district LEAID to 7 digits.
func CleanLEAID(val string) string {
	digits := reDigits.ReplaceAllString(val, "")
	if digits == "" {
		return ""
	}
	return padDigits(digits, 7)
}

func padDigits(digits string, width int) string {
	for len(digits) < width {
		digits = "0" + digits
	}
	return digits[:width]
}

// SizeBucket converts a student count into Small, Medium or Large.
// Unparseable input yields empty output.
func SizeBucket(val string) string {
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return ""
	}
	switch {
	case n < 600:
		return "Small"
	case n < 2000:
		return "Medium"
	default:
		return "Large"
	}
}

// ExtractGrade pulls the numeric grade out of ordinal text: "5th" -> "5".
func ExtractGrade(val string) string {
	return reGrade.FindString(val)
}

// Initial returns the first character of the string. Multi-byte letters
// stay whole.
func Initial(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}

// HouseholdKey builds the deterministic family key shared by the Households
// and Stars loaders: first initial, last name and zip. Any missing part
// yields an empty key.
func HouseholdKey(firstName, lastName, zip string) string {
	fn := strings.ToLower(strings.TrimSpace(firstName))
	ln := strings.ToLower(strings.TrimSpace(lastName))
	zp := strings.TrimSpace(zip)
	if fn == "" || ln == "" || zp == "" || fn == "nan" || fn == "none" || ln == "nan" || ln == "none" {
		return ""
	}
	return Initial(fn) + "|" + ln + "|" + zp
}
