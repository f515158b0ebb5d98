package atlas

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CategoryOverall is the canonical form of the catch-all indicator
// category. Empty, "all" and "total" inputs normalize to it.
const CategoryOverall = "overall"

var (
	canonReplacer = strings.NewReplacer("–", "-", "—", "-", ".", "")
	spaceRe       = regexp.MustCompile(`\s+`)
	sdgRe         = regexp.MustCompile(`^(?:sdg[ -]?)?(\d{1,2})$`)
	twoLetterRe   = regexp.MustCompile(`^[a-z]{2}([^a-z]|$)`)
	metroSuffixRe = regexp.MustCompile(`\s*(metropolitan statistical area|metropolitan area|metro area|metro)\s*$`)
)

// Canon produces the canonical lookup form of an identifier: lowercased,
// en/em dashes mapped to hyphens, dots removed, diacritics folded,
// whitespace runs collapsed to single spaces, trimmed. Two spellings of
// the same place should canon to the same key; that is the only contract.
func Canon(s string) string {
	s = canonReplacer.Replace(strings.ToLower(s))
	s = foldDiacritics(s)
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// Unquote strips surrounding whitespace plus any leading/trailing runs
// of single or double quotes left over from sloppy CSV exports.
func Unquote(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}

// clean is the composition the normalizers share: strip stray quotes,
// then canonicalize.
func clean(s string) string {
	return Canon(Unquote(s))
}

// foldDiacritics decomposes s and drops combining marks, so "san josé"
// and "san jose" collapse to one key.
func foldDiacritics(s string) string {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return s
	}
	// transform.Chain keeps internal state; build per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeSDG canonicalizes an indicator category label. Bare one- or
// two-digit numbers and any "sdg"/"SDG 7"/"sdg-07" variant become
// "SDG-NN"; empty, "all" and "total" become CategoryOverall; anything
// else is returned cleaned and uppercased. Idempotent on its own output.
func NormalizeSDG(raw string) string {
	s := clean(raw)
	switch s {
	case "", CategoryOverall, "all", "total":
		return CategoryOverall
	}
	if m := sdgRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return fmt.Sprintf("SDG-%02d", n)
	}
	return strings.ToUpper(s)
}

// NormStateToken extracts a lowercase two-letter state code from free
// text. A string beginning with exactly two letters is taken as an
// abbreviation as-is, trailing garbage and all; otherwise the whole
// string is looked up as a full state name. Unknown states yield "".
func NormStateToken(raw string) string {
	s := clean(raw)
	if s == "" {
		return ""
	}
	if twoLetterRe.MatchString(s) {
		return s[:2]
	}
	return stateCodes[s]
}

// AreaName is a normalized "{city}, {state}" pair. State is a lowercase
// postal code, or "" when the source text names none.
type AreaName struct {
	City  string
	State string
}

// Key is the exact-match form used by the point index.
func (a AreaName) Key() string {
	return a.City + "|" + a.State
}

// NormalizeAreaName splits a raw area label on its first comma into a
// canonical city and a state token. Text after the comma that is not a
// recognizable state leaves State empty.
func NormalizeAreaName(raw string) AreaName {
	s := clean(raw)
	city, rest, found := strings.Cut(s, ",")
	a := AreaName{City: strings.TrimSpace(city)}
	if found {
		a.State = NormStateToken(rest)
	}
	return a
}

// NormalizeMetroName normalizes a coordinate-table metro label. One
// trailing census suffix ("Metro Area", "Metropolitan Statistical Area",
// ...) is stripped before the usual area-name split; when the label
// itself names no state, stateHint supplies one.
func NormalizeMetroName(name, stateHint string) AreaName {
	s := clean(name)
	// clean already lowercased, so the suffix match needs no (?i).
	s = metroSuffixRe.ReplaceAllString(s, "")
	a := NormalizeAreaName(s)
	if a.State == "" {
		a.State = NormStateToken(stateHint)
	}
	return a
}
