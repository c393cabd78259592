package board

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultLabelLength is the widest destination label the panel fits.
const DefaultLabelLength = 18

// maxPasses bounds the rewrite loop; every rule only shortens or folds, so
// real destinations settle after one or two passes.
const maxPasses = 4

var cityPrefixes = []string{"Zürich, ", "Zuerich, "}

const stationSuffix = ", Bahnhof"

var umlauts = strings.NewReplacer(
	"ü", "ue", "ä", "ae", "ö", "oe",
	"Ü", "Ue", "Ä", "Ae", "Ö", "Oe",
)

// Abbreviation replaces a long place name with a shorter form.
type Abbreviation struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// DefaultAbbreviations are the shortenings used on the Zurich tram network.
var DefaultAbbreviations = []Abbreviation{
	{From: "Universitaet", To: "U."},
	{From: "Wollishoferplatz", To: "Wollishofe"},
}

// Formatter turns raw feed destinations into short ASCII display labels.
type Formatter struct {
	maxLen        int
	abbreviations []Abbreviation
}

// NewFormatter creates a formatter. Abbreviations are applied in order.
func NewFormatter(maxLen int, abbreviations []Abbreviation) *Formatter {
	if maxLen <= 0 {
		maxLen = DefaultLabelLength
	}
	return &Formatter{maxLen: maxLen, abbreviations: abbreviations}
}

// Format normalizes a destination. It is pure and idempotent, and the result
// never exceeds the configured length in runes.
func (f *Formatter) Format(raw string) string {
	s := strings.TrimSpace(norm.NFC.String(raw))
	for i := 0; i < maxPasses; i++ {
		next := f.pass(s)
		if next == s {
			break
		}
		s = next
	}
	return truncate(s, f.maxLen)
}

// pass applies one round of the rewrite rules. The order matters: the
// suffix cut and abbreviations look at text the prefix strip exposed.
func (f *Formatter) pass(s string) string {
	s = stripPrefixes(s)

	if idx := strings.Index(s, stationSuffix); idx > 0 {
		s = s[:idx]
	}

	for _, a := range f.abbreviations {
		if a.From == "" {
			continue
		}
		s = strings.ReplaceAll(s, a.From, a.To)
	}

	s = fold(s)
	return strings.TrimSpace(s)
}

func stripPrefixes(s string) string {
	for {
		trimmed := false
		for _, p := range cityPrefixes {
			if strings.HasPrefix(s, p) {
				s = s[len(p):]
				trimmed = true
			}
		}
		if !trimmed {
			return s
		}
	}
}

// fold spells out German umlauts and drops any other combining marks so the
// bitmap font only ever sees ASCII letters for Latin text.
func fold(s string) string {
	s = umlauts.Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimRightFunc(string(r[:n]), unicode.IsSpace)
}
