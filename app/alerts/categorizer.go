package alerts

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// Classification is the outcome of Categorize. Region is empty when no
// region keyword matched.
type Classification struct {
	Type     Type
	Severity Severity
	Region   Region
}

type rule[T any] struct {
	value    T
	patterns []*regexp.Regexp
}

func (r rule[T]) matches(text string) bool {
	for _, p := range r.patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// prefixRule matches keywords at the start of a word, so "heat" also
// matches "heatwave".
func prefixRule[T any](value T, keywords ...string) rule[T] {
	return newRule(value, `\b%s`, keywords)
}

func wordRule[T any](value T, keywords ...string) rule[T] {
	return newRule(value, `\b%s\b`, keywords)
}

func newRule[T any](value T, format string, keywords []string) rule[T] {
	r := rule[T]{value: value}
	for _, kw := range keywords {
		expr := strings.Replace(format, "%s", regexp.QuoteMeta(kw), 1)
		r.patterns = append(r.patterns, regexp.MustCompile(expr))
	}
	return r
}

// Rule tables are evaluated top to bottom; the first match wins.
var (
	typeRules = []rule[Type]{
		prefixRule(TypeTick, "tick", "paralysis"),
		prefixRule(TypeSnake, "snake"),
		prefixRule(TypeHeatwave, "heat", "heatwave", "temperature"),
		prefixRule(TypeDisease, "disease", "outbreak", "parvo", "virus"),
	}

	severityRules = []rule[Severity]{
		prefixRule(SeverityEmergency, "emergency", "critical", "urgent", "immediate"),
		prefixRule(SeverityWarning, "severe", "warning", "high risk"),
		prefixRule(SeverityWatch, "watch", "advisement", "advisory", "caution"),
	}

	regionRules = []rule[Region]{
		wordRule(RegionQLD, "queensland", "qld", "brisbane", "gold coast", "sunshine coast", "cairns", "townsville", "toowoomba", "mackay", "rockhampton"),
		wordRule(RegionNSW, "new south wales", "nsw", "sydney", "newcastle", "wollongong", "central coast", "blue mountains"),
		wordRule(RegionVIC, "victoria", "vic", "melbourne", "geelong", "ballarat", "bendigo"),
		wordRule(RegionSA, "south australia", "south australian", "sa", "adelaide"),
		wordRule(RegionWA, "western australia", "western australian", "wa", "perth", "fremantle", "broome"),
		wordRule(RegionTAS, "tasmania", "tas", "hobart", "launceston"),
		wordRule(RegionNT, "northern territory", "nt", "darwin", "alice springs"),
		wordRule(RegionACT, "australian capital territory", "canberra"),
	}
)

// Categorize classifies free text by keyword. It never fails: an item with
// no recognisable keywords is OTHER/INFO with no region.
func Categorize(title, description string, category *string) Classification {
	parts := []string{title, description}
	if category != nil {
		parts = append(parts, *category)
	}
	// Casers are stateful, so each call gets its own.
	text := cases.Fold().String(strings.Join(parts, " "))

	return Classification{
		Type:     firstMatch(typeRules, text, TypeOther),
		Severity: firstMatch(severityRules, text, SeverityInfo),
		Region:   firstMatch(regionRules, text, ""),
	}
}

func firstMatch[T any](rules []rule[T], text string, fallback T) T {
	for _, r := range rules {
		if r.matches(text) {
			return r.value
		}
	}
	return fallback
}
