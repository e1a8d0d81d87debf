// Package router decides the execution strategy for a question: the trusted
// aggregation fast path, a single generation, or consensus voting.
package router

import (
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/insights-cli/internal/model"
)

// importanceMarkers signal rankings, superlatives and explicit comparisons.
// Questions carrying them get consensus treatment: a single generation is
// too unreliable when the answer will be quoted as "the best" anything.
// English and Spanish, matched on folded text at word boundaries so that
// "record" does not fire on "recorded".
var importanceMarkers = []string{
	"vs", "versus", "comparado con", "comparar", "compare", "compared", "comparison",
	"best", "worst", "most sold", "the most", "top", "highest", "lowest", "record",
	"mejor", "peor", "mas vendido", "menos vendido", "ranking",
}

// complexityMarkers signal temporal cutoffs, multi-entity filters or implied
// joins that the canonical metrics cannot express.
var complexityMarkers = []string{
	"before", "after", "between",
	"antes de", "despues de", "entre las",
	"by category", "per category", "by product", "by day", "by hour",
	"por categoria", "por producto", "por dia", "por hora",
	"weekday", "weekend", "fin de semana",
	"except", "excluding", "excepto", "without", "sin contar",
}

var (
	importancePattern = markerPattern(importanceMarkers)
	complexityPattern = markerPattern(complexityMarkers)
)

// periodMarkers maps question phrasing to canonical reporting periods.
// Ordered so that multi-word phrases match before their substrings.
var periodMarkers = []struct {
	phrase string
	period string
}{
	{"last month", "last_month"},
	{"el mes pasado", "last_month"},
	{"this month", "this_month"},
	{"este mes", "this_month"},
	{"this week", "this_week"},
	{"esta semana", "this_week"},
	{"yesterday", "yesterday"},
	{"ayer", "yesterday"},
	{"today", "today"},
	{"hoy", "today"},
}

// canonicalIntents maps exact (folded, period-stripped) phrasings to
// metrics. Approximate matches never reach the trusted path: a question
// this table does not recognize verbatim goes through SQL generation.
var canonicalIntents = map[string]model.Metric{
	"how much did i sell":        model.MetricSalesForPeriod,
	"how much have i sold":       model.MetricSalesForPeriod,
	"what were my sales":         model.MetricSalesForPeriod,
	"what are my sales":          model.MetricSalesForPeriod,
	"total sales":                model.MetricSalesForPeriod,
	"cuanto vendi":               model.MetricSalesForPeriod,
	"cuanto he vendido":          model.MetricSalesForPeriod,
	"what is my average ticket":  model.MetricAverageTicket,
	"average ticket":             model.MetricAverageTicket,
	"ticket promedio":            model.MetricAverageTicket,
	"cual es mi ticket promedio": model.MetricAverageTicket,
	"how are my reviews":         model.MetricReviewStats,
	"review stats":               model.MetricReviewStats,
	"como van mis resenas":       model.MetricReviewStats,
}

// Classify inspects the question text and picks an execution tier.
//
// Complex and important questions go to CONSENSUS, complex-only to SINGLE,
// and simple questions to TRUSTED only when they match a canonical intent
// exactly. Everything ambiguous defaults to SINGLE.
func Classify(q model.Question) model.Classification {
	folded := foldText(q.Text)

	important := importancePattern.MatchString(folded)
	// A comparison or ranking implies multi-entity work, so importance
	// markers count toward complexity as well.
	complex := important || complexityPattern.MatchString(folded) || timeOfDay.MatchString(folded)

	period, stripped := extractPeriod(folded)

	var c model.Classification
	switch {
	case complex && important:
		c = model.Classification{Tier: model.TierConsensus, Period: period}
	case complex:
		c = model.Classification{Tier: model.TierSingle, Period: period}
	default:
		if metric, ok := canonicalIntents[stripped]; ok {
			c = model.Classification{Tier: model.TierTrusted, MatchedIntent: metric, Period: period}
		} else {
			c = model.Classification{Tier: model.TierSingle, Period: period}
		}
	}

	// Single-tier questions that happen to phrase a canonical metric keep
	// the mapping for cross-checking, without short-circuiting generation.
	if c.Tier != model.TierTrusted {
		if metric, ok := canonicalIntents[stripped]; ok {
			c.MatchedIntent = metric
		} else if m := looseMetricHint(folded); m != "" {
			c.MatchedIntent = m
		}
	}

	zap.L().Debug("router: classified question",
		zap.String("question_id", q.ID),
		zap.String("tier", string(c.Tier)),
		zap.String("matched_intent", string(c.MatchedIntent)),
		zap.String("period", c.Period),
	)
	return c
}

// looseMetricHint finds a non-exact canonical mapping used only to enable
// cross-checking of generated results, never for trusted routing.
func looseMetricHint(folded string) model.Metric {
	switch {
	case strings.Contains(folded, "sales") || strings.Contains(folded, "sell") ||
		strings.Contains(folded, "sold") || strings.Contains(folded, "vendi"):
		return model.MetricSalesForPeriod
	case strings.Contains(folded, "ticket"):
		return model.MetricAverageTicket
	case strings.Contains(folded, "review") || strings.Contains(folded, "resena"):
		return model.MetricReviewStats
	case strings.Contains(folded, "product") || strings.Contains(folded, "producto"):
		return model.MetricTopProducts
	}
	return ""
}

// extractPeriod pulls the reporting period out of folded question text and
// returns the text with the period phrase and punctuation removed, ready
// for exact intent matching.
func extractPeriod(folded string) (period, stripped string) {
	stripped = folded
	for _, pm := range periodMarkers {
		if strings.Contains(stripped, pm.phrase) {
			period = pm.period
			stripped = strings.ReplaceAll(stripped, pm.phrase, " ")
			break
		}
	}
	stripped = strings.Join(strings.Fields(strings.Map(dropPunct, stripped)), " ")
	return period, stripped
}

func dropPunct(r rune) rune {
	if unicode.IsPunct(r) {
		return ' '
	}
	return r
}

// timeOfDay matches clock references like "8pm", "11:30" or "14h".
var timeOfDay = regexp.MustCompile(`\b\d{1,2}:\d{2}\b|\b\d{1,2}\s*(am|pm|h)\b`)

// markerPattern compiles a marker list into one alternation anchored at
// word boundaries. Anchors apply only where a marker starts or ends with a
// word character, so phrase markers keep their exact spacing.
func markerPattern(markers []string) *regexp.Regexp {
	alts := make([]string, len(markers))
	for i, m := range markers {
		p := regexp.QuoteMeta(m)
		if isWordByte(m[0]) {
			p = `\b` + p
		}
		if isWordByte(m[len(m)-1]) {
			p += `\b`
		}
		alts[i] = p
	}
	return regexp.MustCompile(strings.Join(alts, "|"))
}

func isWordByte(c byte) bool {
	return c == '_' ||
		'a' <= c && c <= 'z' ||
		'A' <= c && c <= 'Z' ||
		'0' <= c && c <= '9'
}

// foldChain strips diacritics so "comparado con" matches "¿comparado cón?"
// and friends regardless of accents.
var foldChain = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldText(s string) string {
	lower := strings.ToLower(s)
	folded, _, err := transform.String(foldChain, lower)
	if err != nil {
		return lower
	}
	return folded
}
