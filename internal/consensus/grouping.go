package consensus

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/sells-group/insights-cli/internal/model"
)

// groupByEquivalence partitions successful candidates into groups of
// equivalent results. Candidates are visited in generation-index order and
// compared against each group's representative (its first member), so group
// order is deterministic.
func groupByEquivalence(candidates []model.SqlCandidate, epsilon float64) [][]model.SqlCandidate {
	sorted := make([]model.SqlCandidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].GenerationIndex < sorted[j].GenerationIndex
	})

	var groups [][]model.SqlCandidate
	for _, c := range sorted {
		placed := false
		for gi, grp := range groups {
			if equivalent(grp[0], c, epsilon) {
				groups[gi] = append(grp, c)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []model.SqlCandidate{c})
		}
	}
	return groups
}

// equivalent reports whether two candidate results agree. Row sets agree on
// their leading entity; scalar results agree within a relative epsilon.
func equivalent(a, b model.SqlCandidate, epsilon float64) bool {
	ra := primaryResult(a.Execution.Rows)
	rb := primaryResult(b.Execution.Rows)

	if ra.empty && rb.empty {
		return true
	}
	if ra.empty != rb.empty {
		return false
	}

	if ra.entity != "" || rb.entity != "" {
		if !strings.EqualFold(ra.entity, rb.entity) {
			return false
		}
		// Same leading entity; if both also carry a number it must agree too.
		if ra.hasNum && rb.hasNum {
			return withinEpsilon(ra.num, rb.num, epsilon)
		}
		return true
	}

	if ra.hasNum && rb.hasNum {
		return withinEpsilon(ra.num, rb.num, epsilon)
	}
	return ra.hasNum == rb.hasNum
}

func withinEpsilon(a, b, epsilon float64) bool {
	if a == b {
		return true
	}
	denom := math.Max(math.Abs(a), math.Abs(b))
	if denom == 0 {
		return true
	}
	return math.Abs(a-b)/denom <= epsilon
}

// primary holds the comparable essence of a result set: the first row's
// leading string entity and leading numeric value.
type primary struct {
	empty  bool
	entity string
	num    float64
	hasNum bool
}

// primaryResult extracts the comparison key from the leading row. Map keys
// are visited in sorted order so the extraction is deterministic regardless
// of Go's map iteration order.
func primaryResult(rows []map[string]any) primary {
	if len(rows) == 0 {
		return primary{empty: true}
	}
	row := rows[0]

	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var p primary
	for _, k := range keys {
		switch v := row[k].(type) {
		case string:
			if p.entity == "" {
				// Numeric strings count as numbers, not entities.
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					if !p.hasNum {
						p.num = f
						p.hasNum = true
					}
					continue
				}
				p.entity = v
			}
		default:
			if f, ok := toFloat(v); ok && !p.hasNum {
				p.num = f
				p.hasNum = true
			}
		}
	}
	return p
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
