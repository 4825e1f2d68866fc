package aggregation

import (
	"sort"
	"strconv"

	"github.com/de-tools/soil-atlas/pkg/models/domain"
	"github.com/de-tools/soil-atlas/pkg/services/ratingdomain"
	"golang.org/x/exp/maps"
)

// Outcome is the unrounded rating of one map unit. Percent is the component
// percent behind the rating, when the method has one.
type Outcome struct {
	MapUnit domain.MapUnit
	Rating  domain.RatingValue
	Percent *float64
}

type shard struct {
	plan     *Plan
	warnings *domain.WarningLog
}

func (s *shard) rateMapUnit(u domain.MapUnitRows) Outcome {
	out := Outcome{MapUnit: u.MapUnit}
	if s.plan.Attribute.Level == domain.LevelMapUnit {
		out.Rating = s.mapUnitValue(u)
		return out
	}

	rs := s.applyNullPolicy(s.reduceLeaves(u.Rows))
	switch s.plan.Request.Method {
	case domain.MethodDominantComponent:
		out.Rating, out.Percent = s.dominantComponent(rs)
	case domain.MethodDominantCondition:
		out.Rating, out.Percent = s.dominantCondition(rs)
	case domain.MethodWeightedAverage:
		out.Rating, out.Percent = s.weightedAverage(rs)
	case domain.MethodWeightedSum:
		out.Rating, out.Percent = s.weightedSum(rs)
	case domain.MethodMinMax:
		out.Rating, out.Percent = s.minMax(rs)
	case domain.MethodPercentPresent:
		out.Rating = s.percentPresent(rs)
	case domain.MethodLimiting:
		out.Rating, out.Percent = s.limiting(rs)
	}
	return out
}

func (s *shard) mapUnitValue(u domain.MapUnitRows) domain.RatingValue {
	if !u.Value.IsClass() {
		return u.Value
	}
	v, err := s.plan.Domain.Canonical(u.Value)
	if err != nil {
		s.warnings.Add(domain.Warning{MapUnitID: u.MapUnit.ID, Reason: err.Error()})
		return domain.Missing()
	}
	return v
}

func (s *shard) applyNullPolicy(rs []rated) []rated {
	if s.plan.Request.NullPolicy == domain.NullsInclude {
		return rs
	}
	kept := rs[:0]
	for _, r := range rs {
		if !r.value.IsMissing() {
			kept = append(kept, r)
		}
	}
	return kept
}

// better orders two candidates on the rating axis only.
func (s *shard) better(a, b domain.RatingValue) bool {
	return s.plan.Domain.Prefer(a, b)
}

func (s *shard) dominantComponent(rs []rated) (domain.RatingValue, *float64) {
	if len(rs) == 0 {
		return domain.Missing(), nil
	}
	best := rs[0]
	for _, r := range rs[1:] {
		if r.pct() > best.pct() || (r.pct() == best.pct() && s.better(r.value, best.value)) {
			best = r
		}
	}
	return best.value, domain.Float64(best.pct())
}

func (s *shard) dominantCondition(rs []rated) (domain.RatingValue, *float64) {
	if len(rs) == 0 {
		return domain.Missing(), nil
	}
	var total float64
	for _, r := range rs {
		total += r.pct()
	}
	// a component holding half of the map unit cannot be out-pooled
	if total > 0 {
		if v, pct := s.dominantComponent(rs); *pct*2 >= total {
			return v, pct
		}
	}

	pools := s.pool(rs)
	keys := maps.Keys(pools)
	sort.Strings(keys)
	var best *pool
	for _, k := range keys {
		p := pools[k]
		if best == nil || p.pct > best.pct || (p.pct == best.pct && s.better(p.value, best.value)) {
			best = p
		}
	}
	return best.value, domain.Float64(best.pct)
}

type pool struct {
	value domain.RatingValue
	pct   float64
}

// pool sums component percents by distinct rating.
func (s *shard) pool(rs []rated) map[string]*pool {
	pools := make(map[string]*pool)
	for _, r := range rs {
		k := poolKey(r.value)
		p, ok := pools[k]
		if !ok {
			p = &pool{value: r.value}
			pools[k] = p
		}
		p.pct += r.pct()
	}
	return pools
}

func poolKey(v domain.RatingValue) string {
	switch v.Kind() {
	case domain.KindNumeric:
		return "n:" + strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case domain.KindClass:
		return "c:" + ratingdomain.Key(v.ClassName())
	default:
		return "m"
	}
}

// weightedAverage divides by the percent actually included, never by 100.
// Included nulls add weight but no value.
func (s *shard) weightedAverage(rs []rated) (domain.RatingValue, *float64) {
	var sum, weights float64
	for _, r := range rs {
		weights += r.pct()
		if r.value.IsNumeric() {
			sum += r.value.Float() * r.pct()
		}
	}
	if len(rs) == 0 || weights == 0 {
		return domain.Missing(), nil
	}
	return domain.Numeric(sum / weights), domain.Float64(weights)
}

// weightedSum adds each component's value scaled by its share of the map unit.
func (s *shard) weightedSum(rs []rated) (domain.RatingValue, *float64) {
	if len(rs) == 0 {
		return domain.Missing(), nil
	}
	var sum, weights float64
	for _, r := range rs {
		weights += r.pct()
		if r.value.IsNumeric() {
			sum += r.value.Float() * r.pct() / 100
		}
	}
	return domain.Numeric(sum), domain.Float64(weights)
}

// minMax takes the lowest value when lower wins and the highest otherwise.
func (s *shard) minMax(rs []rated) (domain.RatingValue, *float64) {
	if len(rs) == 0 {
		return domain.Missing(), nil
	}
	winner := rs[0].value
	for _, r := range rs[1:] {
		if s.better(r.value, winner) {
			winner = r.value
		}
	}
	if winner.IsMissing() {
		return winner, nil
	}
	var pct float64
	for _, r := range rs {
		if s.plan.Domain.SameRating(r.value, winner) {
			pct = max(pct, r.pct())
		}
	}
	return winner, domain.Float64(pct)
}

// percentPresent is never missing: a map unit without the target rates 0.
func (s *shard) percentPresent(rs []rated) domain.RatingValue {
	var sum float64
	for _, r := range rs {
		if s.plan.Domain.SameRating(r.value, s.plan.Target) {
			sum += r.pct()
		}
	}
	return domain.Numeric(sum)
}

// limiting pools percent by domain index and takes the lowest (least) or
// highest (most) index holding percent. The not-rated and no-data slots are
// used only when nothing else is present.
func (s *shard) limiting(rs []rated) (domain.RatingValue, *float64) {
	if len(rs) == 0 {
		return domain.Missing(), nil
	}
	dom := s.plan.Domain
	pct := make(map[int]float64)
	for _, r := range rs {
		i, ok := dom.Index(r.value)
		if !ok {
			continue
		}
		pct[i] += r.pct()
	}

	indexes := maps.Keys(pct)
	sort.Ints(indexes)
	tiers := []func(int) bool{
		func(i int) bool { return !dom.IsFallback(i) && pct[i] > 0 },
		func(i int) bool { return !dom.IsFallback(i) },
		func(i int) bool { return i == dom.NotRatedIndex() },
		func(i int) bool { return i == dom.NoDataIndex() },
	}
	for _, in := range tiers {
		var pick []int
		for _, i := range indexes {
			if in(i) {
				pick = append(pick, i)
			}
		}
		if len(pick) == 0 {
			continue
		}
		chosen := pick[len(pick)-1]
		if s.plan.Request.Limiting == domain.LimitingLeast {
			chosen = pick[0]
		}
		if dom.At(chosen).IsMissing() {
			return domain.Missing(), nil
		}
		return dom.At(chosen), domain.Float64(pct[chosen])
	}
	return domain.Missing(), nil
}
