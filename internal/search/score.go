package search

import (
	"fmt"
	"math"
	"sort"
)

// Weights combine the three component scores into the overall score.
type Weights struct {
	Growth    float64 `json:"growth" yaml:"growth"`
	Retention float64 `json:"retention" yaml:"retention"`
	Organic   float64 `json:"organic" yaml:"organic"`
}

// DefaultWeights favours growth slightly over retention and organic buying.
func DefaultWeights() Weights {
	return Weights{Growth: 0.4, Retention: 0.3, Organic: 0.3}
}

// Validate rejects negative or all-zero weights.
func (w Weights) Validate() error {
	if w.Growth < 0 || w.Retention < 0 || w.Organic < 0 {
		return fmt.Errorf("score weights must be non-negative: %+v", w)
	}
	if w.Growth+w.Retention+w.Organic == 0 {
		return fmt.Errorf("score weights are all zero")
	}
	return nil
}

// Scores is the rating of one candidate.
type Scores struct {
	Growth    float64 `json:"growth"`
	Retention float64 `json:"retention"`
	Organic   float64 `json:"organic"`
	Overall   float64 `json:"overall"`
}

// Score rates a (mean) run summary keyed by engine.SummaryKeys.
//
//	growth    = active × 0.7 + retention × 1000 × 0.3
//	retention = retention × 1000 + avg consecutive days × 10
//	organic   = organic/total × 100 + grinder/total × 50 + casual/total × 25
//
// where total is the number of players ever joined; the purchase ratios
// are 0 when nobody joined.
func Score(summary map[string]float64, w Weights) Scores {
	active := summary["active_players"]
	total := summary["total_players"]
	retention := summary["retention_rate"]

	var s Scores
	s.Growth = active*0.7 + retention*1000*0.3
	s.Retention = retention*1000 + summary["avg_consecutive_days"]*10
	if total > 0 {
		s.Organic = summary["organic_purchases"]/total*100 +
			summary["grinder_purchases"]/total*50 +
			summary["casual_purchases"]/total*25
	}
	s.Overall = w.Growth*s.Growth + w.Retention*s.Retention + w.Organic*s.Organic
	return s
}

// Correlation is the linear relation between one parameter and the
// overall score across candidates.
type Correlation struct {
	Param string  `json:"param"`
	R     float64 `json:"r"`
}

// Pearson returns the sample correlation coefficient of xs and ys. It is 0
// when either side is constant or there are fewer than two pairs.
func Pearson(xs, ys []float64) float64 {
	n := min(len(xs), len(ys))
	if n < 2 {
		return 0
	}
	var mx, my float64
	for i := 0; i < n; i++ {
		mx += xs[i]
		my += ys[i]
	}
	mx /= float64(n)
	my /= float64(n)

	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0
	}
	r := sxy / math.Sqrt(sxx*syy)
	return math.Max(-1, math.Min(1, r))
}

// Correlations relates every parameter that any ranked candidate varied to
// the overall score, sorted by descending magnitude.
func Correlations(ranked []*Candidate) []Correlation {
	names := make(map[string]float64)
	for _, c := range ranked {
		for k := range c.Params {
			names[k] = 0
		}
	}
	out := make([]Correlation, 0, len(names))
	for _, name := range sortedKeys(names) {
		xs := make([]float64, len(ranked))
		ys := make([]float64, len(ranked))
		for i, c := range ranked {
			v, ok := c.Params[name]
			if !ok {
				v, _ = c.Config.Param(name)
			}
			xs[i] = v
			ys[i] = c.Scores.Overall
		}
		out = append(out, Correlation{Param: name, R: Pearson(xs, ys)})
	}
	sortCorrelations(out)
	return out
}

func sortCorrelations(cs []Correlation) {
	sort.SliceStable(cs, func(i, j int) bool {
		return math.Abs(cs[i].R) > math.Abs(cs[j].R)
	})
}
