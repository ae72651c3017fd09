// Package tune searches per-category scoring parameters against the
// backtest catch rate with constrained coordinate descent.
package tune

import (
	"math"
	"sort"

	"github.com/sawpanic/scorelab/internal/backtest"
	"github.com/sawpanic/scorelab/internal/category"
)

// ObjectiveConfig defines the configuration for the objective function
type ObjectiveConfig struct {
	CatchRateWeight  float64 `json:"catch_rate_weight"` // weight of the high-score catch rate
	GoodRateWeight   float64 `json:"good_rate_weight"`  // weight of the 4-6 bucket share
	SpearmanWeight   float64 `json:"spearman_weight"`   // weight of the score/return rank correlation
	RegularizationL2 float64 `json:"regularization_l2"` // penalty on relative drift from the starting params
}

// DefaultObjectiveConfig returns the default objective configuration
func DefaultObjectiveConfig() ObjectiveConfig {
	return ObjectiveConfig{
		CatchRateWeight:  1.0,
		GoodRateWeight:   0.25,
		SpearmanWeight:   0.2,
		RegularizationL2: 0.01,
	}
}

// Objective holds the evaluation of one parameter set
type Objective struct {
	Value          float64 `json:"value"`
	CatchRate      float64 `json:"catch_rate"`
	GoodRate       float64 `json:"good_rate"`
	Spearman       float64 `json:"spearman"`
	Regularization float64 `json:"regularization"`
	Scored         int     `json:"scored"`
	MeanScore      float64 `json:"mean_score"`
}

// evaluate scores a category report against the starting params
func (c ObjectiveConfig) evaluate(rep backtest.CategoryReport, events []backtest.Event, params, base category.Params) Objective {
	obj := Objective{
		CatchRate: rep.CatchRate,
		Scored:    rep.Events - rep.Unscored,
		MeanScore: rep.MeanScore,
	}
	if good, ok := rep.Bucket(backtest.BucketGood); ok {
		obj.GoodRate = good.CatchRate
	}

	var scores, returns []float64
	for _, e := range events {
		if e.Scored {
			scores = append(scores, e.Score)
			returns = append(returns, e.ReturnPct)
		}
	}
	obj.Spearman = spearman(scores, returns)
	obj.Regularization = c.RegularizationL2 * drift(params, base)

	obj.Value = c.CatchRateWeight*obj.CatchRate +
		c.GoodRateWeight*obj.GoodRate +
		c.SpearmanWeight*obj.Spearman -
		obj.Regularization
	return obj
}

// drift is the squared relative distance between two parameter sets over
// the tunable fields
func drift(p, base category.Params) float64 {
	sum := 0.0
	for _, f := range category.Fields() {
		a, _ := p.Get(f)
		b, _ := base.Get(f)
		d := (a - b) / math.Max(math.Abs(b), 1)
		sum += d * d
	}
	return sum
}

// spearman is the rank correlation of x and y with average ranks for ties.
// It is zero for fewer than two points or a constant input.
func spearman(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}
	rx, ry := ranks(x), ranks(y)

	n := float64(len(x))
	var mx, my float64
	for i := range rx {
		mx += rx[i]
		my += ry[i]
	}
	mx /= n
	my /= n

	var cov, vx, vy float64
	for i := range rx {
		dx, dy := rx[i]-mx, ry[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0
	}
	return cov / math.Sqrt(vx*vy)
}

func ranks(values []float64) []float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	out := make([]float64, len(values))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = avg
		}
		i = j + 1
	}
	return out
}
