package ensemble

import "math"

const (
	boost      = 0.3
	minWinner  = 0.60
	maxWinner  = 0.85
	sumEpsilon = 1e-4
)

// Rebalance turns independent per-category confidences into one distribution.
// The most confident category (first on ties) gets its confidence plus 0.3,
// clamped to [0.60, 0.85]. The rest of the mass goes to the other categories
// in proportion to their confidences, or evenly when those are all near zero.
// Every value is rounded to two decimals, so the result may not sum to
// exactly 1.
func Rebalance(raw []float64) []float64 {
	out := redistribute(raw)
	for i := range out {
		out[i] = round2(out[i])
	}
	return out
}

// redistribute is Rebalance before rounding.
func redistribute(raw []float64) []float64 {
	if len(raw) == 0 {
		return nil
	}
	best := argmax(raw)
	boosted := math.Min(math.Max(raw[best]+boost, minWinner), maxWinner)
	remaining := 1 - boosted

	var sumOthers float64
	for i, p := range raw {
		if i != best {
			sumOthers += p
		}
	}

	out := make([]float64, len(raw))
	for i, p := range raw {
		switch {
		case i == best:
			out[i] = boosted
		case sumOthers > sumEpsilon:
			out[i] = p / sumOthers * remaining
		default:
			out[i] = remaining / float64(len(raw)-1)
		}
	}
	return out
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
