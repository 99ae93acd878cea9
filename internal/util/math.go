package util

import (
	"math"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/constraints"
)

type StatsBundle struct {
	N      int
	Avg    float64
	StdDev float64
}

// Accumulator computes a running mean and population variance (Welford).
type Accumulator struct {
	n    int
	mean float64
	m2   float64
}

func (a *Accumulator) Add(x float64) {
	a.n++
	delta := x - a.mean
	a.mean += delta / float64(a.n)
	a.m2 += delta * (x - a.mean)
}

// Bundle returns the population (ddof=0) statistics of every value added so far.
// An empty accumulator yields a zero bundle.
func (a *Accumulator) Bundle() *StatsBundle {
	if a.n == 0 {
		return &StatsBundle{}
	}
	variance := a.m2 / float64(a.n)
	if variance < 0 {
		// float rounding only; m2 is a sum of non-negative terms
		log.Warn().Msgf("variance is less than 0: %f", variance)
		variance = 0
	}
	return &StatsBundle{
		N:      a.n,
		Avg:    a.mean,
		StdDev: math.Sqrt(variance),
	}
}

func CalcPopulationStats(values []float64) *StatsBundle {
	var acc Accumulator
	for _, v := range values {
		acc.Add(v)
	}
	return acc.Bundle()
}

func CombineTwoBundles(bundle1, bundle2 *StatsBundle) *StatsBundle {
	n := bundle1.N + bundle2.N
	if n == 0 {
		return &StatsBundle{}
	}
	avg := (bundle1.Avg*float64(bundle1.N) + bundle2.Avg*float64(bundle2.N)) / float64(n)
	squareAvg := (bundle1.calcSquareAvg()*float64(bundle1.N) + bundle2.calcSquareAvg()*float64(bundle2.N)) / float64(n)
	variance := squareAvg - math.Pow(avg, 2)
	stdDev := 0.0
	if variance < 0 {
		log.Warn().Msgf("variance is less than 0: %f", variance)
	} else {
		stdDev = math.Sqrt(variance)
	}
	return &StatsBundle{
		N:      n,
		Avg:    avg,
		StdDev: stdDev,
	}
}

func RoundFloat64(f float64, n int) float64 {
	pow := math.Pow10(n)
	return math.Round(f*pow) / pow
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean[T constraints.Integer | constraints.Float](values []T) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	return sum / float64(len(values))
}

func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (bundle *StatsBundle) calcSquareAvg() float64 {
	return math.Pow(bundle.Avg, 2) + math.Pow(bundle.StdDev, 2)
}
