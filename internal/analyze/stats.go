// Package analyze computes the statistical post-analysis over the
// consolidated yield table: per-year summaries against a reference baseline,
// decadal aggregation, OLS trends, Pettitt changepoints and coverage.
package analyze

import (
	"fmt"
	"math"
)

// SafePct returns 100*(a-b)/b, or nil when the baseline b is zero or not
// finite. It never panics and never returns an infinity.
func SafePct(a, b float64) *float64 {
	if b == 0 || math.IsNaN(b) || math.IsInf(b, 0) || math.IsNaN(a) || math.IsInf(a, 0) {
		return nil
	}
	v := 100 * (a - b) / b
	return &v
}

// OLSTrend fits values against years by ordinary least squares and reports
// the slope as percent per decade relative to the series mean, with R².
// Returns nils when fewer than three points are available or the series mean
// is zero. The trend always runs on raw annual values, never smoothed ones.
func OLSTrend(years []int, values []float64) (slopePctPerDecade, r2 *float64) {
	var xs, ys []float64
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		xs = append(xs, float64(years[i]))
		ys = append(ys, v)
	}
	n := float64(len(xs))
	if len(xs) < 3 {
		return nil, nil
	}

	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var sxx, sxy float64
	for i := range xs {
		dx := xs[i] - meanX
		sxx += dx * dx
		sxy += dx * (ys[i] - meanY)
	}
	if sxx == 0 {
		return nil, nil
	}
	a := sxy / sxx
	b := meanY - a*meanX

	var ssRes, ssTot float64
	for i := range xs {
		resid := ys[i] - (a*xs[i] + b)
		ssRes += resid * resid
		dy := ys[i] - meanY
		ssTot += dy * dy
	}
	if ssTot > 0 {
		v := 1 - ssRes/ssTot
		r2 = &v
	}

	if meanY == 0 {
		return nil, r2
	}
	slope := (a * 10 / meanY) * 100
	return &slope, r2
}

// Pettitt runs the Pettitt non-parametric changepoint test over the annual
// series and returns the most likely change index, the maximum |U| statistic
// and the approximate significance probability. Requires at least three
// points.
func Pettitt(values []float64) (changeIdx int, uStat, pValue float64, ok bool) {
	n := len(values)
	if n < 3 {
		return 0, 0, 0, false
	}

	// U_t = sum over i<=t, j>t of sign(x_j - x_i). The series is short
	// (decades of annual values), so the direct sum is cheap.
	var bestAbs float64
	bestIdx := 0
	for t := 0; t < n-1; t++ {
		u := 0.0
		for i := 0; i <= t; i++ {
			for j := t + 1; j < n; j++ {
				u += sign(values[j] - values[i])
			}
		}
		if math.Abs(u) > bestAbs {
			bestAbs = math.Abs(u)
			bestIdx = t
		}
	}

	nf := float64(n)
	p := 2 * math.Exp(-6*bestAbs*bestAbs/(nf*nf*nf+nf*nf))
	if p > 1 {
		p = 1
	}
	return bestIdx, bestAbs, p, true
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// RollingMean computes a trailing rolling mean with the given window,
// requiring at least window/2 (minimum 1) contributing values; entries with
// fewer are nil. Visualization smoothing only.
func RollingMean(values []float64, window int) []*float64 {
	if window <= 0 {
		window = 1
	}
	minPeriods := window / 2
	if minPeriods < 1 {
		minPeriods = 1
	}

	out := make([]*float64, len(values))
	for i := range values {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		var sum float64
		count := 0
		for j := lo; j <= i; j++ {
			if math.IsNaN(values[j]) || math.IsInf(values[j], 0) {
				continue
			}
			sum += values[j]
			count++
		}
		if count >= minPeriods {
			v := sum / float64(count)
			out[i] = &v
		}
	}
	return out
}

// DecadeOf buckets a year into its fixed decade label, e.g. 1994 -> "1990s".
func DecadeOf(year int) string {
	return fmt.Sprintf("%ds", year/10*10)
}
