package report

import (
	"math"
	"sort"
	"time"
)

// Chart is the labels/data pair the dashboards plot.
type Chart struct {
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

// Filter keeps the records whose timestamp falls inside w. Records with no
// timestamp are dropped and counted in excluded.
func Filter[T any](records []T, at func(T) time.Time, w Window) (kept []T, excluded int) {
	kept = make([]T, 0, len(records))
	for _, rec := range records {
		ts := at(rec)
		if ts.IsZero() {
			excluded++
			continue
		}
		if w.Contains(ts) {
			kept = append(kept, rec)
		}
	}
	return kept, excluded
}

// Series sums value over the records falling in each day bucket of w.
func Series[T any](records []T, at func(T) time.Time, w Window, value func(T) float64) Chart {
	buckets := w.Buckets()
	chart := Chart{Labels: make([]string, len(buckets)), Data: make([]float64, len(buckets))}
	for i, b := range buckets {
		chart.Labels[i] = b.Label
	}
	for _, rec := range records {
		if i := w.Index(at(rec)); i >= 0 {
			chart.Data[i] += value(rec)
		}
	}
	return chart
}

// Trend is the percentage change from previous to current. It is 0 when
// there is no previous value to compare against.
func Trend(current float64, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return round2((current - previous) / previous * 100)
}

// OnTimeRate is onTime/completed as a percentage, 100 when nothing completed.
func OnTimeRate(completed int, onTime int) float64 {
	if completed == 0 {
		return 100
	}
	return round2(float64(onTime) / float64(completed) * 100)
}

func Average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return round2(sum / float64(len(values)))
}

type Share struct {
	Key     string `json:"key"`
	Count   int    `json:"count"`
	Percent int    `json:"percent"`
}

// Distribution converts counts into rounded percentages of their total,
// largest first.
func Distribution(counts map[string]int) []Share {
	total := 0
	for _, c := range counts {
		total += c
	}
	shares := make([]Share, 0, len(counts))
	for key, c := range counts {
		pct := 0
		if total > 0 {
			pct = int(math.Round(float64(c) / float64(total) * 100))
		}
		shares = append(shares, Share{Key: key, Count: c, Percent: pct})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Count == shares[j].Count {
			return shares[i].Key < shares[j].Key
		}
		return shares[i].Count > shares[j].Count
	})
	return shares
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}

func count[T any](T) float64 { return 1 }
