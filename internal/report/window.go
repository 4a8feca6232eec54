// Package report turns entity collections into date-bucketed figures for
// the kitchen, delivery and manager dashboards. Everything here is a pure
// function of its inputs.
package report

import (
	"errors"
	"time"
)

type Period string

const (
	PeriodToday  Period = "today"
	PeriodWeek   Period = "week"
	PeriodMonth  Period = "month"
	PeriodCustom Period = "custom"
)

var ErrInvalidWindow = errors.New("invalid report window")

// Window is a half-open [From, To) range aligned to local midnights.
type Window struct {
	Period Period    `json:"period"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
}

// Resolve builds the window for period as seen at now. from and to are
// only read for PeriodCustom and are inclusive calendar days.
func Resolve(period Period, now time.Time, from time.Time, to time.Time) (Window, error) {
	today := startOfDay(now)
	switch period {
	case PeriodToday, "":
		return Window{Period: PeriodToday, From: today, To: today.AddDate(0, 0, 1)}, nil
	case PeriodWeek:
		start := today.AddDate(0, 0, -int(today.Weekday()))
		return Window{Period: PeriodWeek, From: start, To: start.AddDate(0, 0, 7)}, nil
	case PeriodMonth:
		start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		return Window{Period: PeriodMonth, From: start, To: start.AddDate(0, 1, 0)}, nil
	case PeriodCustom:
		if from.IsZero() || to.IsZero() {
			return Window{}, ErrInvalidWindow
		}
		start := startOfDay(from.In(now.Location()))
		end := startOfDay(to.In(now.Location())).AddDate(0, 0, 1)
		if !end.After(start) {
			return Window{}, ErrInvalidWindow
		}
		return Window{Period: PeriodCustom, From: start, To: end}, nil
	default:
		return Window{}, ErrInvalidWindow
	}
}

func (w Window) Contains(t time.Time) bool {
	return !t.IsZero() && !t.Before(w.From) && t.Before(w.To)
}

// Days is the number of calendar days the window spans.
func (w Window) Days() int {
	days := 0
	for d := w.From; d.Before(w.To); d = d.AddDate(0, 0, 1) {
		days++
	}
	return days
}

// Previous is the window of the same shape immediately before w.
func (w Window) Previous() Window {
	switch w.Period {
	case PeriodMonth:
		return Window{Period: w.Period, From: w.From.AddDate(0, -1, 0), To: w.From}
	default:
		return Window{Period: w.Period, From: w.From.AddDate(0, 0, -w.Days()), To: w.From}
	}
}

type Bucket struct {
	Label string
	Start time.Time
	End   time.Time
}

// Buckets splits the window into one bucket per calendar day.
func (w Window) Buckets() []Bucket {
	buckets := make([]Bucket, 0, w.Days())
	for d := w.From; d.Before(w.To); d = d.AddDate(0, 0, 1) {
		buckets = append(buckets, Bucket{Label: w.label(d), Start: d, End: d.AddDate(0, 0, 1)})
	}
	return buckets
}

func (w Window) label(day time.Time) string {
	switch w.Period {
	case PeriodToday:
		return "today"
	case PeriodWeek:
		return day.Format("Mon")
	default:
		return day.Format("2006-01-02")
	}
}

// Index returns the bucket t falls in, or -1.
func (w Window) Index(t time.Time) int {
	if !w.Contains(t) {
		return -1
	}
	i := 0
	for d := w.From; d.Before(w.To); d = d.AddDate(0, 0, 1) {
		if sameDay(d, t.In(w.From.Location())) {
			return i
		}
		i++
	}
	return -1
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDay(a time.Time, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
