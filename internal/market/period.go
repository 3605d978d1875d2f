package market

import (
	"fmt"
	"strings"
	"time"
)

// Period selects the span of a price history.
type Period string

const (
	Period1D  Period = "1D"
	Period7D  Period = "7D"
	Period30D Period = "30D"
	Period90D Period = "90D"
	Period1Y  Period = "1Y"
	PeriodAll Period = "ALL"
)

// DefaultPeriod is used when none is requested.
const DefaultPeriod = Period30D

type periodSpec struct {
	days     string
	interval string
	points   int
	step     time.Duration
	// intraday provider series keep every sample instead of one per day.
	intraday bool
}

const day = 24 * time.Hour

var periodSpecs = map[Period]periodSpec{
	Period1D:  {days: "1", points: 24, step: time.Hour, intraday: true},
	Period7D:  {days: "7", points: 7, step: day, intraday: true},
	Period30D: {days: "30", interval: "daily", points: 30, step: day},
	Period90D: {days: "90", interval: "daily", points: 90, step: day},
	Period1Y:  {days: "365", interval: "daily", points: 365, step: day},
	PeriodAll: {days: "max", interval: "daily", points: 1095, step: day},
}

// Periods lists the supported periods in display order.
func Periods() []Period {
	return []Period{Period1D, Period7D, Period30D, Period90D, Period1Y, PeriodAll}
}

// ParsePeriod accepts a period case-insensitively. An empty string yields DefaultPeriod.
func ParsePeriod(s string) (Period, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return DefaultPeriod, nil
	}
	p := Period(s)
	if _, ok := periodSpecs[p]; !ok {
		return "", fmt.Errorf("unsupported period %q: must be one of %v", s, Periods())
	}
	return p, nil
}

func (p Period) spec() periodSpec {
	if s, ok := periodSpecs[p]; ok {
		return s
	}
	return periodSpecs[DefaultPeriod]
}

// Days is the provider "days" query value.
func (p Period) Days() string { return p.spec().days }

// Interval is the provider "interval" query value; empty lets the provider choose.
func (p Period) Interval() string { return p.spec().interval }

// Points is the length of a synthetic series for the period.
func (p Period) Points() int { return p.spec().points }

// Step is the spacing between consecutive points.
func (p Period) Step() time.Duration { return p.spec().step }

// Daily reports whether points are keyed by calendar day.
func (p Period) Daily() bool { return p.spec().step >= day }

// Intraday reports whether provider samples are kept at the provider's own
// resolution (5-minute for 1D, hourly for 7D).
func (p Period) Intraday() bool { return p.spec().intraday }

// DateLabel renders the Date field of a synthetic point at t.
func (p Period) DateLabel(t time.Time) string {
	return label(t, p.Daily())
}

// SampleLabel renders the Date field of a provider sample at t. Daily periods
// key samples by calendar day.
func (p Period) SampleLabel(t time.Time) string {
	return label(t, !p.Intraday())
}

func label(t time.Time, daily bool) string {
	if daily {
		return t.UTC().Format(time.DateOnly)
	}
	return t.UTC().Format(time.RFC3339)
}

func (p Period) String() string { return string(p) }
