package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/bilix/bilix/internal/domain"
)

// Granularity is the width of one statement bucket.
type Granularity string

const (
	GranularityDay     Granularity = "day"
	GranularityWeek    Granularity = "week"
	GranularityMonth   Granularity = "month"
	GranularityQuarter Granularity = "quarter"
)

// ParseGranularity accepts day, week, month or quarter.
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(strings.ToLower(strings.TrimSpace(s)))
	switch g {
	case GranularityDay, GranularityWeek, GranularityMonth, GranularityQuarter:
		return g, nil
	}
	return "", fmt.Errorf("%w: unknown granularity %q", ErrInvalidPeriod, s)
}

// Timeframe tokens accepted by ResolveTimeframe.
const (
	Timeframe7Days   = "7days"
	Timeframe30Days  = "30days"
	Timeframe90Days  = "90days"
	TimeframeMonth   = "month"
	TimeframeQuarter = "quarter"
	TimeframeYear    = "year"
	TimeframeAll     = "all"
)

// Period is an inclusive range of calendar days. An unbounded period covers
// all time and ignores Start and End.
type Period struct {
	Timeframe   string      `json:"timeframe"`
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	Bounded     bool        `json:"bounded"`
	Granularity Granularity `json:"granularity"`
}

// AllTime returns an unbounded period bucketed by month.
func AllTime() Period {
	return Period{Timeframe: TimeframeAll, Granularity: GranularityMonth}
}

// Between returns a bounded period over [start, end].
func Between(start, end time.Time, g Granularity) Period {
	return Period{
		Timeframe:   "custom",
		Start:       domain.DateOf(start),
		End:         domain.DateOf(end),
		Bounded:     true,
		Granularity: g,
	}
}

// ResolveTimeframe turns a timeframe token into a period ending on now's day.
func ResolveTimeframe(token string, now time.Time) (Period, error) {
	today := domain.DateOf(now)
	tf := strings.ToLower(strings.TrimSpace(token))

	p := Period{Timeframe: tf, End: today, Bounded: true}
	switch tf {
	case Timeframe7Days:
		p.Start, p.Granularity = today.AddDate(0, 0, -6), GranularityDay
	case Timeframe30Days:
		p.Start, p.Granularity = today.AddDate(0, 0, -29), GranularityDay
	case Timeframe90Days:
		p.Start, p.Granularity = today.AddDate(0, 0, -89), GranularityWeek
	case TimeframeMonth:
		p.Start, p.Granularity = bucketStart(today, GranularityMonth), GranularityDay
	case TimeframeQuarter:
		p.Start, p.Granularity = bucketStart(today, GranularityQuarter), GranularityWeek
	case TimeframeYear:
		p.Start, p.Granularity = time.Date(today.Year(), 1, 1, 0, 0, 0, 0, time.UTC), GranularityMonth
	case TimeframeAll:
		return AllTime(), nil
	default:
		return Period{}, fmt.Errorf("%w: unknown timeframe %q", ErrInvalidPeriod, token)
	}
	return p, nil
}

// WithGranularity overrides the bucket width when g is non-empty.
func (p Period) WithGranularity(g string) (Period, error) {
	if strings.TrimSpace(g) == "" {
		return p, nil
	}
	parsed, err := ParseGranularity(g)
	if err != nil {
		return Period{}, err
	}
	p.Granularity = parsed
	return p, nil
}

// Contains reports whether day d falls inside the period.
func (p Period) Contains(d time.Time) bool {
	if !p.Bounded {
		return true
	}
	d = domain.DateOf(d)
	return !d.Before(p.Start) && !d.After(p.End)
}

// UpTo returns the unbounded-start period ending where p ends, used for
// point-in-time statements.
func (p Period) UpTo() Period {
	if !p.Bounded {
		return p
	}
	return Period{
		Timeframe:   p.Timeframe,
		Start:       time.Time{},
		End:         p.End,
		Bounded:     true,
		Granularity: p.Granularity,
	}
}

// BucketKey formats the bucket that contains d.
func BucketKey(d time.Time, g Granularity) string {
	d = domain.DateOf(d)
	switch g {
	case GranularityWeek:
		y, w := d.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	case GranularityMonth:
		return d.Format("2006-01")
	case GranularityQuarter:
		return fmt.Sprintf("%04d-Q%d", d.Year(), (int(d.Month())-1)/3+1)
	default:
		return d.Format("2006-01-02")
	}
}

func bucketStart(d time.Time, g Granularity) time.Time {
	d = domain.DateOf(d)
	switch g {
	case GranularityWeek:
		offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
		return d.AddDate(0, 0, -offset)
	case GranularityMonth:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	case GranularityQuarter:
		m := time.Month((int(d.Month())-1)/3*3 + 1)
		return time.Date(d.Year(), m, 1, 0, 0, 0, 0, time.UTC)
	default:
		return d
	}
}

func nextBucket(start time.Time, g Granularity) time.Time {
	switch g {
	case GranularityWeek:
		return start.AddDate(0, 0, 7)
	case GranularityMonth:
		return start.AddDate(0, 1, 0)
	case GranularityQuarter:
		return start.AddDate(0, 3, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}

// bucketSpan is one statement bucket; End is inclusive.
type bucketSpan struct {
	Key   string
	Start time.Time
	End   time.Time
}

// spans lists the contiguous buckets covering from..to. Bucket edges are
// clipped to the period so the first and last buckets may be partial.
func spans(from, to time.Time, g Granularity, clip bool) []bucketSpan {
	from, to = domain.DateOf(from), domain.DateOf(to)
	if to.Before(from) {
		return nil
	}

	var out []bucketSpan
	for s := bucketStart(from, g); !s.After(to); s = nextBucket(s, g) {
		span := bucketSpan{Key: BucketKey(s, g), Start: s, End: nextBucket(s, g).AddDate(0, 0, -1)}
		if clip {
			if span.Start.Before(from) {
				span.Start = from
			}
			if span.End.After(to) {
				span.End = to
			}
		}
		out = append(out, span)
	}
	return out
}
