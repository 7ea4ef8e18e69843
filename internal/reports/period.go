package reports

import (
	"errors"
	"fmt"
	"time"
)

// Granularity selects the calendar period used to bucket records. Month is
// what the product ships today; the other granularities plug into the same
// contract so the aggregators never assume month-sized buckets.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
	GranularityYear  Granularity = "year"
)

var (
	// ErrInvalidRange is returned when the requested range ends before it
	// starts, or when a bounded range is required but missing.
	ErrInvalidRange = errors.New("reports: invalid date range")
	// ErrUnsupportedGranularity is returned for granularities outside the
	// implemented set.
	ErrUnsupportedGranularity = errors.New("reports: unsupported granularity")
)

// Bucket is one calendar period. Start is inclusive, End exclusive, and Key
// sorts lexicographically in chronological order.
type Bucket struct {
	Key   string
	Start time.Time
	End   time.Time
}

// KeyFor maps a timestamp to the stable key of the bucket containing it.
func KeyFor(t time.Time, g Granularity) (string, error) {
	day := dayOf(t)
	switch g {
	case GranularityDay:
		return day.Format("2006-01-02"), nil
	case GranularityWeek:
		year, week := day.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week), nil
	case GranularityMonth:
		return day.Format("2006-01"), nil
	case GranularityYear:
		return day.Format("2006"), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedGranularity, g)
	}
}

// BucketsBetween enumerates the contiguous run of buckets from the one
// containing from to the one containing to. The sequence is never empty for a
// valid range: from == to yields a single bucket. Empty periods are part of
// the sequence so downstream rows stay zero-filled.
func BucketsBetween(from, to time.Time, g Granularity) ([]Bucket, error) {
	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("%w: bounded range required", ErrInvalidRange)
	}
	fromDay := dayOf(from)
	toDay := dayOf(to)
	if toDay.Before(fromDay) {
		return nil, fmt.Errorf("%w: %s precedes %s", ErrInvalidRange, toDay.Format("2006-01-02"), fromDay.Format("2006-01-02"))
	}

	start, err := bucketStart(fromDay, g)
	if err != nil {
		return nil, err
	}

	var buckets []Bucket
	for !start.After(toDay) {
		end := bucketEnd(start, g)
		key, err := KeyFor(start, g)
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, Bucket{Key: key, Start: start, End: end})
		start = end
	}
	return buckets, nil
}

func bucketStart(day time.Time, g Granularity) (time.Time, error) {
	switch g {
	case GranularityDay:
		return day, nil
	case GranularityWeek:
		// ISO weeks start on Monday.
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset), nil
	case GranularityMonth:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	case GranularityYear:
		return time.Date(day.Year(), 1, 1, 0, 0, 0, 0, time.UTC), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnsupportedGranularity, g)
	}
}

func bucketEnd(start time.Time, g Granularity) time.Time {
	switch g {
	case GranularityDay:
		return start.AddDate(0, 0, 1)
	case GranularityWeek:
		return start.AddDate(0, 0, 7)
	case GranularityMonth:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(1, 0, 0)
	}
}
