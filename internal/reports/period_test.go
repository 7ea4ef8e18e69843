package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBucketsBetweenMonthCoversRangeWithoutGaps(t *testing.T) {
	buckets, err := BucketsBetween(date(2023, time.November, 15), date(2024, time.February, 3), GranularityMonth)
	require.NoError(t, err)

	keys := make([]string, 0, len(buckets))
	for _, b := range buckets {
		keys = append(keys, b.Key)
	}
	assert.Equal(t, []string{"2023-11", "2023-12", "2024-01", "2024-02"}, keys)

	for i := 1; i < len(buckets); i++ {
		assert.True(t, buckets[i].Start.Equal(buckets[i-1].End), "bucket %s must start where %s ends", buckets[i].Key, buckets[i-1].Key)
		assert.Less(t, buckets[i-1].Key, buckets[i].Key, "keys must sort chronologically")
	}
}

func TestBucketsBetweenSameDayYieldsSingleBucket(t *testing.T) {
	day := date(2024, time.March, 10)
	for _, g := range []Granularity{GranularityDay, GranularityWeek, GranularityMonth, GranularityYear} {
		buckets, err := BucketsBetween(day, day, g)
		require.NoError(t, err, "granularity %s", g)
		require.Len(t, buckets, 1, "granularity %s", g)
		assert.True(t, !buckets[0].Start.After(day) && buckets[0].End.After(day), "bucket must contain the day for %s", g)
	}
}

func TestBucketsBetweenReversedRange(t *testing.T) {
	_, err := BucketsBetween(date(2024, time.February, 1), date(2024, time.January, 1), GranularityMonth)
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestBucketsBetweenUnboundedRange(t *testing.T) {
	_, err := BucketsBetween(time.Time{}, date(2024, time.January, 1), GranularityMonth)
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestBucketsBetweenUnsupportedGranularity(t *testing.T) {
	_, err := BucketsBetween(date(2024, time.January, 1), date(2024, time.February, 1), Granularity("quarter"))
	require.ErrorIs(t, err, ErrUnsupportedGranularity)
}

func TestKeyForFormats(t *testing.T) {
	ts := time.Date(2024, time.January, 7, 23, 45, 0, 0, time.UTC) // a Sunday

	cases := []struct {
		granularity Granularity
		want        string
	}{
		{GranularityDay, "2024-01-07"},
		{GranularityWeek, "2024-W01"},
		{GranularityMonth, "2024-01"},
		{GranularityYear, "2024"},
	}
	for _, tc := range cases {
		got, err := KeyFor(ts, tc.granularity)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "granularity %s", tc.granularity)
	}

	_, err := KeyFor(ts, Granularity("decade"))
	require.ErrorIs(t, err, ErrUnsupportedGranularity)
}

func TestWeekBucketsStartOnMonday(t *testing.T) {
	buckets, err := BucketsBetween(date(2024, time.January, 3), date(2024, time.January, 17), GranularityWeek)
	require.NoError(t, err)
	require.Len(t, buckets, 3)
	for _, b := range buckets {
		assert.Equal(t, time.Monday, b.Start.Weekday(), "bucket %s", b.Key)
	}
}

func TestKeyForAgreesWithBucketSequence(t *testing.T) {
	from := date(2023, time.December, 20)
	to := date(2024, time.January, 20)
	buckets, err := BucketsBetween(from, to, GranularityDay)
	require.NoError(t, err)

	index := map[string]struct{}{}
	for _, b := range buckets {
		_, seen := index[b.Key]
		require.False(t, seen, "duplicate bucket %s", b.Key)
		index[b.Key] = struct{}{}
	}

	for cursor := from; !cursor.After(to); cursor = cursor.AddDate(0, 0, 1) {
		key, err := KeyFor(cursor, GranularityDay)
		require.NoError(t, err)
		_, ok := index[key]
		assert.True(t, ok, "day %s must map into the sequence", key)
	}
}
