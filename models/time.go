package models

import "time"

// SortKeyFormat is the timestamp layout used for recipe version keys and
// comment sort keys. Millisecond precision keeps back-to-back mutations from
// colliding on the same key.
const SortKeyFormat = "2006-01-02T15:04:05.000Z"

// TimeToSortKey renders t as a version key.
func TimeToSortKey(t time.Time) string {
	return t.UTC().Format(SortKeyFormat)
}

// NextSortKey returns a fresh version key strictly greater than the previous
// one, so that a re-keyed record never lands back on the key it just vacated.
func NextSortKey(after string) string {
	now := TimeToSortKey(time.Now())
	if after == "" || now > after {
		return now
	}
	prev, err := time.Parse(SortKeyFormat, after)
	if err != nil {
		return now
	}
	return TimeToSortKey(prev.Add(time.Millisecond))
}
