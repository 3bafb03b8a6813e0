package types

import "time"

const millisPerDay = int64(24 * time.Hour / time.Millisecond)

// DateOf returns midnight of t's calendar day in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// TimeOfDay returns the offset of t from its local midnight.
func TimeOfDay(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}

// Clock builds a time-of-day offset.
func Clock(hour, minute, second, millis int) time.Duration {
	return time.Duration(hour)*time.Hour +
		time.Duration(minute)*time.Minute +
		time.Duration(second)*time.Second +
		time.Duration(millis)*time.Millisecond
}

// DayNumber returns the number of days between 1970-01-01 and t's local date.
func DayNumber(t time.Time) int32 {
	y, m, d := t.Date()

	return int32(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).UnixMilli() / millisPerDay)
}

// FromDayNumber is the inverse of DayNumber, giving midnight in loc.
func FromDayNumber(n int32, loc *time.Location) time.Time {
	y, m, d := time.UnixMilli(int64(n) * millisPerDay).UTC().Date()

	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// UnixMillis returns t as milliseconds since the epoch.
func UnixMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromUnixMillis is the inverse of UnixMillis in loc.
func FromUnixMillis(ms int64, loc *time.Location) time.Time {
	return time.UnixMilli(ms).In(loc)
}
