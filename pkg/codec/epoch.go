package codec

import (
	"time"

	"github.com/pgstar/pgstar/pkg/datum"
)

// The engine counts dates in days and timestamps in microseconds from
// 2000-01-01, the runtime from the unix epoch. The fixed offset is 10957
// days.
const (
	epochOffsetDays   = 10957
	epochOffsetMillis = epochOffsetDays * 86_400_000
	epochOffsetMicros = epochOffsetMillis * 1000

	microsPerDay = 86_400_000_000
)

func timestampToTime(ts datum.Timestamp) time.Time {
	return time.Unix(0, (int64(ts)+epochOffsetMicros)*1000).UTC()
}

func timeToTimestamp(t time.Time) datum.Timestamp {
	return datum.Timestamp(t.UnixMicro() - epochOffsetMicros)
}

func dateToTime(d datum.Date) time.Time {
	return time.Unix(0, (int64(d)*microsPerDay+epochOffsetMicros)*1000).UTC()
}

func timeToDate(t time.Time) datum.Date {
	micros := t.UnixMicro() - epochOffsetMicros
	if micros < 0 {
		// Floor division so pre-epoch instants land on the right day.
		return datum.Date((micros - (microsPerDay - 1)) / microsPerDay)
	}
	return datum.Date(micros / microsPerDay)
}
