package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pgstar/pgstar/pkg/datum"
)

func TestDateConversions(t *testing.T) {
	tests := []struct {
		name string
		date datum.Date
		want time.Time
	}{
		{"engine epoch", 0, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"day after epoch", 1, time.Date(2000, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"unix epoch", -10957, time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"pre unix epoch", -10958, time.Date(1969, 12, 31, 0, 0, 0, 0, time.UTC)},
		{"far future", 36524, time.Date(2099, 12, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dateToTime(tt.date))
			assert.Equal(t, tt.date, timeToDate(tt.want))
		})
	}
}

func TestTimeToDateFloorsWithinDay(t *testing.T) {
	// Any instant inside a day maps to that day, before the engine epoch too.
	late := time.Date(1969, 12, 31, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, datum.Date(-10958), timeToDate(late))

	early := time.Date(2000, 1, 1, 0, 0, 1, 0, time.UTC)
	assert.Equal(t, datum.Date(0), timeToDate(early))
}

func TestTimestampConversions(t *testing.T) {
	tests := []struct {
		name string
		ts   datum.Timestamp
		want time.Time
	}{
		{"engine epoch", 0, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"one second", 1_000_000, time.Date(2000, 1, 1, 0, 0, 1, 0, time.UTC)},
		{"microsecond precision", 1, time.Date(2000, 1, 1, 0, 0, 0, 1000, time.UTC)},
		{"negative", -1_000_000, time.Date(1999, 12, 31, 23, 59, 59, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, timestampToTime(tt.ts))
			assert.Equal(t, tt.ts, timeToTimestamp(tt.want))
		})
	}
}

func TestTimestampNormalizesZone(t *testing.T) {
	zone := time.FixedZone("plus2", 2*60*60)
	local := time.Date(2000, 1, 1, 2, 0, 0, 0, zone)
	assert.Equal(t, datum.Timestamp(0), timeToTimestamp(local))
}
