package evaldetails

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxTime is the sentinel "maximum representable time" used for
// open-ended end-of-time bounds; it round-trips through FormatISO8601 /
// ParseISO8601 as "9999-12-31T00:00:00.000Z".
var MaxTime = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// FormatISO8601 renders t as "YYYY-MM-DDTHH:MM:SS.sssZ" in UTC with
// exactly three millisecond digits, per the wire format every SDK
// must emit identically.
func FormatISO8601(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// ParseISO8601 accepts the emit format plus the looser forms other
// SDKs may send: a variable number of fractional-second digits (padded
// to three, truncated beyond six) and an optional "Z" suffix. Any other
// timezone designator (e.g. "+05:30") is rejected, since the wire
// format is always UTC.
func ParseISO8601(s string) (time.Time, error) {
	if strings.HasSuffix(s, "Z") {
		s = s[:len(s)-1]
	} else if strings.ContainsAny(s, "+") || strings.Count(s, "-") > 2 {
		return time.Time{}, fmt.Errorf("evaldetails: timestamp %q has a non-UTC timezone designator", s)
	}

	var datePart, fracPart string
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		datePart = s[:dot]
		fracPart = s[dot+1:]
	} else {
		datePart = s
	}

	base, err := time.Parse("2006-01-02T15:04:05", datePart)
	if err != nil {
		return time.Time{}, fmt.Errorf("evaldetails: parse timestamp %q: %w", s, err)
	}

	if fracPart == "" {
		return base.UTC(), nil
	}
	if len(fracPart) > 6 {
		fracPart = fracPart[:6]
	}
	padded := (fracPart + "000000")[:6]
	micros, err := strconv.ParseInt(padded, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("evaldetails: parse fractional seconds in %q: %w", s, err)
	}
	return base.Add(time.Duration(micros) * time.Microsecond).UTC(), nil
}
