package utils

import (
	"strings"
	"time"

	"github.com/itchyny/timefmt-go"
)

// DefaultTimestampFormat is the strftime format assumed for string timestamps
// when the caller does not supply one.
const DefaultTimestampFormat = "%Y-%m-%d %H:%M:%S%z"

// Iso8601Now returns the current time in ISO8601 format
func Iso8601Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// ParseEpochSeconds parses value with format and returns whole seconds since
// the Unix epoch. Formats containing '%' are strftime formats; %z accepts
// "+0200", "+02:00" and "Z", and numeric fields may be unpadded. Other
// formats are Go layouts. Values without zone information are read as UTC.
func ParseEpochSeconds(value, format string) (int64, error) {
	if format == "" {
		format = DefaultTimestampFormat
	}
	value = strings.TrimSpace(value)
	if !strings.Contains(format, "%") {
		t, err := time.Parse(format, value)
		if err != nil {
			return 0, err
		}
		return t.Unix(), nil
	}
	t, err := timefmt.Parse(value, format)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}
