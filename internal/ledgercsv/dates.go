package ledgercsv

import (
	"fmt"
	"time"

	"github.com/bufdev/capgains/internal/xtime"
)

// dateLayouts are tried in order against an input date string, matching the
// formats the original lot/gain CSV dumps accepted: ISO with a time
// component, plain ISO, and long form ("December 09, 2015").
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"January 2, 2006",
}

// ParseFlexibleDate parses s against each of dateLayouts in turn, returning
// the first successful match.
func ParseFlexibleDate(s string) (xtime.Date, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return xtime.TimeToDate(t), nil
		}
		lastErr = err
	}
	return xtime.Date{}, fmt.Errorf("ledgercsv: parsing date %q: %w", s, lastErr)
}
