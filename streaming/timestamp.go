package streaming

import (
	"fmt"
	"time"
)

// Token timestamps arrive as "2018-06-12T02:18:23+0000": always 24
// characters, always a zero UTC offset.
const tokenTimestampLayout = "2006-01-02T15:04:05-0700"

// ParseTimestamp converts a streamer token timestamp into epoch
// milliseconds. Anything but the exact 24-character zero-offset wire
// form is rejected.
func ParseTimestamp(ts string) (int64, error) {
	if len(ts) != 24 || ts[20:] != "0000" {
		return 0, fmt.Errorf("%w: invalid token timestamp %q", ErrPrincipals, ts)
	}
	t, err := time.Parse(tokenTimestampLayout, ts)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid token timestamp %q: %v", ErrPrincipals, ts, err)
	}
	return t.UnixMilli(), nil
}
