package streaming

import (
	"errors"
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	got, err := ParseTimestamp("2018-06-12T02:18:23+0000")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2018, 6, 12, 2, 18, 23, 0, time.UTC).UnixMilli()
	if got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestParseTimestampRejectsBadInput(t *testing.T) {
	cases := []string{
		"",
		"2018-06-12T02:18:23",          // too short
		"2018-06-12T02:18:23+0100",     // non-zero offset
		"2018-06-12T02:18:23+0000 ",    // too long
		"2018-13-12T02:18:23+0000",     // invalid month
		"not-a-timestamp-at-all-x0000", // right length, garbage content
	}
	for _, in := range cases {
		if _, err := ParseTimestamp(in); !errors.Is(err, ErrPrincipals) {
			t.Fatalf("%q: expected ErrPrincipals, got %v", in, err)
		}
	}
}
