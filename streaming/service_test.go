package streaming

import (
	"errors"
	"testing"
)

func TestParseService(t *testing.T) {
	cases := map[string]Service{
		"NONE":                     ServiceNone,
		"ADMIN":                    ServiceAdmin,
		"ACTIVES_NASDAQ":           ServiceActivesNasdaq,
		"QUOTE":                    ServiceQuote,
		"LEVELONE_FUTURES_OPTIONS": ServiceLevelOneFuturesOptions,
		"NEWS_HEADLINE":            ServiceNewsHeadline,
		"TIMESALE_OPTIONS":         ServiceTimesaleOptions,
	}
	for name, want := range cases {
		got, err := ParseService(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got != want {
			t.Fatalf("%s: expected %v, got %v", name, want, got)
		}
		if got.String() != name {
			t.Fatalf("%s: round trip produced %q", name, got.String())
		}
	}
}

func TestParseServiceRejectsUnknown(t *testing.T) {
	for _, name := range []string{"", "quote", "CHART_FOREX", "BOGUS"} {
		if _, err := ParseService(name); !errors.Is(err, ErrUnknownService) {
			t.Fatalf("%q: expected ErrUnknownService, got %v", name, err)
		}
	}
}
