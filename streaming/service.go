package streaming

import (
	"errors"
	"fmt"
)

// Service identifies one streaming data service. The set is closed;
// ParseService rejects names outside it.
type Service int

const (
	ServiceNone Service = iota
	ServiceAdmin
	ServiceActivesNasdaq
	ServiceActivesNYSE
	ServiceActivesOTCBB
	ServiceActivesOptions
	ServiceChartEquity
	ServiceChartFutures
	ServiceChartOptions
	ServiceQuote
	ServiceLevelOneFutures
	ServiceLevelOneForex
	ServiceLevelOneFuturesOptions
	ServiceOption
	ServiceNewsHeadline
	ServiceTimesaleEquity
	ServiceTimesaleFutures
	ServiceTimesaleOptions
)

// ErrUnknownService reports a streaming service name outside the
// supported set.
var ErrUnknownService = errors.New("streaming: unknown service name")

var serviceNames = map[Service]string{
	ServiceNone:                   "NONE",
	ServiceAdmin:                  "ADMIN",
	ServiceActivesNasdaq:          "ACTIVES_NASDAQ",
	ServiceActivesNYSE:            "ACTIVES_NYSE",
	ServiceActivesOTCBB:           "ACTIVES_OTCBB",
	ServiceActivesOptions:         "ACTIVES_OPTIONS",
	ServiceChartEquity:            "CHART_EQUITY",
	ServiceChartFutures:           "CHART_FUTURES",
	ServiceChartOptions:           "CHART_OPTIONS",
	ServiceQuote:                  "QUOTE",
	ServiceLevelOneFutures:        "LEVELONE_FUTURES",
	ServiceLevelOneForex:          "LEVELONE_FOREX",
	ServiceLevelOneFuturesOptions: "LEVELONE_FUTURES_OPTIONS",
	ServiceOption:                 "OPTION",
	ServiceNewsHeadline:           "NEWS_HEADLINE",
	ServiceTimesaleEquity:         "TIMESALE_EQUITY",
	ServiceTimesaleFutures:        "TIMESALE_FUTURES",
	ServiceTimesaleOptions:        "TIMESALE_OPTIONS",
}

var servicesByName = func() map[string]Service {
	m := make(map[string]Service, len(serviceNames))
	for svc, name := range serviceNames {
		m[name] = svc
	}
	return m
}()

// ParseService resolves a wire-form service name.
func ParseService(name string) (Service, error) {
	svc, ok := servicesByName[name]
	if !ok {
		return ServiceNone, fmt.Errorf("%w: %q", ErrUnknownService, name)
	}
	return svc, nil
}

func (s Service) String() string {
	if name, ok := serviceNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Service(%d)", int(s))
}
