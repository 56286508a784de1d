package transport

import "sort"

// Option identifies a single configuration knob on an engine handle. The
// set is closed: the engine rejects anything outside it.
type Option int

const (
	OptURL Option = iota + 1
	OptVerifyPeer
	OptVerifyHost
	OptCAInfo
	OptCAPath
	OptAcceptEncoding
	OptTCPKeepAlive
	OptHTTPGet
	OptHTTPPost
	OptPostFields
	OptWriteFunction
	OptWriteData
	OptHTTPHeader
	OptNoSignal
)

var optionNames = map[Option]string{
	OptURL:            "URL",
	OptVerifyPeer:     "SSL_VERIFYPEER",
	OptVerifyHost:     "SSL_VERIFYHOST",
	OptCAInfo:         "CAINFO",
	OptCAPath:         "CAPATH",
	OptAcceptEncoding: "ACCEPT_ENCODING",
	OptTCPKeepAlive:   "TCP_KEEPALIVE",
	OptHTTPGet:        "HTTPGET",
	OptHTTPPost:       "POST",
	OptPostFields:     "POSTFIELDS",
	OptWriteFunction:  "WRITEFUNCTION",
	OptWriteData:      "WRITEDATA",
	OptHTTPHeader:     "HTTPHEADER",
	OptNoSignal:       "NOSIGNAL",
}

// Name returns the display name of the option, or "UNKNOWN" for an
// identifier outside the supported set.
func (o Option) Name() string {
	if s, ok := optionNames[o]; ok {
		return s
	}
	return "UNKNOWN"
}

// OptionValue is one applied option together with the string form of the
// value it was last set to.
type OptionValue struct {
	Option Option
	Value  string
}

// optionRegistry mirrors the options actually applied to the engine
// handle. It is introspection state only: behavior is never re-derived
// from it. Entries are recorded after a successful apply and never on
// failure, so the registry cannot drift from engine state.
type optionRegistry struct {
	applied map[Option]string
}

func newOptionRegistry() *optionRegistry {
	return &optionRegistry{applied: make(map[Option]string)}
}

func (r *optionRegistry) record(opt Option, value string) {
	r.applied[opt] = value
}

func (r *optionRegistry) remove(opt Option) {
	delete(r.applied, opt)
}

func (r *optionRegistry) clear() {
	r.applied = make(map[Option]string)
}

func (r *optionRegistry) get(opt Option) (string, bool) {
	v, ok := r.applied[opt]
	return v, ok
}

// entries returns the applied options in option-identifier order.
func (r *optionRegistry) entries() []OptionValue {
	out := make([]OptionValue, 0, len(r.applied))
	for opt, val := range r.applied {
		out = append(out, OptionValue{Option: opt, Value: val})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Option < out[j].Option })
	return out
}
