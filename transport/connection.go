package transport

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultEncoding is the response content-encoding the method connection
// variants request at construction.
const DefaultEncoding = "gzip"

// KV is one name/value pair for headers and POST fields.
type KV struct {
	Name  string
	Value string
}

// headerList collects header entries in "Name: Value" wire form. The
// backing array can move on append, so the engine's header option is
// re-applied after every successful append batch.
type headerList struct {
	entries []string
}

func (l *headerList) append(entry string) error {
	if strings.ContainsAny(entry, "\r\n") {
		return errors.New("header entry contains CR/LF")
	}
	l.entries = append(l.entries, entry)
	return nil
}

func (l *headerList) pairs() []KV {
	out := make([]KV, 0, len(l.entries))
	for _, entry := range l.entries {
		name, value, _ := strings.Cut(entry, ":")
		out = append(out, KV{Name: name, Value: strings.TrimSpace(value)})
	}
	return out
}

// Connection wraps one engine handle and mirrors every applied option in
// a private registry for introspection. A Connection is not safe for
// concurrent use; distinct connections are fully independent.
type Connection struct {
	id     string
	handle Engine
	header *headerList
	opts   *optionRegistry
}

// NewConnection constructs a bare connection. The transport runtime must
// already be initialized.
func NewConnection() (*Connection, error) {
	c := &Connection{}
	if err := initConnection(c, ""); err != nil {
		return nil, err
	}
	return c, nil
}

// NewConnectionURL constructs a connection pre-seeded with a target URL.
func NewConnectionURL(url string) (*Connection, error) {
	c := &Connection{}
	if err := initConnection(c, url); err != nil {
		return nil, err
	}
	return c, nil
}

func initConnection(c *Connection, url string) error {
	if !runtimeUp() {
		return errors.New("transport runtime is not initialized")
	}
	c.id = ulid.Make().String()
	c.handle = newHTTPEngine()
	c.opts = newOptionRegistry()
	if err := c.setOption(OptNoSignal, 1); err != nil {
		return err
	}
	if url != "" {
		return c.SetURL(url)
	}
	return nil
}

// ID returns the connection's unique identifier.
func (c *Connection) ID() string { return c.id }

// Closed reports whether the handle has been released.
func (c *Connection) Closed() bool { return c.handle == nil }

// Options returns the applied options in identifier order.
func (c *Connection) Options() []OptionValue {
	return c.opts.entries()
}

// setOption applies one option to the handle and, only on success,
// records it in the registry.
func (c *Connection) setOption(opt Option, value any) error {
	if c.handle == nil {
		return ErrClosed
	}
	str := optionValueString(value)
	if err := c.handle.SetOption(opt, value); err != nil {
		return &OptionError{Option: opt, Value: str, Reason: err}
	}
	c.opts.record(opt, str)
	return nil
}

// SetURL sets the target address.
func (c *Connection) SetURL(url string) error {
	return c.setOption(OptURL, url)
}

// SetSSLVerify enables peer certificate verification and strict host
// name checking.
func (c *Connection) SetSSLVerify() error {
	if err := c.setOption(OptVerifyPeer, 1); err != nil {
		return err
	}
	return c.setOption(OptVerifyHost, 2)
}

// SetSSLVerifyUsingCABundle pins verification to the CA bundle file at
// path, implying SetSSLVerify.
func (c *Connection) SetSSLVerifyUsingCABundle(path string) error {
	if err := c.SetSSLVerify(); err != nil {
		return err
	}
	return c.setOption(OptCAInfo, path)
}

// SetSSLVerifyUsingCACerts pins verification to the CA certificates in
// dir, implying SetSSLVerify.
func (c *Connection) SetSSLVerifyUsingCACerts(dir string) error {
	if err := c.SetSSLVerify(); err != nil {
		return err
	}
	return c.setOption(OptCAPath, dir)
}

// SetEncoding requests a specific response content-encoding.
func (c *Connection) SetEncoding(encoding string) error {
	return c.setOption(OptAcceptEncoding, encoding)
}

// SetKeepAlive enables TCP keep-alive on the handle's sockets.
func (c *Connection) SetKeepAlive() error {
	return c.setOption(OptTCPKeepAlive, 1)
}

// AddHeaders appends each pair to the header list in input order and
// re-applies the whole list. An empty input is a no-op. A failed append
// is a hard error: a partially applied header list leaves the request
// state unspecified, so the caller must treat the connection as bad.
func (c *Connection) AddHeaders(headers []KV) error {
	if c.handle == nil {
		return ErrClosed
	}
	if len(headers) == 0 {
		return nil
	}
	if c.header == nil {
		c.header = &headerList{}
	}
	applied := len(c.header.entries)
	for _, h := range headers {
		entry := h.Name + ": " + h.Value
		if err := c.header.append(entry); err != nil {
			// Entries from this batch were never applied to the engine;
			// keeping them would make the introspection report lie.
			c.header.entries = c.header.entries[:applied]
			return &OptionError{Option: OptHTTPHeader, Value: entry, Reason: err}
		}
	}
	if err := c.setOption(OptHTTPHeader, c.header.entries); err != nil {
		c.header.entries = c.header.entries[:applied]
		return err
	}
	return nil
}

// ResetHeaders releases the header list and removes the header option
// from the registry.
func (c *Connection) ResetHeaders() error {
	if c.handle == nil {
		return ErrClosed
	}
	c.header = nil
	if err := c.handle.SetOption(OptHTTPHeader, []string(nil)); err != nil {
		return &OptionError{Option: OptHTTPHeader, Value: "", Reason: err}
	}
	c.opts.remove(OptHTTPHeader)
	return nil
}

// ResetOptions restores the handle to its default state, undoing every
// prior option while preserving the handle identity.
func (c *Connection) ResetOptions() error {
	if err := c.ResetHeaders(); err != nil {
		return err
	}
	c.handle.Reset()
	c.opts.clear()
	return nil
}

// Execute performs one blocking request and returns the HTTP status, the
// response body, and the completion timestamp. A non-2xx status is
// ordinary data, not an error; an engine-level failure surfaces as a
// *PerformError and the partial body from that attempt is discarded.
func (c *Connection) Execute() (int, []byte, time.Time, error) {
	if c.handle == nil {
		return 0, nil, time.Time{}, ErrClosed
	}

	sink := &bytes.Buffer{}
	var fn WriteFunc = func(p []byte, dest io.Writer) (int, error) {
		return dest.Write(p)
	}
	if err := c.setOption(OptWriteFunction, fn); err != nil {
		return 0, nil, time.Time{}, err
	}
	if err := c.setOption(OptWriteData, sink); err != nil {
		return 0, nil, time.Time{}, err
	}

	err := c.handle.Perform()
	at := time.Now()
	if err != nil {
		return 0, nil, time.Time{}, err
	}

	body := make([]byte, sink.Len())
	copy(body, sink.Bytes())
	sink.Reset()
	return c.handle.ResponseCode(), body, at, nil
}

// Close releases the header list and the handle. It is idempotent and
// safe to defer alongside explicit calls.
func (c *Connection) Close() {
	c.header = nil
	if c.handle != nil {
		c.handle.Close()
		c.handle = nil
	}
	c.opts.clear()
}

// HTTPSConnection is a connection with certificate verification enabled
// at construction.
type HTTPSConnection struct {
	Connection
}

func NewHTTPSConnection() (*HTTPSConnection, error) {
	return newHTTPS("")
}

func NewHTTPSConnectionURL(url string) (*HTTPSConnection, error) {
	return newHTTPS(url)
}

func newHTTPS(url string) (*HTTPSConnection, error) {
	c := &HTTPSConnection{}
	if err := initConnection(&c.Connection, url); err != nil {
		return nil, err
	}
	if err := c.SetSSLVerify(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// HTTPSGetConnection is an HTTPSConnection profiled for GET: gzip
// response encoding and TCP keep-alive.
type HTTPSGetConnection struct {
	HTTPSConnection
}

func NewHTTPSGetConnection() (*HTTPSGetConnection, error) {
	return newHTTPSGet("")
}

func NewHTTPSGetConnectionURL(url string) (*HTTPSGetConnection, error) {
	return newHTTPSGet(url)
}

func newHTTPSGet(url string) (*HTTPSGetConnection, error) {
	inner, err := newHTTPS(url)
	if err != nil {
		return nil, err
	}
	c := &HTTPSGetConnection{HTTPSConnection: *inner}
	if err := c.applyProfile(OptHTTPGet); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// HTTPSPostConnection is an HTTPSConnection profiled for POST: gzip
// response encoding, TCP keep-alive, and a POST fields setter.
type HTTPSPostConnection struct {
	HTTPSConnection
}

func NewHTTPSPostConnection() (*HTTPSPostConnection, error) {
	return newHTTPSPost("")
}

func NewHTTPSPostConnectionURL(url string) (*HTTPSPostConnection, error) {
	return newHTTPSPost(url)
}

func newHTTPSPost(url string) (*HTTPSPostConnection, error) {
	inner, err := newHTTPS(url)
	if err != nil {
		return nil, err
	}
	c := &HTTPSPostConnection{HTTPSConnection: *inner}
	if err := c.applyProfile(OptHTTPPost); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Connection) applyProfile(method Option) error {
	if err := c.setOption(method, 1); err != nil {
		return err
	}
	if err := c.SetEncoding(DefaultEncoding); err != nil {
		return err
	}
	return c.SetKeepAlive()
}

// SetFields builds the POST body as name=value pairs joined by '&' and
// installs it on the handle. The assembled buffer is copied at set time,
// so the pairs need not outlive the call. Values must already be
// URL-encoded by the caller. An empty list is a no-op.
func (c *HTTPSPostConnection) SetFields(fields []KV) error {
	if c.Closed() {
		return ErrClosed
	}
	if len(fields) == 0 {
		return nil
	}
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(f.Name)
		b.WriteByte('=')
		b.WriteString(f.Value)
	}
	return c.setOption(OptPostFields, b.String())
}
