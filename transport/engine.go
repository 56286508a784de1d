package transport

import (
	"compress/gzip"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
)

// EngineCode is the numeric failure code reported by an engine when the
// blocking network call itself fails. The values follow the classic
// transfer-library convention so they stay meaningful in logs collected
// from older tooling.
type EngineCode int

const (
	CodeOK                     EngineCode = 0
	CodeUnsupportedProtocol    EngineCode = 1
	CodeURLMalformed           EngineCode = 3
	CodeCouldntResolveHost     EngineCode = 6
	CodeCouldntConnect         EngineCode = 7
	CodeWriteError             EngineCode = 23
	CodeOperationTimedout      EngineCode = 28
	CodeSendError              EngineCode = 55
	CodeRecvError              EngineCode = 56
	CodePeerFailedVerification EngineCode = 60
	CodeSSLCACertBadfile       EngineCode = 77
)

// WriteFunc receives one chunk of response body and delivers it to the
// write destination. It reports the number of bytes consumed; consuming
// fewer than len(p) aborts the transfer with CodeWriteError.
type WriteFunc func(p []byte, dest io.Writer) (int, error)

// Engine is the native per-request handle a Connection drives. The
// production engine wraps net/http; tests substitute a stub.
type Engine interface {
	// SetOption applies one option to the handle. The accepted value
	// type depends on the option; anything else is rejected.
	SetOption(opt Option, value any) error

	// Perform runs one blocking request with the currently applied
	// options. On failure it returns a *PerformError.
	Perform() error

	// ResponseCode reports the HTTP status of the last completed
	// perform, or 0 if none has completed.
	ResponseCode() int

	// Reset restores every option to its default while preserving the
	// handle identity.
	Reset()

	// Close releases the handle's resources.
	Close()
}

// optionValueString produces the registry string form for a value being
// applied. Function and writer values are recorded by address, matching
// how the introspection report renders them.
func optionValueString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case nil:
		return "0"
	case WriteFunc:
		return strconv.FormatUint(uint64(reflect.ValueOf(v).Pointer()), 10)
	case io.Writer:
		return strconv.FormatUint(uint64(reflect.ValueOf(v).Pointer()), 10)
	case []string:
		return strconv.FormatUint(uint64(reflect.ValueOf(v).Pointer()), 10)
	default:
		return fmt.Sprint(v)
	}
}

// httpEngine is the production Engine. One engine owns one http.Transport
// so keep-alive connections survive across performs on the same handle.
type httpEngine struct {
	url        string
	verifyPeer int
	verifyHost int
	caInfo     string
	caPath     string
	encoding   string
	keepAlive  int
	getFlag    int
	postFlag   int
	postFields string
	headers    []string
	writeFn    WriteFunc
	writeData  io.Writer
	noSignal   int

	transport  *http.Transport
	dirty   bool
	lastStatus int
}

func newHTTPEngine() *httpEngine {
	return &httpEngine{dirty: true}
}

func (e *httpEngine) SetOption(opt Option, value any) error {
	switch opt {
	case OptURL:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("URL option takes a string, got %T", value)
		}
		u, err := url.Parse(s)
		if err != nil {
			return err
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("url %q has no scheme or host", s)
		}
		e.url = s
	case OptVerifyPeer:
		n, err := intValue(opt, value)
		if err != nil {
			return err
		}
		e.verifyPeer = n
		e.dirty = true
	case OptVerifyHost:
		n, err := intValue(opt, value)
		if err != nil {
			return err
		}
		e.verifyHost = n
		e.dirty = true
	case OptCAInfo:
		s, ok := value.(string)
		if !ok || s == "" {
			return fmt.Errorf("CA bundle path must be a non-empty string")
		}
		e.caInfo = s
		e.dirty = true
	case OptCAPath:
		s, ok := value.(string)
		if !ok || s == "" {
			return fmt.Errorf("CA directory path must be a non-empty string")
		}
		e.caPath = s
		e.dirty = true
	case OptAcceptEncoding:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("encoding option takes a string, got %T", value)
		}
		e.encoding = s
	case OptTCPKeepAlive:
		n, err := intValue(opt, value)
		if err != nil {
			return err
		}
		e.keepAlive = n
		e.dirty = true
	case OptHTTPGet:
		n, err := intValue(opt, value)
		if err != nil {
			return err
		}
		e.getFlag = n
		if n != 0 {
			e.postFlag = 0
		}
	case OptHTTPPost:
		n, err := intValue(opt, value)
		if err != nil {
			return err
		}
		e.postFlag = n
		if n != 0 {
			e.getFlag = 0
		}
	case OptPostFields:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("post fields option takes a string, got %T", value)
		}
		// Copied into engine-owned storage; the caller's buffer does
		// not need to outlive the perform.
		e.postFields = strings.Clone(s)
	case OptWriteFunction:
		fn, ok := value.(WriteFunc)
		if !ok {
			return fmt.Errorf("write function option takes a WriteFunc, got %T", value)
		}
		e.writeFn = fn
	case OptWriteData:
		w, ok := value.(io.Writer)
		if !ok {
			return fmt.Errorf("write data option takes an io.Writer, got %T", value)
		}
		e.writeData = w
	case OptHTTPHeader:
		entries, ok := value.([]string)
		if !ok {
			return fmt.Errorf("header option takes []string, got %T", value)
		}
		for _, h := range entries {
			if strings.ContainsAny(h, "\r\n") {
				return fmt.Errorf("header entry %q contains CR/LF", h)
			}
			if !strings.Contains(h, ":") {
				return fmt.Errorf("header entry %q has no separator", h)
			}
		}
		e.headers = entries
	case OptNoSignal:
		n, err := intValue(opt, value)
		if err != nil {
			return err
		}
		e.noSignal = n
	default:
		return fmt.Errorf("unsupported option identifier %d", int(opt))
	}
	return nil
}

func intValue(opt Option, value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("option %s takes an integer, got %T", opt.Name(), value)
	}
}

func (e *httpEngine) Perform() error {
	if e.url == "" {
		return &PerformError{Code: CodeURLMalformed, Err: errors.New("no url set")}
	}

	if err := e.ensureTransport(); err != nil {
		return &PerformError{Code: CodeSSLCACertBadfile, Err: err}
	}

	method := http.MethodGet
	var body io.Reader
	if e.postFlag != 0 {
		method = http.MethodPost
		body = strings.NewReader(e.postFields)
	}

	req, err := http.NewRequest(method, e.url, body)
	if err != nil {
		return &PerformError{Code: CodeURLMalformed, Err: err}
	}
	if e.postFlag != 0 {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if e.encoding != "" {
		req.Header.Set("Accept-Encoding", e.encoding)
	}
	for _, h := range e.headers {
		name, value, _ := strings.Cut(h, ":")
		req.Header.Set(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	client := &http.Client{Transport: e.transport}
	resp, err := client.Do(req)
	if err != nil {
		return &PerformError{Code: classifyPerformError(err), Err: err}
	}
	defer resp.Body.Close()

	reader := io.Reader(resp.Body)
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return &PerformError{Code: CodeRecvError, Err: err}
		}
		defer gz.Close()
		reader = gz
	}

	if err := e.drain(reader); err != nil {
		return err
	}

	e.lastStatus = resp.StatusCode
	return nil
}

// drain streams the response body through the write callback in chunks.
func (e *httpEngine) drain(r io.Reader) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 && e.writeFn != nil {
			wrote, werr := e.writeFn(buf[:n], e.writeData)
			if werr != nil || wrote < n {
				return &PerformError{Code: CodeWriteError, Err: werr}
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return &PerformError{Code: CodeRecvError, Err: err}
		}
	}
}

func (e *httpEngine) ResponseCode() int {
	return e.lastStatus
}

func (e *httpEngine) Reset() {
	if e.transport != nil {
		e.transport.CloseIdleConnections()
	}
	*e = httpEngine{dirty: true}
}

func (e *httpEngine) Close() {
	if e.transport != nil {
		e.transport.CloseIdleConnections()
		e.transport = nil
	}
}

// ensureTransport rebuilds the handle's http.Transport after any
// option affecting the transport or its dialer changed.
func (e *httpEngine) ensureTransport() error {
	if e.transport != nil && !e.dirty {
		return nil
	}

	tlsCfg := &tls.Config{}
	pool, err := e.rootPool()
	if err != nil {
		return err
	}
	if pool != nil {
		tlsCfg.RootCAs = pool
	}
	switch {
	case e.verifyPeer == 0:
		tlsCfg.InsecureSkipVerify = true
	case e.verifyHost == 0:
		// Peer chain is still verified, hostname matching is not.
		tlsCfg.InsecureSkipVerify = true
		tlsCfg.VerifyConnection = func(cs tls.ConnectionState) error {
			return verifyChain(cs, pool)
		}
	}

	dialer := runtime.dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	if e.keepAlive == 0 {
		d := *dialer
		d.KeepAlive = -1
		dialer = &d
	}

	if e.transport != nil {
		e.transport.CloseIdleConnections()
	}
	e.transport = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSClientConfig:     tlsCfg,
		ForceAttemptHTTP2:   true,
		MaxIdleConnsPerHost: 8,
		DisableCompression:  true,
	}
	e.dirty = false
	return nil
}

func (e *httpEngine) rootPool() (*x509.CertPool, error) {
	if e.caInfo == "" && e.caPath == "" {
		return nil, nil
	}
	pool := x509.NewCertPool()
	if e.caInfo != "" {
		pem, err := os.ReadFile(e.caInfo)
		if err != nil {
			return nil, fmt.Errorf("read CA bundle: %w", err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("CA bundle %q has no usable certificates", e.caInfo)
		}
	}
	if e.caPath != "" {
		entries, err := os.ReadDir(e.caPath)
		if err != nil {
			return nil, fmt.Errorf("read CA directory: %w", err)
		}
		added := false
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			pem, err := os.ReadFile(filepath.Join(e.caPath, entry.Name()))
			if err != nil {
				continue
			}
			if pool.AppendCertsFromPEM(pem) {
				added = true
			}
		}
		if !added {
			return nil, fmt.Errorf("CA directory %q has no usable certificates", e.caPath)
		}
	}
	return pool, nil
}

func verifyChain(cs tls.ConnectionState, roots *x509.CertPool) error {
	if len(cs.PeerCertificates) == 0 {
		return errors.New("no peer certificates")
	}
	opts := x509.VerifyOptions{Roots: roots, Intermediates: x509.NewCertPool()}
	for _, cert := range cs.PeerCertificates[1:] {
		opts.Intermediates.AddCert(cert)
	}
	_, err := cs.PeerCertificates[0].Verify(opts)
	return err
}

func classifyPerformError(err error) EngineCode {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && strings.Contains(urlErr.Err.Error(), "unsupported protocol scheme") {
		return CodeUnsupportedProtocol
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CodeOperationTimedout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeOperationTimedout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return CodeCouldntResolveHost
	}

	var certErr *tls.CertificateVerificationError
	var authErr x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &authErr) || errors.As(err, &hostErr) {
		return CodePeerFailedVerification
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return CodeCouldntConnect
	}

	return CodeRecvError
}
