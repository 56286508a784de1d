package transport

import (
	"compress/gzip"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestEngineGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if got := r.Header.Get("X-Probe"); got != "42" {
			t.Errorf("expected X-Probe header, got %q", got)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	c, err := NewConnectionURL(srv.URL)
	if err != nil {
		t.Fatalf("new connection: %v", err)
	}
	defer c.Close()

	if err := c.AddHeaders([]KV{{Name: "X-Probe", Value: "42"}}); err != nil {
		t.Fatalf("add headers: %v", err)
	}
	status, body, _, err := c.Execute()
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if status != http.StatusOK || string(body) != "hello" {
		t.Fatalf("expected (200, hello), got (%d, %q)", status, body)
	}
}

func TestEnginePostFields(t *testing.T) {
	var gotBody string
	var gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c, err := NewConnection()
	if err != nil {
		t.Fatalf("new connection: %v", err)
	}
	defer c.Close()

	if err := c.SetURL(srv.URL); err != nil {
		t.Fatalf("set url: %v", err)
	}
	if err := c.setOption(OptHTTPPost, 1); err != nil {
		t.Fatalf("set post: %v", err)
	}
	if err := c.setOption(OptPostFields, "a=1&b=2"); err != nil {
		t.Fatalf("set fields: %v", err)
	}

	status, _, _, err := c.Execute()
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	if gotBody != "a=1&b=2" {
		t.Fatalf("expected form body, got %q", gotBody)
	}
	if gotType != "application/x-www-form-urlencoded" {
		t.Fatalf("expected form content type, got %q", gotType)
	}
}

func TestEngineNonSuccessStatusIsData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := NewConnectionURL(srv.URL)
	if err != nil {
		t.Fatalf("new connection: %v", err)
	}
	defer c.Close()

	status, body, _, err := c.Execute()
	if err != nil {
		t.Fatalf("expected no error for non-2xx status, got %v", err)
	}
	if status != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", status)
	}
	if string(body) != "nope\n" {
		t.Fatalf("expected error page body, got %q", body)
	}
}

func TestEngineGzipResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept-Encoding"); got != "gzip" {
			t.Errorf("expected gzip accept-encoding, got %q", got)
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte("compressed payload"))
		_ = gz.Close()
	}))
	defer srv.Close()

	c, err := NewConnectionURL(srv.URL)
	if err != nil {
		t.Fatalf("new connection: %v", err)
	}
	defer c.Close()

	if err := c.SetEncoding("gzip"); err != nil {
		t.Fatalf("set encoding: %v", err)
	}
	_, body, _, err := c.Execute()
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if string(body) != "compressed payload" {
		t.Fatalf("expected decoded body, got %q", body)
	}
}

func TestEngineConnectFailureCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // nothing listens here anymore

	c, err := NewConnectionURL(url)
	if err != nil {
		t.Fatalf("new connection: %v", err)
	}
	defer c.Close()

	_, _, _, err = c.Execute()
	var perfErr *PerformError
	if !errors.As(err, &perfErr) {
		t.Fatalf("expected PerformError, got %v", err)
	}
	if perfErr.Code != CodeCouldntConnect {
		t.Fatalf("expected connect failure code %d, got %d", CodeCouldntConnect, perfErr.Code)
	}
}

func TestEngineVerifyRejectsUntrustedServer(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c, err := NewConnectionURL(srv.URL)
	if err != nil {
		t.Fatalf("new connection: %v", err)
	}
	defer c.Close()

	if err := c.SetSSLVerify(); err != nil {
		t.Fatalf("set ssl verify: %v", err)
	}
	_, _, _, err = c.Execute()
	var perfErr *PerformError
	if !errors.As(err, &perfErr) {
		t.Fatalf("expected PerformError for untrusted certificate, got %v", err)
	}
	if perfErr.Code != CodePeerFailedVerification {
		t.Fatalf("expected verification failure code %d, got %d", CodePeerFailedVerification, perfErr.Code)
	}
}

func TestEngineVerifyUsingCABundle(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("trusted"))
	}))
	defer srv.Close()

	bundle := filepath.Join(t.TempDir(), "ca.pem")
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	if err := os.WriteFile(bundle, pemBytes, 0o600); err != nil {
		t.Fatalf("write bundle: %v", err)
	}

	c, err := NewConnectionURL(srv.URL)
	if err != nil {
		t.Fatalf("new connection: %v", err)
	}
	defer c.Close()

	if err := c.SetSSLVerifyUsingCABundle(bundle); err != nil {
		t.Fatalf("set ca bundle: %v", err)
	}
	status, body, _, err := c.Execute()
	if err != nil {
		t.Fatalf("execute with pinned bundle: %v", err)
	}
	if status != http.StatusOK || string(body) != "trusted" {
		t.Fatalf("expected (200, trusted), got (%d, %q)", status, body)
	}
}

func TestEngineRejectsBadURL(t *testing.T) {
	c, err := NewConnection()
	if err != nil {
		t.Fatalf("new connection: %v", err)
	}
	defer c.Close()

	err = c.SetURL("not a url")
	var optErr *OptionError
	if !errors.As(err, &optErr) {
		t.Fatalf("expected OptionError for bad url, got %v", err)
	}
	if optErr.Option != OptURL {
		t.Fatalf("expected URL option on error, got %v", optErr.Option)
	}
}

func TestEngineCABundleMustContainCertificates(t *testing.T) {
	bundle := filepath.Join(t.TempDir(), "empty.pem")
	if err := os.WriteFile(bundle, []byte("not pem"), 0o600); err != nil {
		t.Fatalf("write bundle: %v", err)
	}

	c, err := NewConnectionURL("https://example.test")
	if err != nil {
		t.Fatalf("new connection: %v", err)
	}
	defer c.Close()

	if err := c.SetSSLVerifyUsingCABundle(bundle); err != nil {
		t.Fatalf("set ca bundle: %v", err)
	}
	_, _, _, err = c.Execute()
	var perfErr *PerformError
	if !errors.As(err, &perfErr) {
		t.Fatalf("expected PerformError for unusable bundle, got %v", err)
	}
	if perfErr.Code != CodeSSLCACertBadfile {
		t.Fatalf("expected CA bundle failure code %d, got %d", CodeSSLCACertBadfile, perfErr.Code)
	}
}

func TestEngineKeepAliveChangeRebuildsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	e := newHTTPEngine()
	defer e.Close()

	if err := e.SetOption(OptURL, srv.URL); err != nil {
		t.Fatalf("set url: %v", err)
	}
	if err := e.Perform(); err != nil {
		t.Fatalf("first perform: %v", err)
	}
	first := e.transport

	if err := e.SetOption(OptTCPKeepAlive, 1); err != nil {
		t.Fatalf("set keep-alive: %v", err)
	}
	if err := e.Perform(); err != nil {
		t.Fatalf("second perform: %v", err)
	}
	if e.transport == first {
		t.Fatal("transport not rebuilt after keep-alive change")
	}
}

func TestClassifyUnknownAuthority(t *testing.T) {
	err := x509.UnknownAuthorityError{}
	if code := classifyPerformError(err); code != CodePeerFailedVerification {
		t.Fatalf("expected verification code, got %d", code)
	}
}
