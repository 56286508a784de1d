// Command brokerlink executes one request against the brokerage API
// through the transport layer and reports the result, optionally with
// the applied option report, pacing, and latency aggregates.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/brokerlink-io/brokerlink/auth"
	"github.com/brokerlink-io/brokerlink/internal/config"
	"github.com/brokerlink-io/brokerlink/internal/credstore"
	"github.com/brokerlink-io/brokerlink/internal/metrics"
	"github.com/brokerlink-io/brokerlink/internal/tracing"
	"github.com/brokerlink-io/brokerlink/transport"
)

const maxPrintedBodyBytes = 64 * 1024

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	transport.Initialize()
	defer transport.Teardown()

	ctx := context.Background()
	tracer, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracer.Shutdown(shutdownCtx)
	}()

	provider, err := buildAuthProvider(cfg)
	if err != nil {
		return err
	}
	if provider != nil {
		defer provider.Close()
	}

	base, post, err := buildConnection(cfg)
	if err != nil {
		return err
	}
	defer base.Close()

	if err := configureConnection(ctx, cfg, base, post, provider); err != nil {
		return err
	}

	var exec transport.Executor = base
	if cfg.Rate > 0 {
		exec = transport.NewThrottled(base, cfg.Rate)
	}

	collector := metrics.NewCollector()
	for i := 0; i < cfg.Repeat; i++ {
		_, span := tracing.StartExecuteSpan(ctx, tracer.Tracer(), cfg.Method, cfg.TargetURL)
		start := time.Now()
		status, body, at, err := exec.Execute()
		latency := at.Sub(start)
		if err != nil {
			latency = time.Since(start)
		}
		tracing.EndExecuteSpan(span, status, err)
		collector.Record(latency, status, err)

		if err != nil {
			fmt.Fprintf(os.Stderr, "request %d failed: %v\n", i+1, err)
			continue
		}
		if cfg.Repeat == 1 {
			printed := body
			if len(printed) > maxPrintedBodyBytes {
				printed = printed[:maxPrintedBodyBytes]
			}
			fmt.Printf("%d %s\n%s\n", status, http.StatusText(status), printed)
		} else {
			fmt.Printf("request %d: %d %s (%d bytes, %v)\n", i+1, status, http.StatusText(status), len(body), latency)
		}
	}

	if cfg.Repeat > 1 {
		printStats(collector.Stats())
	}
	if cfg.ShowOptions {
		base.WriteOptions(os.Stdout)
	}
	return nil
}

func buildAuthProvider(cfg *config.Config) (auth.Provider, error) {
	if cfg.AccessToken != "" {
		return auth.NewStaticTokenProvider(cfg.AccessToken), nil
	}
	if cfg.CredFile != "" {
		creds, err := credstore.Load(cfg.CredFile)
		if err != nil {
			return nil, err
		}
		return auth.NewRefreshTokenProvider(cfg.TokenURL, creds.ClientID, creds.RefreshToken, time.Minute), nil
	}
	return nil, nil
}

// buildConnection returns the base connection and, for POST, the post
// variant carrying SetFields.
func buildConnection(cfg *config.Config) (*transport.Connection, *transport.HTTPSPostConnection, error) {
	if cfg.Method == http.MethodPost {
		post, err := transport.NewHTTPSPostConnectionURL(cfg.TargetURL)
		if err != nil {
			return nil, nil, err
		}
		return &post.Connection, post, nil
	}
	get, err := transport.NewHTTPSGetConnectionURL(cfg.TargetURL)
	if err != nil {
		return nil, nil, err
	}
	return &get.Connection, nil, nil
}

func configureConnection(ctx context.Context, cfg *config.Config, base *transport.Connection, post *transport.HTTPSPostConnection, provider auth.Provider) error {
	if cfg.CABundle != "" {
		if err := base.SetSSLVerifyUsingCABundle(cfg.CABundle); err != nil {
			return err
		}
	}
	if cfg.CAPath != "" {
		if err := base.SetSSLVerifyUsingCACerts(cfg.CAPath); err != nil {
			return err
		}
	}
	if cfg.Encoding != "" && cfg.Encoding != transport.DefaultEncoding {
		if err := base.SetEncoding(cfg.Encoding); err != nil {
			return err
		}
	}

	var headers []transport.KV
	for _, name := range sortedKeys(cfg.Headers) {
		headers = append(headers, transport.KV{Name: name, Value: cfg.Headers[name]})
	}
	if err := base.AddHeaders(headers); err != nil {
		return err
	}
	if provider != nil {
		if err := provider.InjectHeaders(ctx, base); err != nil {
			return err
		}
	}

	if post != nil && len(cfg.Fields) > 0 {
		var fields []transport.KV
		for _, name := range sortedKeys(cfg.Fields) {
			fields = append(fields, transport.KV{Name: name, Value: cfg.Fields[name]})
		}
		if err := post.SetFields(fields); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printStats(stats metrics.Stats) {
	fmt.Printf("\nrequests: %d (ok %d, failed %d)\n", stats.Total, stats.Successes, stats.Failures)
	fmt.Printf("latency:  min %v  mean %v  max %v\n", stats.MinLatency, stats.MeanLatency, stats.MaxLatency)
	fmt.Printf("          p50 %v  p90 %v  p99 %v\n", stats.P50Latency, stats.P90Latency, stats.P99Latency)
	for _, sc := range stats.Statuses {
		fmt.Printf("status %d: %d\n", sc.Code, sc.Count)
	}
}
