// Package transport is the synchronous HTTP layer of the brokerlink
// client. It wraps a native engine handle, mirrors every applied option
// in a per-connection registry for introspection, and executes one
// blocking request per call, returning the raw (status, body, timestamp)
// result.
//
// # Lifecycle
//
// The process-wide runtime must be brought up before the first
// connection is constructed and torn down after the last one is closed:
//
//	transport.Initialize()
//	defer transport.Teardown()
//
// Connections themselves are single-threaded; drive each instance from
// one goroutine at a time. Distinct connections are independent.
//
// # Connections
//
// [NewHTTPSGetConnection] and [NewHTTPSPostConnection] build connections
// pre-profiled for the brokerage API (certificate verification, gzip
// response encoding, TCP keep-alive):
//
//	conn, err := transport.NewHTTPSPostConnectionURL(tokenURL)
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//
//	if err := conn.SetFields([]transport.KV{{Name: "grant_type", Value: "refresh_token"}}); err != nil {
//		return err
//	}
//	status, body, at, err := conn.Execute()
//
// A non-2xx status is returned as data; only engine-level failures are
// errors. Catch [ErrTransport] with errors.Is for generic handling, or
// match [*OptionError] and [*PerformError] with errors.As to tell a bad
// option apart from a network failure.
//
// # Introspection
//
// Every successfully applied option is recorded in the connection's
// option registry. [Connection.WriteOptions] renders the registry as a
// report, decoding POST fields and the live header list back into pairs.
package transport
