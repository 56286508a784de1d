// Package streaming maps the brokerage user-principals document into
// streamer credentials and drives the websocket streamer session.
package streaming

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/brokerlink-io/brokerlink/auth"
	"github.com/brokerlink-io/brokerlink/transport"
)

// ErrPrincipals reports a user-principals document that cannot be mapped
// into streamer credentials. It is distinct from the transport error
// taxonomy: the request succeeded, the payload did not.
var ErrPrincipals = errors.New("streaming: malformed user principals")

// Credentials is the streamer login credential set extracted from the
// user-principals document.
type Credentials struct {
	UserID      string
	Token       string
	Company     string
	Segment     string
	CDDomain    string
	UserGroup   string
	AccessLevel string
	Authorized  bool
	Timestamp   int64
	AppID       string
	ACL         string
}

// StreamerInfo carries everything needed to open a streamer session.
type StreamerInfo struct {
	Credentials        Credentials
	URL                string
	PrimaryAccountID   string
	EncodedCredentials string
}

// StreamerInfoFromPrincipals maps a user-principals JSON document (the
// body of a successful principals request) into a StreamerInfo. The
// first account is used.
func StreamerInfoFromPrincipals(body []byte) (*StreamerInfo, error) {
	doc := gjson.ParseBytes(body)

	accounts := doc.Get("accounts")
	if !accounts.Exists() {
		return nil, fmt.Errorf("%w: no 'accounts'", ErrPrincipals)
	}
	sinfo := doc.Get("streamerInfo")
	if !sinfo.Exists() {
		return nil, fmt.Errorf("%w: no 'streamerInfo'", ErrPrincipals)
	}
	acct := accounts.Get("0")
	if !acct.Exists() {
		return nil, fmt.Errorf("%w: 'accounts' is empty", ErrPrincipals)
	}

	require := func(v gjson.Result, field string) (string, error) {
		r := v.Get(field)
		if !r.Exists() {
			return "", fmt.Errorf("%w: missing %q", ErrPrincipals, field)
		}
		return r.String(), nil
	}

	si := &StreamerInfo{}
	var err error
	if si.Credentials.UserID, err = require(acct, "accountId"); err != nil {
		return nil, err
	}
	if si.Credentials.Token, err = require(sinfo, "token"); err != nil {
		return nil, err
	}
	if si.Credentials.Company, err = require(acct, "company"); err != nil {
		return nil, err
	}
	if si.Credentials.Segment, err = require(acct, "segment"); err != nil {
		return nil, err
	}
	if si.Credentials.CDDomain, err = require(acct, "accountCdDomainId"); err != nil {
		return nil, err
	}
	if si.Credentials.UserGroup, err = require(sinfo, "userGroup"); err != nil {
		return nil, err
	}
	if si.Credentials.AccessLevel, err = require(sinfo, "accessLevel"); err != nil {
		return nil, err
	}
	si.Credentials.Authorized = true

	ts, err := require(sinfo, "tokenTimestamp")
	if err != nil {
		return nil, err
	}
	if si.Credentials.Timestamp, err = ParseTimestamp(ts); err != nil {
		return nil, err
	}

	if si.Credentials.AppID, err = require(sinfo, "appId"); err != nil {
		return nil, err
	}
	if si.Credentials.ACL, err = require(sinfo, "acl"); err != nil {
		return nil, err
	}

	addr, err := require(sinfo, "streamerSocketUrl")
	if err != nil {
		return nil, err
	}
	si.URL = "wss://" + addr + "/ws"

	if si.PrimaryAccountID, err = require(doc, "primaryAccountId"); err != nil {
		return nil, err
	}

	si.EncodeCredentials()
	return si, nil
}

// EncodeCredentials assembles the login credential string in the wire
// field order the streamer expects and URL-escapes it.
func (si *StreamerInfo) EncodeCredentials() {
	authorized := "N"
	if si.Credentials.Authorized {
		authorized = "Y"
	}
	fields := []string{
		"userid=" + si.Credentials.UserID,
		"token=" + si.Credentials.Token,
		"company=" + si.Credentials.Company,
		"segment=" + si.Credentials.Segment,
		"cddomain=" + si.Credentials.CDDomain,
		"usergroup=" + si.Credentials.UserGroup,
		"accesslevel=" + si.Credentials.AccessLevel,
		"authorized=" + authorized,
		"acl=" + si.Credentials.ACL,
		"timestamp=" + strconv.FormatInt(si.Credentials.Timestamp, 10),
		"appid=" + si.Credentials.AppID,
	}
	si.EncodedCredentials = url.QueryEscape(strings.Join(fields, "&"))
}

// FetchStreamerInfo retrieves the user-principals document for streaming
// over one GET connection and maps it. Statuses outside 2xx are treated
// as errors here: this is the caller layer of the transport and the
// document is unusable without a success.
func FetchStreamerInfo(ctx context.Context, apiBase string, provider auth.Provider) (*StreamerInfo, error) {
	target := strings.TrimRight(apiBase, "/") +
		"/v1/userprincipals?fields=" + url.QueryEscape("streamerSubscriptionKeys,streamerConnectionInfo")

	conn, err := transport.NewHTTPSGetConnectionURL(target)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := provider.InjectHeaders(ctx, &conn.Connection); err != nil {
		return nil, fmt.Errorf("streaming: inject access token: %w", err)
	}

	status, body, _, err := conn.Execute()
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("streaming: user principals request returned status %d", status)
	}
	return StreamerInfoFromPrincipals(body)
}
