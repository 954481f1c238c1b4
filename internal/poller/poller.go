// Package poller implements the chain-specific event matchers of
// spec.md §4.2: each poller is stateless and reentrant, accepts a
// PollParams, and returns a PollResult describing whether (and where) a
// match was found.
package poller

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/iskay-network/usdc-flow-tracker/internal/model"
	"github.com/iskay-network/usdc-flow-tracker/internal/xlog"
)

var logger = xlog.New("poller")

// StatusUpdate is the payload an onUpdate callback receives when a poller
// observes a partial or full match worth surfacing before it returns
// (spec.md §4.3 step 5 publishes one of these per confirmed stage). The
// Noble pollers report each latched condition of their two-condition
// matches, the Namada poller reports its single match, and PollUsdcMint
// reports nothing.
type StatusUpdate struct {
	Stage   string
	Message string
	TxHash  string
}

// OnUpdate is called as a poller makes incremental progress (e.g. one of
// two latched conditions fires). It runs synchronously inside the scan, so
// the scan waits until it returns.
type OnUpdate func(StatusUpdate)

// PollParams parameterizes one poller invocation.
type PollParams struct {
	FlowID      string
	Chain       string
	StartBlock  uint64
	Timeout     time.Duration
	Interval    time.Duration
	BlockDelay  time.Duration
	Cancel      <-chan struct{}
	Params      model.TrackingParams
}

// PollResult describes the outcome of one poller invocation.
type PollResult struct {
	Matched     bool
	TxHash      string
	BlockHeight uint64
	TimedOut    bool
}

// cancelled reports whether ctx is done or the cancellation channel fired.
func cancelled(ctx context.Context, cancel <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return true
	case <-cancel:
		return true
	default:
		return false
	}
}

// sleep waits for d, returning early (as "cancelled") if ctx is cancelled.
func sleep(ctx context.Context, d time.Duration, cancel <-chan struct{}) bool {
	if d <= 0 {
		return false
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return false
	case <-ctx.Done():
		return true
	case <-cancel:
		return true
	}
}

// stripQuotes removes a single layer of surrounding double quotes from an
// attribute value, as Cosmos SDK event attributes are sometimes
// JSON-quoted strings (spec.md §4.2 attribute-handling rules).
func stripQuotes(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}

// decodePacketData tries, in order, raw JSON, a {"value": "<json>"} wrapper,
// and base64-encoded JSON, returning the first that parses (spec.md §4.2
// and §9: a single function reused by the Noble and Namada pollers).
func decodePacketData(raw string) (map[string]interface{}, bool) {
	raw = stripQuotes(raw)

	var direct map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &direct); err == nil {
		return direct, true
	}

	var wrapper struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapper); err == nil && wrapper.Value != "" {
		var inner map[string]interface{}
		if err := json.Unmarshal([]byte(wrapper.Value), &inner); err == nil {
			return inner, true
		}
	}

	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil {
		var b64 map[string]interface{}
		if err := json.Unmarshal(decoded, &b64); err == nil {
			return b64, true
		}
	}

	return nil, false
}

// attrString reads a string-typed field from a decoded packet-data map.
func attrString(m map[string]interface{}, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

// numericEqual compares two numeric strings, optionally stripping a
// trailing denom suffix (e.g. "uusdc") from either side before comparing
// (spec.md §4.2, Namada poller amount matching).
func numericEqual(a, b, stripSuffix string) bool {
	a = strings.TrimSuffix(strings.TrimSpace(a), stripSuffix)
	b = strings.TrimSuffix(strings.TrimSpace(b), stripSuffix)
	an, aerr := strconv.ParseFloat(a, 64)
	bn, berr := strconv.ParseFloat(b, 64)
	if aerr != nil || berr != nil {
		return a == b
	}
	return an == bn
}
