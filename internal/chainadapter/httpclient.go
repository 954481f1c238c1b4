package chainadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/iskay-network/usdc-flow-tracker/internal/apperr"
)

// classifyStatus maps an HTTP status code to the transient/permanent split
// of spec.md §4.1.
func classifyStatus(code int) apperr.Kind {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return apperr.KindTransientRPC
	case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound:
		return apperr.KindPermanentRPC
	default:
		if code >= 200 && code < 300 {
			return ""
		}
		// unrecognized 4xx/5xx: treat 5xx as transient, 4xx as permanent.
		if code >= 500 {
			return apperr.KindTransientRPC
		}
		return apperr.KindPermanentRPC
	}
}

// httpDoer is the minimal surface RPC clients need; *http.Client satisfies
// it, and tests substitute a stub.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// postJSON performs an HTTP POST with a JSON body, classifying network
// errors and non-2xx statuses per spec.md §4.1, and decodes the response
// body into out when non-nil.
func postJSON(ctx context.Context, client httpDoer, url string, body interface{}, out interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return apperr.New(apperr.KindValidation, err, "marshal request body")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return apperr.New(apperr.KindPermanentRPC, err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	return doRequest(client, req, out)
}

// getJSON performs an HTTP GET, classifying errors the same way.
func getJSON(ctx context.Context, client httpDoer, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperr.New(apperr.KindPermanentRPC, err, "build request")
	}
	return doRequest(client, req, out)
}

func doRequest(client httpDoer, req *http.Request, out interface{}) error {
	resp, err := client.Do(req)
	if err != nil {
		// network-level errors (timeouts, connection refused/reset) are
		// transient per spec.md §4.1.
		return apperr.New(apperr.KindTransientRPC, err, "rpc request")
	}
	defer resp.Body.Close()

	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return apperr.New(apperr.KindTransientRPC, err, "read rpc response")
	}

	if kind := classifyStatus(resp.StatusCode); kind != "" {
		return apperr.New(kind, errHTTPStatus(resp.StatusCode, data))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return apperr.New(apperr.KindPermanentRPC, err, "decode rpc response")
		}
	}
	return nil
}

type statusErr struct {
	code int
	body string
}

func (e *statusErr) Error() string { return "unexpected http status" }

func errHTTPStatus(code int, body []byte) error {
	return &statusErr{code: code, body: string(body)}
}
