// Tendermint adapter: uniform read access over a Cosmos SDK / Tendermint
// REST endpoint (spec.md §4.1), used for both the Noble hub and Namada.
package chainadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/hashicorp/golang-lru"
)

var jsonMarshal = json.Marshal
var jsonUnmarshal = json.Unmarshal

// Event is one Tendermint/Cosmos SDK event, transactional or
// block-finalization.
type Event struct {
	Type       string
	Attributes map[string]string
}

// TxResult is one transaction's execution result within a block.
type TxResult struct {
	Hash   string
	Events []Event
}

// BlockResults is the per-height event surface the Tendermint pollers scan
// (spec.md §4.1): transactional events nested under txs_results, and two
// distinct non-transactional buckets emitted by block finalization.
type BlockResults struct {
	Height              int64
	TxsResults          []TxResult
	FinalizeBlockEvents []Event
	EndBlockEvents      []Event
}

// TendermintAdapter is the uniform read interface over a Tendermint REST
// endpoint.
//go:generate mockgen -destination=./mocks/tendermint_adapter_mock.go -package=mocks github.com/iskay-network/usdc-flow-tracker/internal/chainadapter TendermintAdapter
type TendermintAdapter interface {
	GetLatestBlockHeight(ctx context.Context) (int64, error)
	// GetBlockResults may return nil, nil when height is not yet
	// available; TendermintClient returns an error instead.
	GetBlockResults(ctx context.Context, height int64) (*BlockResults, error)
	GetTransaction(ctx context.Context, hash string) (*TxResult, error)
	SearchTransactions(ctx context.Context, query string, page, perPage int) ([]TxResult, error)
}

// TendermintClient is the production TendermintAdapter.
type TendermintClient struct {
	urls    []string
	next    int
	client  *httpClientPool
	retry   RetryConfig
	timeout time.Duration
	cache   *fastcache.Cache
	lru     *lru.Cache // recent parsed BlockResults, keyed by height
}

// NewTendermintClient builds a TendermintClient against the given REST
// base URLs.
func NewTendermintClient(urls []string, timeout time.Duration, cacheBytes int) *TendermintClient {
	if cacheBytes <= 0 {
		cacheBytes = 32 * 1024 * 1024
	}
	l, _ := lru.New(2048)
	return &TendermintClient{
		urls:    urls,
		client:  newHTTPClientPool(timeout),
		retry:   DefaultRetryConfig,
		timeout: timeout,
		cache:   fastcache.New(cacheBytes),
		lru:     l,
	}
}

func (c *TendermintClient) baseURL() string {
	if len(c.urls) == 0 {
		return ""
	}
	u := c.urls[c.next%len(c.urls)]
	c.next++
	return u
}

func (c *TendermintClient) get(ctx context.Context, path string, out interface{}) error {
	base := c.baseURL()
	full := base + path
	return withRetry(ctx, c.retry, path, func(ctx context.Context) error {
		return getJSON(ctx, c.client.doer, full, out)
	})
}

type abciEvent struct {
	Type       string `json:"type"`
	Attributes []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"attributes"`
}

func toEvents(raw []abciEvent) []Event {
	out := make([]Event, 0, len(raw))
	for _, e := range raw {
		attrs := make(map[string]string, len(e.Attributes))
		for _, a := range e.Attributes {
			attrs[a.Key] = a.Value
		}
		out = append(out, Event{Type: e.Type, Attributes: attrs})
	}
	return out
}

type abciTxResult struct {
	Hash   string      `json:"hash"`
	Events []abciEvent `json:"events"`
}

type blockResultsResponse struct {
	Height              string         `json:"height"`
	TxsResults          []abciTxResult `json:"txs_results"`
	FinalizeBlockEvents []abciEvent    `json:"finalize_block_events"`
	EndBlockEvents      []abciEvent    `json:"end_block_events"`
}

// GetLatestBlockHeight implements TendermintAdapter.
func (c *TendermintClient) GetLatestBlockHeight(ctx context.Context) (int64, error) {
	var resp struct {
		Block struct {
			Header struct {
				Height string `json:"height"`
			} `json:"header"`
		} `json:"block"`
	}
	if err := c.get(ctx, "/cosmos/base/tendermint/v1beta1/blocks/latest", &resp); err != nil {
		return 0, err
	}
	return strconv.ParseInt(resp.Block.Header.Height, 10, 64)
}

// GetBlockResults implements TendermintAdapter. TendermintClient never
// returns (nil, nil): every failed fetch, including one for a height the
// node has not produced yet, comes back as a classified error, and the
// block scan logs and skips that height.
func (c *TendermintClient) GetBlockResults(ctx context.Context, height int64) (*BlockResults, error) {
	if cached, ok := c.lru.Get(height); ok {
		return cached.(*BlockResults), nil
	}

	var resp blockResultsResponse
	path := fmt.Sprintf("/block_results?height=%d", height)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}

	br := &BlockResults{Height: height}
	for _, tr := range resp.TxsResults {
		br.TxsResults = append(br.TxsResults, TxResult{Hash: tr.Hash, Events: toEvents(tr.Events)})
	}
	br.FinalizeBlockEvents = toEvents(resp.FinalizeBlockEvents)
	br.EndBlockEvents = toEvents(resp.EndBlockEvents)

	c.lru.Add(height, br)
	return br, nil
}

// GetTransaction implements TendermintAdapter.
func (c *TendermintClient) GetTransaction(ctx context.Context, hash string) (*TxResult, error) {
	cacheKey := []byte("tx:" + hash)
	if raw, ok := c.cache.HasGet(nil, cacheKey); ok {
		var tr TxResult
		if err := jsonUnmarshal(raw, &tr); err == nil {
			return &tr, nil
		}
	}

	var resp struct {
		TxResponse struct {
			TxHash string      `json:"txhash"`
			Events []abciEvent `json:"events"`
		} `json:"tx_response"`
	}
	path := "/cosmos/tx/v1beta1/txs/" + url.PathEscape(hash)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	tr := &TxResult{Hash: resp.TxResponse.TxHash, Events: toEvents(resp.TxResponse.Events)}
	if enc, err := jsonMarshal(tr); err == nil {
		c.cache.Set(cacheKey, enc)
	}
	return tr, nil
}

// SearchTransactions implements TendermintAdapter.
func (c *TendermintClient) SearchTransactions(ctx context.Context, query string, page, perPage int) ([]TxResult, error) {
	var resp struct {
		TxResponses []struct {
			TxHash string      `json:"txhash"`
			Events []abciEvent `json:"events"`
		} `json:"tx_responses"`
	}
	path := fmt.Sprintf("/cosmos/tx/v1beta1/txs?events=%s&pagination.offset=%d&pagination.limit=%d",
		url.QueryEscape(query), (page-1)*perPage, perPage)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	out := make([]TxResult, 0, len(resp.TxResponses))
	for _, tr := range resp.TxResponses {
		out = append(out, TxResult{Hash: tr.TxHash, Events: toEvents(tr.Events)})
	}
	return out, nil
}
