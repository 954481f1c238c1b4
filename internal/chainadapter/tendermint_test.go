package chainadapter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTendermintClient_GetLatestBlockHeight(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cosmos/base/tendermint/v1beta1/blocks/latest", r.URL.Path)
		fmt.Fprint(w, `{"block":{"header":{"height":"3418841"}}}`)
	}))
	defer srv.Close()

	c := NewTendermintClient([]string{srv.URL}, time.Second, 0)
	h, err := c.GetLatestBlockHeight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3418841), h)
}

func TestTendermintClient_GetBlockResults_ParsesAllEventBuckets(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{
			"txs_results": [{"hash":"TX1","events":[{"type":"transfer","attributes":[{"key":"amount","value":"100"}]}]}],
			"finalize_block_events": [{"type":"coin_received","attributes":[{"key":"amount","value":"100uusdc"}]}],
			"end_block_events": [{"type":"message","attributes":[{"key":"inner-tx-hash","value":"NAMADATXHASH"}]}]
		}`)
	}))
	defer srv.Close()

	c := NewTendermintClient([]string{srv.URL}, time.Second, 0)
	br, err := c.GetBlockResults(context.Background(), 3418841)
	require.NoError(t, err)
	require.NotNil(t, br)
	assert.Equal(t, int64(3418841), br.Height)
	require.Len(t, br.TxsResults, 1)
	assert.Equal(t, "TX1", br.TxsResults[0].Hash)
	require.Len(t, br.FinalizeBlockEvents, 1)
	assert.Equal(t, "100uusdc", br.FinalizeBlockEvents[0].Attributes["amount"])
	require.Len(t, br.EndBlockEvents, 1)
	assert.Equal(t, "NAMADATXHASH", br.EndBlockEvents[0].Attributes["inner-tx-hash"])

	_, err = c.GetBlockResults(context.Background(), 3418841)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "a previously fetched height must be served from the LRU cache")
}

func TestTendermintClient_GetTransaction_CachesByHash(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/cosmos/tx/v1beta1/txs/ABC123", r.URL.Path)
		fmt.Fprint(w, `{"tx_response":{"txhash":"ABC123","events":[{"type":"message","attributes":[]}]}}`)
	}))
	defer srv.Close()

	c := NewTendermintClient([]string{srv.URL}, time.Second, 0)
	tr, err := c.GetTransaction(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", tr.Hash)

	_, err = c.GetTransaction(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "a previously fetched tx hash must be served from cache")
}

func TestTendermintClient_SearchTransactions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "pagination.offset=0")
		assert.Contains(t, r.URL.RawQuery, "pagination.limit=10")
		fmt.Fprint(w, `{"tx_responses":[{"txhash":"TX1","events":[]},{"txhash":"TX2","events":[]}]}`)
	}))
	defer srv.Close()

	c := NewTendermintClient([]string{srv.URL}, time.Second, 0)
	txs, err := c.SearchTransactions(context.Background(), "message.action='/MsgSend'", 1, 10)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "TX1", txs[0].Hash)
	assert.Equal(t, "TX2", txs[1].Hash)
}

func TestToEvents(t *testing.T) {
	raw := []abciEvent{{
		Type: "coin_received",
		Attributes: []struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		}{{Key: "amount", Value: "100uusdc"}},
	}}
	events := toEvents(raw)
	require.Len(t, events, 1)
	assert.Equal(t, "coin_received", events[0].Type)
	assert.Equal(t, "100uusdc", events[0].Attributes["amount"])
}
