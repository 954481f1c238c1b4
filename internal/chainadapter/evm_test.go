package chainadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEVMTestServer(t *testing.T, handler func(method string) (interface{}, *rpcError)) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		result, rpcErr := handler(req.Method)
		resp := rpcResponse{Error: rpcErr}
		if result != nil {
			raw, err := json.Marshal(result)
			require.NoError(t, err)
			resp.Result = raw
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestEVMClient_GetBlockNumber(t *testing.T) {
	srv := newEVMTestServer(t, func(method string) (interface{}, *rpcError) {
		assert.Equal(t, "eth_blockNumber", method)
		return "0x2a", nil
	})
	defer srv.Close()

	c := NewEVMClient([]string{srv.URL}, time.Second, 0)
	n, err := c.GetBlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), n)
}

func TestEVMClient_GetLogs_FiltersAndCaches(t *testing.T) {
	calls := 0
	srv := newEVMTestServer(t, func(method string) (interface{}, *rpcError) {
		assert.Equal(t, "eth_getLogs", method)
		calls++
		return []rawLog{{
			Address:         "0xusdc",
			Topics:          []string{TransferEventTopic},
			Data:            "0x01",
			BlockNumber:     "0x64",
			TransactionHash: "0xabc",
			LogIndex:        "0x1",
		}}, nil
	})
	defer srv.Close()

	c := NewEVMClient([]string{srv.URL}, time.Second, 0)
	filter := LogFilter{FromBlock: 100, ToBlock: 200, Address: "0xusdc", Topics: [3]string{TransferEventTopic, "", ""}}

	logs, err := c.GetLogs(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, uint64(100), logs[0].BlockNumber)
	assert.Equal(t, "0xabc", logs[0].TxHash)
	assert.Equal(t, 1, calls)

	_, err = c.GetLogs(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "second call for the same filter must be served from cache")
}

func TestEVMClient_GetTransaction_NotFoundIsNilNotError(t *testing.T) {
	srv := newEVMTestServer(t, func(method string) (interface{}, *rpcError) {
		return nil, nil
	})
	defer srv.Close()

	c := NewEVMClient([]string{srv.URL}, time.Second, 0)
	tx, err := c.GetTransaction(context.Background(), "0xmissing")
	require.NoError(t, err)
	assert.Nil(t, tx)
}

func TestEVMClient_GetTransactionReceipt_StatusAndLogs(t *testing.T) {
	srv := newEVMTestServer(t, func(method string) (interface{}, *rpcError) {
		return rawReceipt{
			Status:      "0x1",
			BlockNumber: "0x64",
			Logs: []rawLog{{
				Address: "0xusdc", BlockNumber: "0x64", TransactionHash: "0xabc", LogIndex: "0x0",
			}},
		}, nil
	})
	defer srv.Close()

	c := NewEVMClient([]string{srv.URL}, time.Second, 0)
	r, err := c.GetTransactionReceipt(context.Background(), "0xabc")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.True(t, r.Status)
	assert.Equal(t, uint64(100), r.BlockNumber)
	require.Len(t, r.Logs, 1)
}

func TestEVMClient_RPCError_Classified(t *testing.T) {
	srv := newEVMTestServer(t, func(method string) (interface{}, *rpcError) {
		return nil, &rpcError{Code: -32602, Message: "invalid params"}
	})
	defer srv.Close()

	c := NewEVMClient([]string{srv.URL}, time.Second, 0)
	_, err := c.GetBlockNumber(context.Background())
	require.Error(t, err)
}

func TestParseLogDataAmount(t *testing.T) {
	amt, err := ParseLogDataAmount("0x00000000000000000000000000000000000000000000000000000000000003e8")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), amt.Int64())
}

func TestPad32Address(t *testing.T) {
	got := Pad32Address("0xAbC")
	assert.Equal(t, 66, len(got)) // "0x" + 64 hex chars
	assert.Equal(t, "abc", got[len(got)-3:])
	assert.Equal(t, "0x0000", got[:6])
}

func TestParseHexUint64(t *testing.T) {
	n, err := parseHexUint64("0x1a")
	require.NoError(t, err)
	assert.Equal(t, uint64(26), n)

	n, err = parseHexUint64("")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)
}

func TestToHexQuantity(t *testing.T) {
	assert.Equal(t, "0x1a", toHexQuantity(26))
}
