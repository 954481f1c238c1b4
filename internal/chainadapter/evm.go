// EVM adapter: uniform read access over Ethereum JSON-RPC (spec.md §4.1).
package chainadapter

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/iskay-network/usdc-flow-tracker/internal/apperr"
)

// Log is one EVM event log entry.
type Log struct {
	Address     string
	Topics      []string
	Data        string // hex-encoded, 0x-prefixed
	BlockNumber uint64
	TxHash      string
	LogIndex    uint64
}

// LogFilter selects logs for EVMAdapter.GetLogs (spec.md §4.1: fromBlock,
// toBlock, contract address, up to three indexed topics).
type LogFilter struct {
	FromBlock uint64
	ToBlock   uint64
	Address   string
	Topics    [3]string // empty string = wildcard for that position
}

// Transaction is the subset of an EVM transaction the tracker needs.
type Transaction struct {
	Hash        string
	BlockNumber *uint64
}

// Receipt is the subset of an EVM transaction receipt the tracker needs.
type Receipt struct {
	Status      bool
	BlockNumber uint64
	Logs        []Log
}

// EVMAdapter is the uniform read interface over an EVM JSON-RPC endpoint.
//go:generate mockgen -destination=./mocks/evm_adapter_mock.go -package=mocks github.com/iskay-network/usdc-flow-tracker/internal/chainadapter EVMAdapter
type EVMAdapter interface {
	GetBlockNumber(ctx context.Context) (uint64, error)
	GetLogs(ctx context.Context, filter LogFilter) ([]Log, error)
	GetTransaction(ctx context.Context, hash string) (*Transaction, error)
	GetTransactionReceipt(ctx context.Context, hash string) (*Receipt, error)
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// EVMClient is the production EVMAdapter, round-robining across configured
// RPC URLs and retrying transient faults (spec.md §4.1).
type EVMClient struct {
	urls    []string
	next    int
	client  *httpClientPool
	retry   RetryConfig
	timeout time.Duration
	cache   *fastcache.Cache
}

// NewEVMClient builds an EVMClient against the given RPC URLs, caching
// recent responses in a small fastcache byte cache (cacheBytes) to avoid
// re-fetching logs for a filter a poller already ran (SPEC_FULL.md domain
// stack: fastcache in front of chain adapters).
func NewEVMClient(urls []string, timeout time.Duration, cacheBytes int) *EVMClient {
	if cacheBytes <= 0 {
		cacheBytes = 32 * 1024 * 1024
	}
	return &EVMClient{
		urls:    urls,
		client:  newHTTPClientPool(timeout),
		retry:   DefaultRetryConfig,
		timeout: timeout,
		cache:   fastcache.New(cacheBytes),
	}
}

type httpClientPool struct {
	doer httpDoer
}

func newHTTPClientPool(timeout time.Duration) *httpClientPool {
	return &httpClientPool{doer: newHTTPClient(timeout)}
}

func (c *EVMClient) url() string {
	if len(c.urls) == 0 {
		return ""
	}
	u := c.urls[c.next%len(c.urls)]
	c.next++
	return u
}

func (c *EVMClient) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	url := c.url()
	return withRetry(ctx, c.retry, method, func(ctx context.Context) error {
		var resp rpcResponse
		req := rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1}
		if err := postJSON(ctx, c.client.doer, url, req, &resp); err != nil {
			return err
		}
		if resp.Error != nil {
			// JSON-RPC level errors surface with HTTP 200; classify by
			// code the same way as HTTP status, defaulting to permanent.
			return apperr.New(classifyRPCError(resp.Error.Code), fmt.Errorf("%s", resp.Error.Message))
		}
		if out != nil && len(resp.Result) > 0 {
			return json.Unmarshal(resp.Result, out)
		}
		return nil
	})
}

func classifyRPCError(code int) apperr.Kind {
	switch code {
	case -32000, -32005: // server error / rate limited, by common convention
		return apperr.KindTransientRPC
	default:
		return apperr.KindPermanentRPC
	}
}

// GetBlockNumber implements EVMAdapter.
func (c *EVMClient) GetBlockNumber(ctx context.Context) (uint64, error) {
	var hexStr string
	if err := c.call(ctx, "eth_blockNumber", nil, &hexStr); err != nil {
		return 0, err
	}
	return parseHexUint64(hexStr)
}

type rawLog struct {
	Address          string   `json:"address"`
	Topics           []string `json:"topics"`
	Data             string   `json:"data"`
	BlockNumber      string   `json:"blockNumber"`
	TransactionHash  string   `json:"transactionHash"`
	LogIndex         string   `json:"logIndex"`
}

// GetLogs implements EVMAdapter. Filter topics follow the convention of
// spec.md §4.1: an empty topic slot means "don't filter on this position".
func (c *EVMClient) GetLogs(ctx context.Context, filter LogFilter) ([]Log, error) {
	cacheKey := fmt.Sprintf("logs:%s:%d:%d:%s", filter.Address, filter.FromBlock, filter.ToBlock, strings.Join(filter.Topics[:], ","))
	if c.cache != nil {
		if raw, ok := c.cache.HasGet(nil, []byte(cacheKey)); ok {
			var logs []Log
			if err := json.Unmarshal(raw, &logs); err == nil {
				return logs, nil
			}
		}
	}

	topics := make([]interface{}, 0, 3)
	for _, t := range filter.Topics {
		if t == "" {
			topics = append(topics, nil)
			continue
		}
		topics = append(topics, t)
	}
	// trim trailing wildcards so we don't over-constrain the filter.
	for len(topics) > 0 && topics[len(topics)-1] == nil {
		topics = topics[:len(topics)-1]
	}

	params := []interface{}{map[string]interface{}{
		"fromBlock": toHexQuantity(filter.FromBlock),
		"toBlock":   toHexQuantity(filter.ToBlock),
		"address":   filter.Address,
		"topics":    topics,
	}}

	var raws []rawLog
	if err := c.call(ctx, "eth_getLogs", params, &raws); err != nil {
		return nil, err
	}

	logs := make([]Log, 0, len(raws))
	for _, r := range raws {
		bn, err := parseHexUint64(r.BlockNumber)
		if err != nil {
			continue
		}
		li, _ := parseHexUint64(r.LogIndex)
		logs = append(logs, Log{
			Address:     r.Address,
			Topics:      r.Topics,
			Data:        r.Data,
			BlockNumber: bn,
			TxHash:      r.TransactionHash,
			LogIndex:    li,
		})
	}

	if c.cache != nil {
		if enc, err := json.Marshal(logs); err == nil {
			c.cache.Set([]byte(cacheKey), enc)
		}
	}
	return logs, nil
}

type rawTx struct {
	Hash        string `json:"hash"`
	BlockNumber string `json:"blockNumber"`
}

// GetTransaction implements EVMAdapter. A nil result (transaction not yet
// mined/found) is not an error.
func (c *EVMClient) GetTransaction(ctx context.Context, hash string) (*Transaction, error) {
	var raw *rawTx
	if err := c.call(ctx, "eth_getTransactionByHash", []interface{}{hash}, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	tx := &Transaction{Hash: raw.Hash}
	if raw.BlockNumber != "" {
		if bn, err := parseHexUint64(raw.BlockNumber); err == nil {
			tx.BlockNumber = &bn
		}
	}
	return tx, nil
}

type rawReceipt struct {
	Status      string   `json:"status"`
	BlockNumber string   `json:"blockNumber"`
	Logs        []rawLog `json:"logs"`
}

// GetTransactionReceipt implements EVMAdapter. A nil result (receipt not
// yet available) is not an error.
func (c *EVMClient) GetTransactionReceipt(ctx context.Context, hash string) (*Receipt, error) {
	var raw *rawReceipt
	if err := c.call(ctx, "eth_getTransactionReceipt", []interface{}{hash}, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	bn, _ := parseHexUint64(raw.BlockNumber)
	r := &Receipt{Status: raw.Status == "0x1", BlockNumber: bn}
	for _, l := range raw.Logs {
		lbn, _ := parseHexUint64(l.BlockNumber)
		li, _ := parseHexUint64(l.LogIndex)
		r.Logs = append(r.Logs, Log{
			Address: l.Address, Topics: l.Topics, Data: l.Data,
			BlockNumber: lbn, TxHash: l.TransactionHash, LogIndex: li,
		})
	}
	return r, nil
}

func parseHexUint64(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 16, 64)
}

func toHexQuantity(v uint64) string {
	return "0x" + strconv.FormatUint(v, 16)
}

// ParseLogDataAmount decodes the 32-byte big-endian integer carried in an
// ERC-20 Transfer log's data field (spec.md §4.1).
func ParseLogDataAmount(data string) (*big.Int, error) {
	data = strings.TrimPrefix(data, "0x")
	raw, err := hex.DecodeString(data)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(raw), nil
}

// Pad32Address left-pads an address to a 32-byte, 0x-prefixed topic value,
// as used to build the Transfer event filter topics (spec.md §4.2).
func Pad32Address(addr string) string {
	addr = strings.TrimPrefix(strings.ToLower(addr), "0x")
	if len(addr) < 64 {
		addr = strings.Repeat("0", 64-len(addr)) + addr
	}
	return "0x" + addr
}

// TransferEventTopic is keccak256("Transfer(address,address,uint256)"),
// the well-known ERC-20 Transfer event signature.
const TransferEventTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

// ZeroAddressTopic is Pad32Address for the zero address, used to match
// mint transfers (from == 0x0) in spec.md §4.2.
var ZeroAddressTopic = Pad32Address("0x0000000000000000000000000000000000000000")
