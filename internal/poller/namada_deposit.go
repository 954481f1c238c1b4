package poller

import (
	"context"

	"github.com/iskay-network/usdc-flow-tracker/internal/chainadapter"
)

// NamadaPollForDeposit scans end_block_events (not finalize_block_events)
// in two passes per block: first locating the "message" event that carries
// the Namada inner transaction hash as its inner-tx-hash attribute, then
// locating a matching write_acknowledgement (spec.md §4.2, "Namada poller
// — pollForDeposit"). The inner-tx-hash travels on a separate event from
// write_acknowledgement on Namada, hence the two passes.
func NamadaPollForDeposit(ctx context.Context, adapter chainadapter.TendermintAdapter, p PollParams, onUpdate OnUpdate) (PollResult, error) {
	visit := func(br *chainadapter.BlockResults) (bool, PollResult) {
		innerTxHash := ""
		for _, ev := range br.EndBlockEvents {
			if ev.Type != "message" {
				continue
			}
			if h := ev.Attributes["inner-tx-hash"]; h != "" {
				innerTxHash = h
			}
		}
		if innerTxHash == "" {
			return false, PollResult{}
		}

		for _, ev := range br.EndBlockEvents {
			if ev.Type != "write_acknowledgement" {
				continue
			}
			if !isSuccessAck(ev.Attributes["packet_ack"]) {
				continue
			}
			data, ok := decodePacketData(ev.Attributes["packet_data"])
			if !ok {
				continue
			}
			if attrString(data, "sender") != p.Params.ForwardingAddress {
				continue
			}
			if attrString(data, "receiver") != p.Params.NamadaReceiver {
				continue
			}
			if attrString(data, "denom") != "uusdc" {
				continue
			}
			if !numericEqual(attrString(data, "amount"), p.Params.ExpectedAmountUusdc, "uusdc") {
				continue
			}
			if onUpdate != nil {
				onUpdate(StatusUpdate{Stage: "namada_received", TxHash: innerTxHash})
			}
			return true, PollResult{Matched: true, TxHash: innerTxHash, BlockHeight: uint64(br.Height)}
		}
		return false, PollResult{}
	}

	return scanBlocks(ctx, adapter, p, visit)
}
