package poller

import (
	"context"
	"encoding/json"

	"github.com/iskay-network/usdc-flow-tracker/internal/chainadapter"
)

type nobleOrbiterLatch struct {
	ack        bool
	ackTx      string
	ackHt      uint64
	burn       bool
	burnHt     uint64
}

// isSuccessAck reports whether an IBC packet_ack attribute value encodes
// the well-known success acknowledgement {"result":"AQ=="} (spec.md
// GLOSSARY).
func isSuccessAck(raw string) bool {
	raw = stripQuotes(raw)
	var ack struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal([]byte(raw), &ack); err != nil {
		return false
	}
	return ack.Result == "AQ=="
}

// NoblePollForOrbiter scans for an IBC write_acknowledgement carrying the
// expected memo/amount/receiver, and a circle.cctp.v1.DepositForBurn
// carrying the expected amount/destination_caller/mint_recipient/
// destination_domain, each latching independently (spec.md §4.2, "Noble
// poller — pollForOrbiter").
func NoblePollForOrbiter(ctx context.Context, adapter chainadapter.TendermintAdapter, p PollParams, onUpdate OnUpdate) (PollResult, error) {
	latch := &nobleOrbiterLatch{}

	visit := func(br *chainadapter.BlockResults) (bool, PollResult) {
		for _, tr := range br.TxsResults {
			if !latch.ack {
				for _, ev := range tr.Events {
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
					if attrString(data, "memo") != p.Params.MemoJson {
						continue
					}
					if attrString(data, "amount") != p.Params.AmountBaseUnits {
						continue
					}
					if attrString(data, "receiver") != p.Params.Recipient {
						continue
					}
					latch.ack = true
					latch.ackTx = tr.Hash
					latch.ackHt = uint64(br.Height)
					if onUpdate != nil {
						onUpdate(StatusUpdate{Stage: "noble_ibc_received", TxHash: tr.Hash})
					}
					break
				}
			}

			if !latch.burn {
				for _, ev := range tr.Events {
					if ev.Type != "circle.cctp.v1.DepositForBurn" {
						continue
					}
					if stripQuotes(ev.Attributes["amount"]) != p.Params.AmountBaseUnits {
						continue
					}
					if stripQuotes(ev.Attributes["destination_caller"]) != p.Params.DestinationCallerB64 {
						continue
					}
					if stripQuotes(ev.Attributes["mint_recipient"]) != p.Params.MintRecipientB64 {
						continue
					}
					if stripQuotes(ev.Attributes["destination_domain"]) != p.Params.DestinationDomain {
						continue
					}
					latch.burn = true
					latch.burnHt = uint64(br.Height)
					if onUpdate != nil {
						onUpdate(StatusUpdate{Stage: "noble_cctp_burned", TxHash: tr.Hash})
					}
					break
				}
			}

			if latch.ack && latch.burn {
				return true, PollResult{Matched: true, TxHash: latch.ackTx, BlockHeight: latch.burnHt}
			}
		}
		return false, PollResult{}
	}

	return scanBlocks(ctx, adapter, p, visit)
}
