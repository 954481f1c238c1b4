package poller

import (
	"context"

	"github.com/iskay-network/usdc-flow-tracker/internal/chainadapter"
)

// nobleDepositLatch records, for each of the two independent conditions
// NoblePollForDeposit watches, whether it has fired and at which height
// (plus the coin_received tx hash). Each condition reports its own stage
// through onUpdate as it latches (noble_cctp_minted, noble_ibc_forwarded),
// so one poller run yields both Noble StatusLog rows (spec.md §8 end-to-end
// scenario: three StatusLog rows from a single deposit flow, two of them
// from the Noble stage).
type nobleDepositLatch struct {
	coinReceived     bool
	coinReceivedTx   string
	coinReceivedHt   uint64
	ibcTransfer      bool
	ibcTransferHt    uint64
}

// NoblePollForDeposit scans for coin_received (a transactional event) and
// ibc_transfer (a finalize-block event), each latching independently, and
// reports matched only once both have fired (spec.md §4.2, "Noble poller —
// pollForDeposit").
func NoblePollForDeposit(ctx context.Context, adapter chainadapter.TendermintAdapter, p PollParams, onUpdate OnUpdate) (PollResult, error) {
	latch := &nobleDepositLatch{}

	visit := func(br *chainadapter.BlockResults) (bool, PollResult) {
		if !latch.coinReceived {
			for _, tr := range br.TxsResults {
				for _, ev := range tr.Events {
					if ev.Type != "coin_received" {
						continue
					}
					if ev.Attributes["receiver"] != p.Params.ForwardingAddress {
						continue
					}
					if ev.Attributes["amount"] != p.Params.ExpectedAmountUusdc {
						continue
					}
					latch.coinReceived = true
					latch.coinReceivedTx = tr.Hash
					latch.coinReceivedHt = uint64(br.Height)
					if onUpdate != nil {
						onUpdate(StatusUpdate{Stage: "noble_cctp_minted", TxHash: tr.Hash})
					}
					break
				}
				if latch.coinReceived {
					break
				}
			}
		}

		if !latch.ibcTransfer {
			for _, ev := range br.FinalizeBlockEvents {
				if ev.Type != "ibc_transfer" {
					continue
				}
				if ev.Attributes["sender"] != p.Params.ForwardingAddress {
					continue
				}
				if ev.Attributes["receiver"] != p.Params.NamadaReceiver {
					continue
				}
				if ev.Attributes["denom"] != "uusdc" {
					continue
				}
				latch.ibcTransfer = true
				latch.ibcTransferHt = uint64(br.Height)
				if onUpdate != nil {
					onUpdate(StatusUpdate{Stage: "noble_ibc_forwarded"})
				}
				break
			}
		}

		if latch.coinReceived && latch.ibcTransfer {
			return true, PollResult{Matched: true, TxHash: latch.coinReceivedTx, BlockHeight: latch.ibcTransferHt}
		}
		return false, PollResult{}
	}

	return scanBlocks(ctx, adapter, p, visit)
}
