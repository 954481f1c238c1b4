package poller

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iskay-network/usdc-flow-tracker/internal/chainadapter"
	"github.com/iskay-network/usdc-flow-tracker/internal/chainadapter/mocks"
	"github.com/iskay-network/usdc-flow-tracker/internal/model"
)

func baseParams() PollParams {
	return PollParams{
		FlowID:     "flow-1",
		Chain:      "noble",
		StartBlock: 42569565,
		Timeout:    50 * time.Millisecond,
		Interval:   2 * time.Millisecond,
		BlockDelay: 0,
		Cancel:     make(chan struct{}),
		Params: model.TrackingParams{
			ForwardingAddress:   "noble1forwarding",
			NamadaReceiver:      "tnam1receiver",
			ExpectedAmountUusdc: "1000000uusdc",
		},
	}
}

// TestNoblePollForDeposit_Matched exercises spec.md §8's deposit happy
// path at Noble block 42569565: a coin_received event and an ibc_transfer
// finalize-block event in the same block latch both conditions at once.
func TestNoblePollForDeposit_Matched(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	adapter := mocks.NewMockTendermintAdapter(ctrl)

	adapter.EXPECT().GetLatestBlockHeight(gomock.Any()).Return(int64(42569565), nil).AnyTimes()
	adapter.EXPECT().GetBlockResults(gomock.Any(), int64(42569565)).Return(&chainadapter.BlockResults{
		Height: 42569565,
		TxsResults: []chainadapter.TxResult{
			{
				Hash: "NOBLETXHASH",
				Events: []chainadapter.Event{
					{Type: "coin_received", Attributes: map[string]string{
						"receiver": "noble1forwarding",
						"amount":   "1000000uusdc",
					}},
				},
			},
		},
		FinalizeBlockEvents: []chainadapter.Event{
			{Type: "ibc_transfer", Attributes: map[string]string{
				"sender":   "noble1forwarding",
				"receiver": "tnam1receiver",
				"denom":    "uusdc",
			}},
		},
	}, nil).AnyTimes()

	var updates []StatusUpdate
	result, err := NoblePollForDeposit(context.Background(), adapter, baseParams(), func(u StatusUpdate) {
		updates = append(updates, u)
	})

	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, "NOBLETXHASH", result.TxHash)
	assert.Equal(t, uint64(42569565), result.BlockHeight)
	require.Len(t, updates, 2)
	assert.Equal(t, "noble_cctp_minted", updates[0].Stage)
	assert.Equal(t, "noble_ibc_forwarded", updates[1].Stage)
}

// TestNoblePollForDeposit_AmountMismatch covers spec.md §8's non-matching
// amount scenario: the coin_received event never latches because its
// amount disagrees with the expected amount, so the poller times out
// instead of matching.
func TestNoblePollForDeposit_AmountMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	adapter := mocks.NewMockTendermintAdapter(ctrl)

	adapter.EXPECT().GetLatestBlockHeight(gomock.Any()).Return(int64(42569565), nil).AnyTimes()
	adapter.EXPECT().GetBlockResults(gomock.Any(), int64(42569565)).Return(&chainadapter.BlockResults{
		Height: 42569565,
		TxsResults: []chainadapter.TxResult{
			{
				Hash: "NOBLETXHASH",
				Events: []chainadapter.Event{
					{Type: "coin_received", Attributes: map[string]string{
						"receiver": "noble1forwarding",
						"amount":   "999999uusdc",
					}},
				},
			},
		},
	}, nil).AnyTimes()

	p := baseParams()
	p.Timeout = 20 * time.Millisecond
	result, err := NoblePollForDeposit(context.Background(), adapter, p, nil)

	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.True(t, result.TimedOut)
}

// TestNoblePollForDeposit_Cancelled verifies that closing the cancel
// channel stops the scan without reporting a match or a timeout.
func TestNoblePollForDeposit_Cancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	adapter := mocks.NewMockTendermintAdapter(ctrl)
	adapter.EXPECT().GetLatestBlockHeight(gomock.Any()).Return(int64(42569564), nil).AnyTimes()

	p := baseParams()
	p.Timeout = time.Second
	cancel := make(chan struct{})
	p.Cancel = cancel
	close(cancel)

	result, err := NoblePollForDeposit(context.Background(), adapter, p, nil)
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.False(t, result.TimedOut)
}
