package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iskay-network/usdc-flow-tracker/internal/model"
)

// paymentParams satisfies stagePrerequisitesMet for every chain in a
// payment flow's order, so tests that aren't specifically exercising the
// prerequisite gate can use it to keep nextChain's old "needs polling"
// behavior.
func paymentParams() model.TrackingParams {
	return model.TrackingParams{
		MemoJson:        "{}",
		AmountBaseUnits: "1000",
		Recipient:       "0xrecipient",
		UsdcAddress:     "0xusdc",
	}
}

func TestNextChain_SkipsConfirmedChains(t *testing.T) {
	order := []model.ChainKey{model.ChainEVM, model.ChainNoble, model.ChainNamada}

	var cp model.ChainProgress
	cp.SetEntry(model.ChainEVM, &model.ChainProgressEntry{Status: model.ChainStatusConfirmed})
	flow := &model.Flow{FlowType: model.FlowTypePayment, ChainProgress: cp}

	chain, done := nextChain(flow, order, paymentParams())
	assert.False(t, done)
	assert.Equal(t, model.ChainNoble, chain)
}

func TestNextChain_AllConfirmedMeansDone(t *testing.T) {
	order := []model.ChainKey{model.ChainEVM, model.ChainNoble}
	var cp model.ChainProgress
	cp.SetEntry(model.ChainEVM, &model.ChainProgressEntry{Status: model.ChainStatusConfirmed})
	cp.SetEntry(model.ChainNoble, &model.ChainProgressEntry{Status: model.ChainStatusConfirmed})
	flow := &model.Flow{FlowType: model.FlowTypePayment, ChainProgress: cp}

	_, done := nextChain(flow, order, paymentParams())
	assert.True(t, done)
}

func TestNextChain_MissingEntryIsNotConfirmed(t *testing.T) {
	order := []model.ChainKey{model.ChainEVM}
	flow := &model.Flow{FlowType: model.FlowTypePayment}
	chain, done := nextChain(flow, order, paymentParams())
	assert.False(t, done)
	assert.Equal(t, model.ChainEVM, chain)
}

func TestNextChain_MissingPrerequisitesSkipsToNextChain(t *testing.T) {
	order := []model.ChainKey{model.ChainEVM, model.ChainNoble}
	flow := &model.Flow{FlowType: model.FlowTypePayment}

	chain, done := nextChain(flow, order, model.TrackingParams{
		MemoJson: "{}", AmountBaseUnits: "1000", Recipient: "0xrecipient",
	})
	assert.False(t, done)
	assert.Equal(t, model.ChainNoble, chain, "EVM prerequisites (UsdcAddress) absent, should skip to Noble")
}

func TestNextChain_MissingPrerequisitesOnEveryChainMeansDone(t *testing.T) {
	order := []model.ChainKey{model.ChainEVM}
	flow := &model.Flow{FlowType: model.FlowTypePayment}

	_, done := nextChain(flow, order, model.TrackingParams{})
	assert.True(t, done, "no chain in order has its prerequisites met, so there is nothing left to poll")
}

func TestStagePrerequisitesMet_EVM(t *testing.T) {
	complete := model.TrackingParams{AmountBaseUnits: "1", Recipient: "0xr", UsdcAddress: "0xu"}
	assert.True(t, stagePrerequisitesMet(model.ChainEVM, model.FlowTypePayment, complete))

	missingOne := complete
	missingOne.UsdcAddress = ""
	assert.False(t, stagePrerequisitesMet(model.ChainEVM, model.FlowTypePayment, missingOne))
}

func TestStagePrerequisitesMet_NobleDepositVsPayment(t *testing.T) {
	depositParams := model.TrackingParams{ForwardingAddress: "nf1...", NamadaReceiver: "tnam1...", ExpectedAmountUusdc: "1000"}
	assert.True(t, stagePrerequisitesMet(model.ChainNoble, model.FlowTypeDeposit, depositParams))
	assert.False(t, stagePrerequisitesMet(model.ChainNoble, model.FlowTypePayment, depositParams), "payment's Noble leg needs memo/amount/recipient, not deposit's forwarding fields")

	paymentNobleParams := model.TrackingParams{MemoJson: "{}", AmountBaseUnits: "1000", Recipient: "0xr"}
	assert.True(t, stagePrerequisitesMet(model.ChainNoble, model.FlowTypePayment, paymentNobleParams))
}

func TestStagePrerequisitesMet_Namada(t *testing.T) {
	assert.True(t, stagePrerequisitesMet(model.ChainNamada, model.FlowTypeDeposit, model.TrackingParams{ForwardingAddress: "nf1...", NamadaReceiver: "tnam1..."}))
	assert.False(t, stagePrerequisitesMet(model.ChainNamada, model.FlowTypeDeposit, model.TrackingParams{}))
	assert.True(t, stagePrerequisitesMet(model.ChainNamada, model.FlowTypePayment, model.TrackingParams{}), "payment's Namada leg is client-reported, no poller prerequisites")
}

func TestChainIDFor_InitialAndDestination(t *testing.T) {
	flow := &model.Flow{
		FlowType:         model.FlowTypeDeposit,
		InitialChain:     "eip155:1",
		DestinationChain: "namada-testnet",
	}
	assert.Equal(t, "eip155:1", chainIDFor(flow, model.ChainEVM))
	assert.Equal(t, "namada-testnet", chainIDFor(flow, model.ChainNamada))
	assert.Equal(t, string(model.ChainNoble), chainIDFor(flow, model.ChainNoble), "intermediate chain falls back to its key")
}

func TestCancelled_ContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, cancelled(ctx, make(chan struct{})))
}

func TestCancelled_ChannelClosed(t *testing.T) {
	ch := make(chan struct{})
	close(ch)
	assert.True(t, cancelled(context.Background(), ch))
}

func TestCancelled_NeitherFired(t *testing.T) {
	assert.False(t, cancelled(context.Background(), make(chan struct{})))
}
