package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iskay-network/usdc-flow-tracker/internal/events"
	"github.com/iskay-network/usdc-flow-tracker/internal/model"
	"github.com/iskay-network/usdc-flow-tracker/internal/store"
	"github.com/iskay-network/usdc-flow-tracker/internal/store/mocks"
)

func newTestServer(repo store.Repository) *Server {
	return New(repo, nil, events.NewHub(), nil, nil)
}

func TestHandleGetFlow_Found(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := mocks.NewMockRepository(ctrl)
	flow := &model.Flow{ID: "flow-1", Status: model.StatusPending}
	repo.EXPECT().GetFlow(gomock.Any(), "flow-1").Return(flow, nil)

	s := newTestServer(repo)
	req := httptest.NewRequest(http.MethodGet, "/flow/flow-1", nil)
	w := httptest.NewRecorder()
	s.handleGetFlow(w, req, httprouter.Params{{Key: "id", Value: "flow-1"}})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"flow-1"`)
}

func TestHandleGetFlow_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().GetFlow(gomock.Any(), "missing").Return(nil, store.ErrNotFound)

	s := newTestServer(repo)
	req := httptest.NewRequest(http.MethodGet, "/flow/missing", nil)
	w := httptest.NewRecorder()
	s.handleGetFlow(w, req, httprouter.Params{{Key: "id", Value: "missing"}})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGetStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := mocks.NewMockRepository(ctrl)
	flow := &model.Flow{ID: "flow-1", Status: model.StatusCompleted}
	repo.EXPECT().GetFlow(gomock.Any(), "flow-1").Return(flow, nil)

	s := newTestServer(repo)
	req := httptest.NewRequest(http.MethodGet, "/flow/flow-1/status", nil)
	w := httptest.NewRecorder()
	s.handleGetStatus(w, req, httprouter.Params{{Key: "id", Value: "flow-1"}})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"completed"`)
}

func TestHandlePostStage_ConfirmsEntryAndPublishes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := mocks.NewMockRepository(ctrl)

	flow := &model.Flow{ID: "flow-1", Status: model.StatusPending}
	repo.EXPECT().UpdateFlow(gomock.Any(), "flow-1", gomock.Any()).DoAndReturn(
		func(ctx context.Context, flowID string, mutate func(*model.Flow) error) error {
			return mutate(flow)
		})
	repo.EXPECT().AppendStatusLog(gomock.Any(), gomock.Any()).Return(nil)

	s := newTestServer(repo)
	body := strings.NewReader(`{"chain":"namada","stage":"namada_payment_sent","status":"confirmed","txHash":"tx123"}`)
	req := httptest.NewRequest(http.MethodPost, "/flow/flow-1/stage", body)
	w := httptest.NewRecorder()
	s.handlePostStage(w, req, httprouter.Params{{Key: "id", Value: "flow-1"}})

	assert.Equal(t, http.StatusNoContent, w.Code)
	entry := flow.ChainProgress.Entry(model.ChainNamada)
	require.NotNil(t, entry)
	assert.Equal(t, model.ChainStatusConfirmed, entry.Status)
	assert.Equal(t, "tx123", entry.TxHash)
	require.Len(t, entry.Stages, 1)
}

func TestHandlePostStage_MissingFieldsRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := mocks.NewMockRepository(ctrl)

	s := newTestServer(repo)
	body := strings.NewReader(`{"stage":"x"}`)
	req := httptest.NewRequest(http.MethodPost, "/flow/flow-1/stage", body)
	w := httptest.NewRecorder()
	s.handlePostStage(w, req, httprouter.Params{{Key: "id", Value: "flow-1"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlePostStage_TerminalFlowIsNoop(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := mocks.NewMockRepository(ctrl)

	flow := &model.Flow{ID: "flow-1", Status: model.StatusCompleted}
	repo.EXPECT().UpdateFlow(gomock.Any(), "flow-1", gomock.Any()).DoAndReturn(
		func(ctx context.Context, flowID string, mutate func(*model.Flow) error) error {
			// GormRepository.UpdateFlow translates store.ErrNoop to nil.
			if err := mutate(flow); err != nil && err != store.ErrNoop {
				return err
			}
			return nil
		})
	// the terminal-status guard made the flow update a no-op, so the
	// handler must not append a StatusLog row either.
	repo.EXPECT().AppendStatusLog(gomock.Any(), gomock.Any()).Times(0)

	s := newTestServer(repo)
	body := strings.NewReader(`{"chain":"namada","stage":"namada_payment_sent","status":"confirmed"}`)
	req := httptest.NewRequest(http.MethodPost, "/flow/flow-1/stage", body)
	w := httptest.NewRecorder()
	s.handlePostStage(w, req, httprouter.Params{{Key: "id", Value: "flow-1"}})

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandleGetByHash(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := mocks.NewMockRepository(ctrl)
	flow := &model.Flow{ID: "flow-1"}
	repo.EXPECT().GetFlowByChainTxHash(gomock.Any(), model.ChainEVM, "0xabc").Return(flow, nil)

	s := newTestServer(repo)
	req := httptest.NewRequest(http.MethodGet, "/flow/by-hash/evm/0xabc", nil)
	w := httptest.NewRecorder()
	s.handleGetByHash(w, req, httprouter.Params{{Key: "chain", Value: "evm"}, {Key: "hash", Value: "0xabc"}})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.handleHealth(w, req, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
