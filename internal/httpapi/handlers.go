package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	uuid "github.com/satori/go.uuid"

	"github.com/iskay-network/usdc-flow-tracker/internal/apperr"
	"github.com/iskay-network/usdc-flow-tracker/internal/events"
	"github.com/iskay-network/usdc-flow-tracker/internal/model"
	"github.com/iskay-network/usdc-flow-tracker/internal/store"
)

// trackFlowRequest is POST /track/flow's body (spec.md §6).
type trackFlowRequest struct {
	FlowType         string                 `json:"flowType"`
	InitialChain     string                 `json:"initialChain"`
	DestinationChain string                 `json:"destinationChain"`
	ChainType        string                 `json:"chainType"`
	TxHash           string                 `json:"txHash"`
	Metadata         map[string]interface{} `json:"metadata"`
	ChainProgress    *model.ChainProgress   `json:"chainProgress"`
}

func (s *Server) handleTrackFlow(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req trackFlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("body", "invalid JSON"))
		return
	}
	if req.FlowType == "" || req.InitialChain == "" || req.DestinationChain == "" {
		writeError(w, apperr.Validation("flowType", "flowType, initialChain, and destinationChain are required"))
		return
	}

	flow := &model.Flow{
		ID:               uuid.NewV4().String(),
		TxHash:           req.TxHash,
		FlowType:         model.FlowType(req.FlowType),
		InitialChain:     req.InitialChain,
		DestinationChain: req.DestinationChain,
		Status:           model.StatusPending,
		Metadata:         req.Metadata,
	}
	if req.ChainProgress != nil {
		flow.ChainProgress = *req.ChainProgress
	} else {
		for _, key := range model.InitialChainKeys(flow.FlowType) {
			flow.ChainProgress.SetEntry(key, &model.ChainProgressEntry{Status: model.ChainStatusPending})
		}
	}

	existed, err := s.repo.CreateFlow(r.Context(), flow)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.w.EnsureTracking(r.Context(), flow, !existed); err != nil {
		logger.Warn("failed to enqueue tracking job", "flowId", flow.ID, "err", err)
	}

	writeJSON(w, http.StatusOK, flow)
}

func (s *Server) handleGetFlow(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	flow, err := s.repo.GetFlow(r.Context(), ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, flow)
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	flow, err := s.repo.GetFlow(r.Context(), ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		ID            string               `json:"id"`
		Status        model.FlowStatus     `json:"status"`
		ChainProgress model.ChainProgress  `json:"chainProgress"`
	}{flow.ID, flow.Status, flow.ChainProgress})
}

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	logs, err := s.repo.ListStatusLogs(r.Context(), ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleGetJobs(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	jobs, err := s.q.JobsForFlow(r.Context(), ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// postStageRequest is POST /flow/:id/stage's body (spec.md §6).
type postStageRequest struct {
	Chain      string                 `json:"chain"`
	Stage      string                 `json:"stage"`
	Status     string                 `json:"status"`
	Message    string                 `json:"message"`
	TxHash     string                 `json:"txHash"`
	OccurredAt *time.Time             `json:"occurredAt"`
	Metadata   map[string]interface{} `json:"metadata"`
	Kind       string                 `json:"kind"`
	Source     string                 `json:"source"`
}

func (s *Server) handlePostStage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	flowID := ps.ByName("id")
	var req postStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("body", "invalid JSON"))
		return
	}
	if req.Chain == "" || req.Stage == "" {
		writeError(w, apperr.Validation("chain", "chain and stage are required"))
		return
	}

	occurredAt := time.Now()
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}
	status := model.ChainStatus(req.Status)
	if status == "" {
		status = model.ChainStatusConfirmed
	}
	source := model.StageSource(req.Source)
	if source == "" {
		source = model.SourceClient
	}
	chain := model.ChainKey(req.Chain)

	stage := model.Stage{
		Stage: req.Stage, Status: status, Message: req.Message,
		TxHash: req.TxHash, OccurredAt: occurredAt, Source: source, Metadata: req.Metadata,
	}

	applied := false
	err := s.repo.UpdateFlow(r.Context(), flowID, func(f *model.Flow) error {
		if f.Status.Terminal() {
			return store.ErrNoop
		}
		entry := f.ChainProgress.Entry(chain)
		if entry == nil {
			entry = &model.ChainProgressEntry{}
		}
		if req.Kind == "gasless" {
			entry.GaslessStages = append(entry.GaslessStages, stage)
		} else {
			entry.Stages = append(entry.Stages, stage)
			if status == model.ChainStatusConfirmed {
				entry.Status = model.ChainStatusConfirmed
				entry.TxHash = req.TxHash
			}
		}
		f.ChainProgress.SetEntry(chain, entry)
		applied = true
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if !applied {
		// terminal flow: nothing changed, so no log row and no event.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	logEntry := &model.StatusLog{
		FlowID: flowID, Stage: req.Stage, Chain: chain, Source: source,
		Detail: req.Metadata, CreatedAt: occurredAt,
	}
	if err := s.repo.AppendStatusLog(r.Context(), logEntry); err != nil {
		logger.Warn("failed to append status log for client stage", "flowId", flowID, "err", err)
	}
	s.hub.Publish(events.StatusUpdate{
		FlowID: flowID, Chain: chain, Stage: req.Stage, Status: status,
		Message: req.Message, TxHash: req.TxHash,
		OccurredAt: occurredAt.Format(time.RFC3339), Source: source, Metadata: req.Metadata,
	})

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetByHash(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	chain := model.ChainKey(ps.ByName("chain"))
	hash := ps.ByName("hash")
	flow, err := s.repo.GetFlowByChainTxHash(r.Context(), chain, hash)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, flow)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case err == store.ErrNotFound:
		status = http.StatusNotFound
	case apperr.Is(err, apperr.KindValidation):
		status = http.StatusBadRequest
	case apperr.Is(err, apperr.KindData):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{err.Error()})
}
