package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/straye-as/opportunity-sync/internal/domain"
	"github.com/straye-as/opportunity-sync/internal/service"
	"go.uber.org/zap"
)

// OpportunitySyncHandler exposes matching, sync and fetch operations
type OpportunitySyncHandler struct {
	matchingService *service.MatchingService
	syncService     *service.SyncService
	loader          *service.OpportunityLoader
	maxBodyBytes    int64
	logger          *zap.Logger
}

// NewOpportunitySyncHandler creates a new handler instance
func NewOpportunitySyncHandler(
	matchingService *service.MatchingService,
	syncService *service.SyncService,
	loader *service.OpportunityLoader,
	maxBodyBytes int64,
	logger *zap.Logger,
) *OpportunitySyncHandler {
	return &OpportunitySyncHandler{
		matchingService: matchingService,
		syncService:     syncService,
		loader:          loader,
		maxBodyBytes:    maxBodyBytes,
		logger:          logger,
	}
}

// StartMatching accepts master and child rows and starts a matching pass.
// Responds 202 with the operation id to poll.
// @Summary Start matching
// @Description Pair every child opportunity with at most one master opportunity in the background
// @Tags Matching
// @Accept json
// @Produce json
// @Param request body domain.StartMatchingRequest true "Master and child rows"
// @Success 202 {object} domain.OperationStartedDTO
// @Failure 400 {object} domain.APIError
// @Failure 413 {object} domain.APIError
// @Router /match [post]
func (h *OpportunitySyncHandler) StartMatching(w http.ResponseWriter, r *http.Request) {
	var req domain.StartMatchingRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		respondDecodeError(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	in := service.MatchingRequest{
		Masters:  make([]domain.Opportunity, len(req.Masters)),
		Children: make([]domain.Opportunity, len(req.Children)),
		Strategy: req.Strategy,
	}
	for i, m := range req.Masters {
		in.Masters[i] = m.ToOpportunity(i + 1)
	}
	for i, c := range req.Children {
		in.Children[i] = c.ToOpportunity(i + 1)
	}
	if req.MatchThreshold != nil || req.HighConfidenceThreshold != nil {
		th := h.matchingService.Defaults()
		if req.MatchThreshold != nil {
			th.Match = *req.MatchThreshold
		}
		if req.HighConfidenceThreshold != nil {
			th.HighConfidence = *req.HighConfidenceThreshold
		}
		in.Thresholds = &th
	}

	id, err := h.matchingService.StartMatching(in)
	if err != nil {
		respondWithError(w, statusOf(err), err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, domain.OperationStartedDTO{ID: id, Status: domain.StatusInitializing})
}

// GetMatching returns the progress and, once completed, the records of a
// matching pass
// @Summary Get matching progress
// @Description Poll a matching pass; records are included once it has completed
// @Tags Matching
// @Produce json
// @Param id path string true "Matching operation ID" format(uuid)
// @Success 200 {object} domain.MatchingOperation
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /match/{id} [get]
func (h *OpportunitySyncHandler) GetMatching(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	op, err := h.matchingService.GetMatchingStatus(id)
	if err != nil {
		respondWithError(w, statusOf(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, op)
}

// StartSync pushes the records of a completed matching pass to the master account
// @Summary Start sync
// @Description Update master opportunity stages and values from a completed matching pass. A dry run makes no changes.
// @Tags Sync
// @Accept json
// @Produce json
// @Param request body domain.StartSyncRequest true "Sync options"
// @Success 202 {object} domain.OperationStartedDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /sync [post]
func (h *OpportunitySyncHandler) StartSync(w http.ResponseWriter, r *http.Request) {
	var req domain.StartSyncRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		respondDecodeError(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	records, err := h.matchingService.CompletedRecords(req.MatchingID)
	if err != nil {
		respondWithError(w, statusOf(err), err.Error())
		return
	}

	matchingID := req.MatchingID
	id, err := h.syncService.StartSync(records, service.SyncOptions{
		DryRun:      req.DryRun,
		BatchSize:   req.BatchSize,
		Concurrency: req.Concurrency,
		ExactOnly:   req.ExactOnly,
		MatchingID:  &matchingID,
	})
	if err != nil {
		h.logger.Error("failed to start sync", zap.Error(err))
		respondWithError(w, statusOf(err), err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, domain.OperationStartedDTO{ID: id, Status: domain.StatusInitializing})
}

// GetSync returns the progress of a sync run
// @Summary Get sync progress
// @Description Poll a sync run for counters, rate, ETA and recent errors
// @Tags Sync
// @Produce json
// @Param id path string true "Sync operation ID" format(uuid)
// @Success 200 {object} domain.SyncOperation
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /sync/{id} [get]
func (h *OpportunitySyncHandler) GetSync(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	op, err := h.syncService.GetSyncStatus(id)
	if err != nil {
		respondWithError(w, statusOf(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, op)
}

// FetchOpportunities pulls the opportunities of one account from the CRM.
// The call is synchronous and bounded by the request timeout.
// @Summary Fetch opportunities
// @Description Load the opportunities of one configured account, optionally limited to some pipelines
// @Tags Opportunities
// @Accept json
// @Produce json
// @Param accountId path string true "Account ID"
// @Param request body domain.FetchOpportunitiesRequest true "Fetch options"
// @Success 200 {object} domain.FetchOpportunitiesResponse
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 429 {object} domain.APIError
// @Failure 502 {object} domain.APIError
// @Router /accounts/{accountId}/opportunities/fetch [post]
func (h *OpportunitySyncHandler) FetchOpportunities(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")

	var req domain.FetchOpportunitiesRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		respondDecodeError(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	opps, err := h.loader.Load(r.Context(), accountID, req.Side, req.PipelineIDs, req.MaxRecords)
	if err != nil {
		status := statusOf(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("failed to fetch opportunities",
				zap.String("account_id", accountID),
				zap.Error(err))
		}
		respondWithError(w, status, err.Error())
		return
	}
	if opps == nil {
		opps = []domain.Opportunity{}
	}

	respondJSON(w, http.StatusOK, domain.FetchOpportunitiesResponse{
		AccountID:     accountID,
		Count:         len(opps),
		Opportunities: opps,
	})
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid operation ID")
		return uuid.Nil, false
	}
	return id, true
}
