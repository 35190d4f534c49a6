package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/reelkeeperapp/reelkeeper-server/internal/domain"
	"github.com/reelkeeperapp/reelkeeper-server/internal/reconcile"
)

func (s *Server) registerReconcileRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "enqueueReconcile",
		Method:        http.MethodPost,
		Path:          "/api/v1/reconcile",
		Summary:       "Enqueue a reconciliation batch",
		Description:   "Runs duplicate and reconnect checks on each file and starts the async match search",
		Tags:          []string{"Reconcile"},
		DefaultStatus: http.StatusAccepted,
	}, s.handleEnqueue)

	huma.Register(s.api, huma.Operation{
		OperationID: "addReconcileCandidates",
		Method:      http.MethodPost,
		Path:        "/api/v1/reconcile/{sessionId}/candidates",
		Summary:     "Add files to an open batch",
		Tags:        []string{"Reconcile"},
	}, s.handleAddCandidates)

	huma.Register(s.api, huma.Operation{
		OperationID: "getReconcileProgress",
		Method:      http.MethodGet,
		Path:        "/api/v1/reconcile/{sessionId}/progress",
		Summary:     "Get batch progress",
		Tags:        []string{"Reconcile"},
	}, s.handleProgress)

	huma.Register(s.api, huma.Operation{
		OperationID: "getReconcileDecisions",
		Method:      http.MethodGet,
		Path:        "/api/v1/reconcile/{sessionId}/decisions",
		Summary:     "List pending decisions and reconnect suggestions",
		Tags:        []string{"Reconcile"},
	}, s.handleDecisions)

	huma.Register(s.api, huma.Operation{
		OperationID: "resolveReconcile",
		Method:      http.MethodPost,
		Path:        "/api/v1/reconcile/{sessionId}/resolve",
		Summary:     "Apply resolutions",
		Description: "Confirms or rejects reconnect suggestions and applies use_match/manual/skip choices",
		Tags:        []string{"Reconcile"},
	}, s.handleResolve)

	huma.Register(s.api, huma.Operation{
		OperationID: "cancelReconcile",
		Method:      http.MethodDelete,
		Path:        "/api/v1/reconcile/{sessionId}",
		Summary:     "Cancel a batch",
		Description: "Stops the search loop; already-committed records stay, unresolved items persist for resume",
		Tags:        []string{"Reconcile"},
	}, s.handleCancel)
}

// === DTOs ===

// CandidateRequest describes one local file to reconcile.
type CandidateRequest struct {
	SourceRef       string `json:"source_ref" validate:"required" doc:"Opaque file locator"`
	TreeRef         string `json:"tree_ref,omitempty" validate:"omitempty" doc:"Containing folder grant for folder imports"`
	RawName         string `json:"raw_name" validate:"required,max=512" doc:"Filename including extension"`
	SizeBytes       int64  `json:"size_bytes,omitempty" validate:"gte=0" doc:"File size; 0 to probe from disk"`
	DurationSeconds int64  `json:"duration_seconds,omitempty" validate:"gte=0" doc:"Media duration; 0 to probe via ffprobe"`
}

// EnqueueRequest is the batch creation payload.
type EnqueueRequest struct {
	Candidates []CandidateRequest `json:"candidates" validate:"required,min=1,max=500,dive" doc:"Files to reconcile"`
}

// EnqueueInput wraps the enqueue payload for huma.
type EnqueueInput struct {
	Body EnqueueRequest
}

// EnqueueOutput wraps the enqueue response for huma.
type EnqueueOutput struct {
	Body reconcile.EnqueueResult
}

// SessionInput carries the session path parameter.
type SessionInput struct {
	SessionID string `path:"sessionId" doc:"Reconciliation session identifier"`
}

// AddCandidatesInput adds files to an open session.
type AddCandidatesInput struct {
	SessionID string `path:"sessionId" doc:"Reconciliation session identifier"`
	Body      EnqueueRequest
}

// AddCandidatesOutput wraps the per-file intake outcomes.
type AddCandidatesOutput struct {
	Body struct {
		Outcomes []reconcile.CandidateOutcome `json:"outcomes" doc:"Per-file intake outcomes"`
	}
}

// ProgressOutput wraps the progress response.
type ProgressOutput struct {
	Body ProgressResponse
}

// ProgressResponse is the {done, total} snapshot for one session.
type ProgressResponse struct {
	SessionID string `json:"session_id" doc:"Session identifier"`
	Done      int    `json:"done" doc:"Items fully resolved"`
	Total     int    `json:"total" doc:"Items accepted into the batch"`
}

// DecisionsOutput wraps the pending work listing.
type DecisionsOutput struct {
	Body DecisionsResponse
}

// DecisionsResponse lists a session's open decisions and parked reconnects.
type DecisionsResponse struct {
	Decisions  []*domain.Decision              `json:"decisions" doc:"Open per-file decisions"`
	Reconnects []reconcile.ReconnectSuggestion `json:"reconnects,omitempty" doc:"Files awaiting reconnect confirmation"`
}

// ReconnectResolution confirms or rejects one reconnect suggestion.
type ReconnectResolution struct {
	SourceRef string `json:"source_ref" validate:"required" doc:"File the suggestion belongs to"`
	Action    string `json:"action" validate:"required,oneof=confirm reject" doc:"confirm attaches the file to video_id, reject queues a match search"`
	VideoID   string `json:"video_id,omitempty" validate:"required_if=Action confirm" doc:"Record to reconnect, required for confirm"`
}

// ResolutionRequest applies a choice to one decision.
type ResolutionRequest struct {
	SourceRef string                 `json:"source_ref" validate:"required" doc:"File the decision belongs to"`
	Action    string                 `json:"action" validate:"required,oneof=use_match manual skip" doc:"Resolution action"`
	Manual    *domain.ManualMetadata `json:"manual,omitempty" doc:"User-entered metadata, required for manual"`
}

// ResolveRequest is the resolve payload.
type ResolveRequest struct {
	Resolutions []ResolutionRequest   `json:"resolutions,omitempty" validate:"dive" doc:"Decision resolutions"`
	Reconnects  []ReconnectResolution `json:"reconnects,omitempty" validate:"dive" doc:"Reconnect confirmations and rejections"`
}

// ResolveInput wraps the resolve payload for huma.
type ResolveInput struct {
	SessionID string `path:"sessionId" doc:"Reconciliation session identifier"`
	Body      ResolveRequest
}

// ResolveOutput wraps the resolve response.
type ResolveOutput struct {
	Body ResolveResponse
}

// ResolveResponse aggregates what the resolve call committed.
type ResolveResponse struct {
	Added       int `json:"added" doc:"New records created"`
	Skipped     int `json:"skipped" doc:"Files skipped or rejected as duplicates"`
	Reconnected int `json:"reconnected" doc:"Files reattached to existing records"`
}

// CancelOutput wraps the cancel response.
type CancelOutput struct {
	Body struct {
		Message string `json:"message" doc:"Confirmation message"`
	}
}

// === Handlers ===

func (s *Server) handleEnqueue(ctx context.Context, input *EnqueueInput) (*EnqueueOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	result, err := s.reconcile.Enqueue(ctx, toCandidates(input.Body.Candidates))
	if err != nil {
		return nil, err
	}

	return &EnqueueOutput{Body: *result}, nil
}

func (s *Server) handleAddCandidates(ctx context.Context, input *AddCandidatesInput) (*AddCandidatesOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	outcomes, err := s.reconcile.Add(ctx, input.SessionID, toCandidates(input.Body.Candidates))
	if err != nil {
		return nil, err
	}

	out := &AddCandidatesOutput{}
	out.Body.Outcomes = outcomes
	return out, nil
}

func (s *Server) handleProgress(ctx context.Context, input *SessionInput) (*ProgressOutput, error) {
	p := s.reconcile.Progress(ctx, input.SessionID)

	return &ProgressOutput{
		Body: ProgressResponse{
			SessionID: input.SessionID,
			Done:      p.Done,
			Total:     p.Total,
		},
	}, nil
}

func (s *Server) handleDecisions(ctx context.Context, input *SessionInput) (*DecisionsOutput, error) {
	decisions, reconnects := s.reconcile.PendingDecisions(ctx, input.SessionID)
	if decisions == nil {
		decisions = []*domain.Decision{}
	}

	return &DecisionsOutput{
		Body: DecisionsResponse{
			Decisions:  decisions,
			Reconnects: reconnects,
		},
	}, nil
}

func (s *Server) handleResolve(ctx context.Context, input *ResolveInput) (*ResolveOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	var resp ResolveResponse

	// Reconnects first: a confirmed reconnect must not race the applier
	// for the same identity.
	for _, rc := range input.Body.Reconnects {
		switch rc.Action {
		case "confirm":
			if _, err := s.reconcile.ConfirmReconnect(ctx, input.SessionID, rc.SourceRef, rc.VideoID); err != nil {
				return nil, err
			}
			resp.Reconnected++
		case "reject":
			if err := s.reconcile.RejectReconnect(ctx, input.SessionID, rc.SourceRef); err != nil {
				return nil, err
			}
		}
	}

	if len(input.Body.Resolutions) > 0 {
		resolutions := make([]reconcile.Resolution, 0, len(input.Body.Resolutions))
		for _, r := range input.Body.Resolutions {
			resolutions = append(resolutions, reconcile.Resolution{
				SourceRef: r.SourceRef,
				Action:    reconcile.ResolutionAction(r.Action),
				Manual:    r.Manual,
			})
		}

		result, err := s.reconcile.Resolve(ctx, input.SessionID, resolutions)
		if err != nil {
			return nil, err
		}
		resp.Added = result.Added
		resp.Skipped = result.Skipped
	}

	return &ResolveOutput{Body: resp}, nil
}

func (s *Server) handleCancel(ctx context.Context, input *SessionInput) (*CancelOutput, error) {
	if err := s.reconcile.Cancel(input.SessionID); err != nil {
		return nil, err
	}

	out := &CancelOutput{}
	out.Body.Message = "batch cancelled"
	return out, nil
}

func toCandidates(reqs []CandidateRequest) []domain.LocalCandidate {
	candidates := make([]domain.LocalCandidate, 0, len(reqs))
	for _, r := range reqs {
		candidates = append(candidates, domain.NewLocalCandidate(
			r.SourceRef, r.TreeRef, r.RawName, r.SizeBytes, r.DurationSeconds,
		))
	}
	return candidates
}
