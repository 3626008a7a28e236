package server

import (
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/runeforge/internal/blueprint"
	"github.com/felixgeelhaar/runeforge/internal/engine"
	"github.com/felixgeelhaar/runeforge/internal/errors"
	"github.com/felixgeelhaar/runeforge/internal/plan"
	"github.com/felixgeelhaar/runeforge/internal/rules"
)

// ErrorResponse is the body of every failed API request.
type ErrorResponse struct {
	Code        string                `json:"code"`
	Message     string                `json:"message"`
	Suggestions []string              `json:"suggestions,omitempty"`
	Failures    []engine.TopicFailure `json:"failures,omitempty"`
	RequestID   string                `json:"request_id,omitempty"`
}

// RulesResponse is the body of GET /v1/rules.
type RulesResponse struct {
	Version     string       `json:"version"`
	Source      string       `json:"source"`
	Fingerprint string       `json:"fingerprint"`
	Rules       rules.Config `json:"rules"`
}

const (
	headerPlanHash = "X-Plan-Hash"
	headerCache    = "X-Plan-Cache"
)

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	seed := s.cfg.DefaultSeed
	if raw := r.URL.Query().Get("seed"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest,
				errors.New(errors.ErrCodeInvalidSeed, "seed must be an unsigned 64-bit integer").
					WithSuggestion("Pass ?seed=42 or omit it to use the server default"))
			return
		}
		seed = n
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge,
				errors.New(errors.ErrCodeBodyTooLarge, "blueprint body too large"))
			return
		}
		s.writeError(w, r, http.StatusBadRequest, errors.Wrap(errors.ErrCodeBodyReadFailed, "failed to read body", err))
		return
	}

	bp, err := blueprint.Parse(body, "request body")
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordValidation("blueprint", err)
	}
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	bpHash, err := bp.Hash()
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	key := cacheKey{blueprintHash: bpHash, seed: seed}

	if p, ok := s.lookup(key); ok {
		w.Header().Set(headerCache, "hit")
		s.writePlan(w, r, p)
		return
	}

	res, err := s.deps.Planner.Plan(ctx, bp, seed)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}

	if s.cache != nil {
		s.cache.Add(key, res.Plan)
	}
	if _, err := s.deps.Planner.Archive(ctx, bp, res); err != nil {
		s.deps.Logger.WithContext(ctx).WithError(err).Warn("plan not archived", "plan_hash", res.Plan.Meta.PlanHash)
	}

	w.Header().Set(headerCache, "miss")
	s.writePlan(w, r, res.Plan)
}

func (s *Server) lookup(key cacheKey) (*plan.StackPlan, bool) {
	if s.cache == nil {
		return nil, false
	}
	p, ok := s.cache.Get(key)
	if s.deps.Metrics != nil {
		result := "miss"
		if ok {
			result = "hit"
		}
		s.deps.Metrics.PlanCache.WithLabelValues(result).Inc()
	}
	return p, ok
}

func (s *Server) writePlan(w http.ResponseWriter, r *http.Request, p *plan.StackPlan) {
	format, contentType := plan.FormatJSON, "application/json"
	if wantsYAML(r.Header.Get("Accept")) {
		format, contentType = plan.FormatYAML, "application/yaml"
	}

	data, err := plan.Encode(p, format)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, errors.Wrap(errors.ErrCodePlanMarshal, "failed to encode plan", err))
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set(headerPlanHash, p.Meta.PlanHash)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	repo := s.deps.Planner.Rules()
	writeJSON(w, http.StatusOK, RulesResponse{
		Version:     repo.Version(),
		Source:      repo.Source(),
		Fingerprint: repo.Fingerprint(),
		Rules:       repo.Config(),
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	resp := ErrorResponse{Message: err.Error(), RequestID: RequestID(r.Context())}

	var rfErr *errors.RuneforgeError
	if stderrors.As(err, &rfErr) {
		resp.Code = string(rfErr.Code)
		resp.Message = rfErr.Message
		if rfErr.Cause != nil {
			resp.Message += ": " + rfErr.Cause.Error()
		}
		resp.Suggestions = rfErr.Suggestions
	}
	var nec *engine.NoEligibleCandidate
	if stderrors.As(err, &nec) {
		if rfErr != nil {
			resp.Message = rfErr.Message
		}
		resp.Failures = nec.Failures
	}

	if status >= http.StatusInternalServerError {
		s.deps.Logger.LogError(r.Context(), "request failed", err)
		if s.deps.Metrics != nil {
			s.deps.Metrics.RecordError(err, "server")
		}
	}
	writeJSON(w, status, resp)
}

// statusFor maps a selection error to an HTTP status.
func statusFor(err error) int {
	code, ok := errors.CodeOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch {
	case code == errors.ErrCodeNoEligibleCandidate:
		return http.StatusUnprocessableEntity
	case code == errors.ErrCodeSelectionCancelled:
		return http.StatusServiceUnavailable
	case code.Category() == "BLUEPRINT":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func wantsYAML(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		mt := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		switch mt {
		case "application/yaml", "application/x-yaml", "text/yaml":
			return true
		case "application/json":
			return false
		}
	}
	return false
}
