package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ahrav/go-panel/internal/domain"
)

type processFeedbackRequest struct {
	Subject *domain.SubjectMetadata `json:"subject"`
	// StartupData is the legacy name of Subject.
	StartupData   *domain.SubjectMetadata `json:"startup_data"`
	JudgeFeedback []domain.JudgeRecord    `json:"judge_feedback"`
}

func (r processFeedbackRequest) subject() domain.SubjectMetadata {
	switch {
	case r.Subject != nil:
		return *r.Subject
	case r.StartupData != nil:
		return *r.StartupData
	default:
		return domain.SubjectMetadata{}
	}
}

// feedbackText accepts either a string or a list of strings.
type feedbackText []string

func (f *feedbackText) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = nil
		return nil
	}

	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*f = feedbackText{one}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return domain.NewInvalidInputError("feedback", "feedback must be a string or a list of strings")
	}
	*f = many
	return nil
}

type feedbackRequest struct {
	Feedback feedbackText `json:"feedback"`
}

type summaryRequest struct {
	Feedback domain.CategoryFeedback `json:"feedback"`
}

type quickAnalysisResponse struct {
	FeedbackAnalysis string `json:"feedback_analysis"`
}

type summaryResponse struct {
	Summary string `json:"summary"`
	Status  string `json:"status,omitempty"`
}

type healthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

type errResp struct {
	Error string `json:"error"`
}

func (s *Server) processFeedback(w http.ResponseWriter, r *http.Request) {
	var req processFeedbackRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), req.subject(), req.JudgeFeedback)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) submitFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	analysis, err := s.analyzer.QuickAnalyze(r.Context(), req.Feedback)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quickAnalysisResponse{FeedbackAnalysis: analysis})
}

func (s *Server) generateSummary(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	summary, err := s.analyzer.Summarize(r.Context(), req.Feedback)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Summary: summary})
}

// summarizeFeedback summarizes free-form feedback as the high-level comment
// of a category report with no per-category comments.
func (s *Server) summarizeFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	feedback := domain.CategoryFeedback{HighLevel: strings.Join(req.Feedback, "\n")}
	summary, err := s.analyzer.Summarize(r.Context(), feedback)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Summary: summary, Status: "success"})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Model: s.analyzer.Model()})
}

// decode reads one JSON object from the capped request body. Syntax and
// type errors become InvalidInputErrors.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	err := dec.Decode(dst)

	var maxErr *http.MaxBytesError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &maxErr), errors.Is(err, domain.ErrInvalidInput):
		return err
	case errors.Is(err, io.EOF):
		return domain.NewInvalidInputError("request", "request body must be a JSON object")
	default:
		return domain.NewInvalidInputError("request", "malformed JSON: "+err.Error())
	}
}

// writeError maps domain errors to status codes. Only client errors echo
// their message; server errors are logged and answered generically.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		maxErr      *http.MaxBytesError
		unavailable *domain.AnalysisUnavailableError
	)
	switch {
	case errors.As(err, &maxErr):
		writeJSON(w, http.StatusRequestEntityTooLarge, errResp{fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit)})
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInsufficientData):
		writeJSON(w, http.StatusBadRequest, errResp{err.Error()})
	case errors.As(err, &unavailable):
		s.logger.ErrorContext(r.Context(), "analysis unavailable",
			"request_id", middleware.GetReqID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, errResp{unavailable.PublicMessage()})
	default:
		s.logger.ErrorContext(r.Context(), "request failed",
			"request_id", middleware.GetReqID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, errResp{"internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
