// Package httpapi exposes a dialogue controller over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/conciliate/pkg/dialogue"
	"github.com/go-go-golems/conciliate/pkg/transcript"
)

// Controller is the host-facing surface of a dialogue.Controller.
type Controller interface {
	Launch(ctx context.Context, done func(dialogue.Outcome, error)) (dialogue.Outcome, string)
	Stop() bool
	SendManual(ctx context.Context, text string) (dialogue.Outcome, error)
	Reset(seed ...transcript.Turn) bool
	Transcript() []transcript.Turn
	IsAutomationActive() bool
	IsTerminated() bool
	IsBusy() bool
	Status() dialogue.Status
	SessionID() string
	Rounds() int
	LastError() error
}

var _ Controller = (*dialogue.Controller)(nil)

type Server struct {
	ctrl    Controller
	baseCtx context.Context
	seed    func() []transcript.Turn
	origins *OriginAllowlist
	limiter *ClientLimiter
	metrics http.Handler
	now     func() time.Time
}

type Option func(*Server)

// WithBaseContext sets the context remote calls run under. Automation
// outlives the request that started it, so request contexts are not used.
func WithBaseContext(ctx context.Context) Option {
	return func(s *Server) {
		s.baseCtx = ctx
	}
}

// WithSeed sets the turns a session starts with after a reset.
func WithSeed(seed func() []transcript.Turn) Option {
	return func(s *Server) {
		s.seed = seed
	}
}

func WithOrigins(o *OriginAllowlist) Option {
	return func(s *Server) {
		s.origins = o
	}
}

func WithClientLimiter(l *ClientLimiter) Option {
	return func(s *Server) {
		s.limiter = l
	}
}

// WithMetricsHandler mounts h on GET /metrics, outside origin and rate checks.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

func NewServer(ctrl Controller, options ...Option) *Server {
	s := &Server{
		ctrl:    ctrl,
		baseCtx: context.Background(),
		now:     time.Now,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/status", s.handleStatus)
	api.HandleFunc("GET /api/transcript", s.handleTranscript)
	api.HandleFunc("POST /api/start", s.handleStart)
	api.HandleFunc("POST /api/stop", s.handleStop)
	api.HandleFunc("POST /api/manual", s.handleManual)
	api.HandleFunc("POST /api/reset", s.handleReset)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.guard(api))
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.origins.Allowed(r) {
			log.Warn().Str("origin", requestOrigin(r)).Str("path", r.URL.Path).Msg("invalid origin")
			http.Error(w, "Unauthorized", http.StatusForbidden)
			return
		}
		if !s.limiter.Allow(clientKey(r), s.now()) {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("api request")
		next.ServeHTTP(w, r)
	})
}

type statusResponse struct {
	SessionID        string `json:"session_id"`
	Status           string `json:"status"`
	AutomationActive bool   `json:"automation_active"`
	Terminated       bool   `json:"terminated"`
	Busy             bool   `json:"busy"`
	Rounds           int    `json:"rounds"`
	LastError        string `json:"last_error,omitempty"`
}

type transcriptResponse struct {
	SessionID string                   `json:"session_id"`
	Turns     []transcript.DisplayTurn `json:"turns"`
}

type outcomeResponse struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
	Error   string `json:"error,omitempty"`
}

type manualRequest struct {
	Text string `json:"text"`
}

type manualResponse struct {
	outcomeResponse
	Turns []transcript.DisplayTurn `json:"turns,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) status() statusResponse {
	ret := statusResponse{
		SessionID:        s.ctrl.SessionID(),
		Status:           string(s.ctrl.Status()),
		AutomationActive: s.ctrl.IsAutomationActive(),
		Terminated:       s.ctrl.IsTerminated(),
		Busy:             s.ctrl.IsBusy(),
		Rounds:           s.ctrl.Rounds(),
	}
	if err := s.ctrl.LastError(); err != nil {
		ret.LastError = err.Error()
	}
	return ret
}

func (s *Server) displayTurns() []transcript.DisplayTurn {
	turns := s.ctrl.Transcript()
	ret := make([]transcript.DisplayTurn, 0, len(turns))
	for _, t := range turns {
		ret = append(ret, transcript.Display(t))
	}
	return ret
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleTranscript(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, transcriptResponse{
		SessionID: s.ctrl.SessionID(),
		Turns:     s.displayTurns(),
	})
}

// handleStart answers before the first round finishes; progress is visible
// through /api/status and /api/transcript. Whether the start was admitted is
// decided by the controller before the reply is written.
func (s *Server) handleStart(w http.ResponseWriter, _ *http.Request) {
	outcome, reason := s.ctrl.Launch(s.baseCtx, func(outcome dialogue.Outcome, err error) {
		if err != nil {
			log.Error().Err(err).Str("outcome", outcome.String()).Msg("automation halted")
			return
		}
		log.Debug().Str("outcome", outcome.String()).Msg("first round finished")
	})
	writeJSON(w, http.StatusAccepted, outcomeResponse{Outcome: outcome.String(), Reason: reason})
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	if !s.ctrl.Stop() {
		writeJSON(w, http.StatusOK, outcomeResponse{Outcome: dialogue.OutcomeRejected.String(), Reason: dialogue.ReasonNotActive})
		return
	}
	writeJSON(w, http.StatusOK, outcomeResponse{Outcome: "stopped"})
}

func (s *Server) handleManual(w http.ResponseWriter, r *http.Request) {
	req := manualRequest{}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	outcome, err := s.ctrl.SendManual(s.baseCtx, req.Text)
	resp := manualResponse{outcomeResponse: outcomeResponse{Outcome: outcome.String()}}
	switch outcome {
	case dialogue.OutcomeRejected:
		resp.Reason = s.manualRejectReason(req.Text)
		writeJSON(w, http.StatusConflict, resp)
	case dialogue.OutcomeFailed:
		if err != nil {
			resp.Error = err.Error()
		}
		writeJSON(w, http.StatusBadGateway, resp)
	default:
		resp.Turns = s.displayTurns()
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) manualRejectReason(text string) string {
	switch {
	case strings.TrimSpace(text) == "":
		return dialogue.ReasonBlank
	case s.ctrl.IsTerminated():
		return dialogue.ReasonTerminated
	case s.ctrl.IsAutomationActive():
		return dialogue.ReasonAutomationActive
	default:
		return dialogue.ReasonBusy
	}
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	var seed []transcript.Turn
	if s.seed != nil {
		seed = s.seed()
	}
	if !s.ctrl.Reset(seed...) {
		writeJSON(w, http.StatusConflict, outcomeResponse{Outcome: dialogue.OutcomeRejected.String(), Reason: dialogue.ReasonBusy})
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
