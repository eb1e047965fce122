// Package server exposes the turn trigger over HTTP: a thin adapter
// between whatever telephony layer delivers supplier utterances and
// the call orchestrator.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/quotecall/quotecall/internal/flow"
	"github.com/quotecall/quotecall/internal/store"
	"github.com/quotecall/quotecall/pkg/models"
)

// Server handles call-lifecycle HTTP requests.
type Server struct {
	orch *flow.Orchestrator
}

// New builds a Server over the orchestrator.
func New(orch *flow.Orchestrator) *Server {
	return &Server{orch: orch}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/calls", s.handleCreateCall)
	mux.HandleFunc("POST /v1/calls/{id}/turn", s.handleTurn)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// ListenAndServe runs the HTTP listener until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

type createCallRequest struct {
	CallID           string        `json:"call_id,omitempty"`
	QuoteRequestID   string        `json:"quote_request_id"`
	QuoteReference   string        `json:"quote_reference,omitempty"`
	SupplierID       string        `json:"supplier_id,omitempty"`
	SupplierName     string        `json:"supplier_name"`
	SupplierPhone    string        `json:"supplier_phone,omitempty"`
	OrganizationID   string        `json:"organization_id,omitempty"`
	OrganizationName string        `json:"organization_name"`
	CallerID         string        `json:"caller_id,omitempty"`
	Parts            []models.Part `json:"parts"`
	Context          string        `json:"context,omitempty"`
}

type createCallResponse struct {
	CallID string `json:"call_id"`
	flow.TurnResult
}

func (s *Server) handleCreateCall(w http.ResponseWriter, r *http.Request) {
	var req createCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	state, err := s.orch.InitializeCallState(r.Context(), flow.InitParams{
		CallID:           req.CallID,
		QuoteRequestID:   req.QuoteRequestID,
		QuoteReference:   req.QuoteReference,
		SupplierID:       req.SupplierID,
		SupplierName:     req.SupplierName,
		SupplierPhone:    req.SupplierPhone,
		OrganizationID:   req.OrganizationID,
		OrganizationName: req.OrganizationName,
		CallerID:         req.CallerID,
		Parts:            req.Parts,
		Context:          req.Context,
	})
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.orch.StartCall(r.Context(), state.CallID)
	if err != nil {
		if errors.Is(err, store.ErrLockHeld) {
			httpError(w, http.StatusConflict, "call is being processed")
			return
		}
		log.Printf("[server] starting call %s: %v", state.CallID, err)
		httpError(w, http.StatusInternalServerError, "failed to start call")
		return
	}

	writeJSON(w, http.StatusCreated, createCallResponse{CallID: state.CallID, TurnResult: result})
}

type turnRequest struct {
	Utterance string `json:"utterance"`
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	callID := r.PathValue("id")

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Utterance == "" {
		httpError(w, http.StatusBadRequest, "utterance is required")
		return
	}

	result, err := s.orch.ProcessTurn(r.Context(), callID, req.Utterance)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrLockHeld):
			// A turn for this call is already in flight; the caller
			// should retry after it completes.
			httpError(w, http.StatusConflict, "turn already in progress")
		case errors.Is(err, store.ErrNotFound):
			httpError(w, http.StatusNotFound, "unknown call")
		default:
			log.Printf("[server] processing turn for %s: %v", callID, err)
			httpError(w, http.StatusInternalServerError, "failed to process turn")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[server] encoding response: %v", err)
	}
}

func httpError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
