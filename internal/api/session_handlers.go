package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dlcdb/inventory-core/internal/journal"
	"github.com/dlcdb/inventory-core/internal/reconcile"
	"github.com/dlcdb/inventory-core/internal/session"
)

// handleGetSession returns the session identity and room.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	rows, err := s.session.Rows(r.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":   s.session.ID(),
		"room": s.session.Room(),
		"rows": len(rows),
	})
}

// handleListRows returns the working set in insertion order.
func (s *Server) handleListRows(w http.ResponseWriter, r *http.Request) {
	rows, err := s.session.Rows(r.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rows":  rows,
		"count": len(rows),
	})
}

// handleGetPayload returns the current serialized ledger.
func (s *Server) handleGetPayload(w http.ResponseWriter, r *http.Request) {
	payload, err := s.session.Payload(r.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"uuids_states": json.RawMessage(payload),
	})
}

// handleSave submits the reconciliation payload to the backend.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Save(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, ErrCodeUnavailable, "saving inventory: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": true})
}

type scanRequest struct {
	Code string `json:"code"`
}

// handlePostScan feeds one scanned code into the session, for UIs that
// do not hold a WebSocket open.
func (s *Server) handlePostScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeBadRequest(w, "code is required")
		return
	}

	if err := s.session.EnqueueScan(req.Code); err != nil {
		if errors.Is(err, session.ErrQueueFull) {
			writeError(w, http.StatusTooManyRequests, ErrCodeUnavailable, "scan queue full")
			return
		}
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"queued": true})
}

type addDeviceRequest struct {
	DeviceID string `json:"device_id"`
}

// handleAddDevice inserts a device found in the room but missing from
// its record.
func (s *Server) handleAddDevice(w http.ResponseWriter, r *http.Request) {
	var req addDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceID == "" {
		writeBadRequest(w, "device_id is required")
		return
	}

	row, err := s.session.AddDevice(r.Context(), req.DeviceID)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

// handleToggle applies the manual state button for a row.
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	row, err := s.session.Toggle(r.Context(), deviceID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrUnknownRow):
			writeNotFound(w, "no row for device "+deviceID)
		case errors.Is(err, reconcile.ErrInvariantViolation):
			writeConflict(w, err.Error())
		default:
			writeSessionError(w, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// handleListPrompts returns prompts awaiting an operator answer.
func (s *Server) handleListPrompts(w http.ResponseWriter, _ *http.Request) {
	prompts := []session.Prompt{}
	if s.prompts != nil {
		prompts = s.prompts.Pending()
	}
	writeJSON(w, http.StatusOK, map[string]any{"prompts": prompts})
}

type promptAnswerRequest struct {
	Accepted bool `json:"accepted"`
}

// handleAnswerPrompt resolves a pending confirmation prompt.
func (s *Server) handleAnswerPrompt(w http.ResponseWriter, r *http.Request) {
	if s.prompts == nil {
		writeNotFound(w, "prompts are not enabled")
		return
	}

	var req promptAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid answer payload")
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.prompts.Answer(id, req.Accepted); err != nil {
		writeNotFound(w, "no pending prompt "+id)
		return
	}

	if s.journal != nil {
		ev := &journal.Event{
			SessionID: s.session.ID(),
			RoomID:    s.session.Room().ID,
			EventType: journal.EventPromptAnswer,
			Detail: map[string]any{
				"prompt_id": id,
				"accepted":  req.Accepted,
			},
		}
		if err := s.journal.Record(r.Context(), ev); err != nil {
			s.logger.Warn("journal write failed", "event", ev.EventType, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"answered": true})
}

// handleListEvents returns the session's journal trail.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeNotFound(w, "journal is not enabled")
		return
	}

	filter := journal.Filter{
		SessionID: s.session.ID(),
		DeviceID:  r.URL.Query().Get("device_id"),
		EventType: r.URL.Query().Get("type"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.journal.List(r.Context(), filter)
	if err != nil {
		writeInternalError(w, "listing events: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeSessionError maps session-level failures onto HTTP responses.
func writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrClosed) {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "session is closed")
		return
	}
	writeInternalError(w, err.Error())
}
