package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"slotbook/internal/auth"
	"slotbook/internal/service"
)

type bookRequest struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Service  string `json:"service"`
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	InitData string `json:"initData"`
}

type authRequest struct {
	InitData string `json:"initData"`
}

func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	date := strings.TrimSpace(r.URL.Query().Get("date"))

	available, err := s.booking.ListAvailable(date)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":      date,
		"available": available,
	})
}

func (s *HTTPServer) handleBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body bookRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	booking, err := s.booking.CreateBooking(service.CreateRequest{
		Date:     body.Date,
		Time:     body.Time,
		Service:  body.Service,
		UserID:   body.UserID,
		Name:     body.Name,
		InitData: body.InitData,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"booking": booking,
	})
}

func (s *HTTPServer) handleAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body authRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.InitData == "" {
		writeError(w, http.StatusBadRequest, "initData required")
		return
	}

	status, err := s.booking.VerifyIdentity(body.InitData)
	if err != nil {
		s.logger.Error().Err(err).Msg("identity verification failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	switch status {
	case auth.StatusVerified:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case auth.StatusSkippedNoSecret:
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"warning": "identity not verified: no shared secret configured",
		})
	default:
		writeError(w, http.StatusForbidden, "identity verification failed")
	}
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	// Readiness follows liveness here: the store read path degrades to an
	// empty result instead of failing, so a constructed server is ready.
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrDateRequired),
		errors.Is(err, service.ErrMissingFields),
		errors.Is(err, service.ErrBlackoutDate):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrIdentityRejected):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrSlotTaken):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
