package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"roombook/internal/domain"
	"roombook/internal/models"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeServiceError renders a service error with its mapped status.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := httpStatus(err)
	if serverFault(err) {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Int("status", code).Msg("request failed")
	}
	writeJSON(w, code, errorResponse{Error: errorMessage(err), Fields: fieldErrors(err)})
}

func (s *HTTPServer) userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(s.userHeader))
}

// requireUser rejects requests without the caller identity header.
func (s *HTTPServer) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := s.userID(r)
	if userID == "" {
		s.writeServiceError(w, r, domain.NewValidationError("user_id", s.userHeader+" header is required"))
		return "", false
	}
	return userID, true
}

func decodeBody(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return domain.NewValidationError("body", "invalid JSON body")
	}
	return nil
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleListRooms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rooms, err := s.svc.Rooms.ListRooms(r.Context(), models.RoomFilter{
		Type:         strings.TrimSpace(q.Get("type")),
		CapacityBand: strings.TrimSpace(q.Get("capacity")),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (s *HTTPServer) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.svc.Rooms.GetRoom(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	day, err := s.svc.Calendar.GetSlots(r.Context(), r.PathValue("id"), r.URL.Query().Get("date"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

func (s *HTTPServer) handleEndTimes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ends, err := s.svc.Calendar.AvailableEndTimes(r.Context(), r.PathValue("id"), q.Get("date"), q.Get("start"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"end_times": ends})
}

func (s *HTTPServer) handleQuickSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := s.svc.Calendar.QuickSlots(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req models.BookingRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	// Ownership always comes from the identity header.
	req.UserID = userID

	booking, err := s.svc.Bookings.CreateBooking(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleMyBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	bookings, err := s.svc.Bookings.GetUserBookings(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	booking, err := s.svc.Bookings.CancelBooking(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	booking, err := s.svc.CheckIns.CheckOut(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var body struct {
		Code string `json:"code"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	booking, err := s.svc.CheckIns.CheckIn(r.Context(), userID, body.Code)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	summary, err := s.svc.Analytics.Summary(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *HTTPServer) handleAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeServiceError(w, r, domain.NewValidationError("limit", "must be a non-negative integer"))
			return
		}
		limit = n
	}

	events, err := s.svc.Analytics.RecentAuditEvents(r.Context(), strings.TrimSpace(q.Get("type")), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *HTTPServer) handleAutoRelease(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.Releaser.Sweep(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
