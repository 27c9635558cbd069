package reminder

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/Nathech23/High-Five/pkg/types"
)

// setupRoutes configures HTTP routes for the reminder service
func (s *Service) setupRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()

	// Reminder routes
	api.HandleFunc("/reminders", s.createReminderHandler).Methods("POST")
	api.HandleFunc("/reminders", s.listRemindersHandler).Methods("GET")
	api.HandleFunc("/reminders/{id}", s.getReminderHandler).Methods("GET")
	api.HandleFunc("/reminders/{id}", s.cancelReminderHandler).Methods("DELETE")
	api.HandleFunc("/reminders/{id}/history", s.getHistoryHandler).Methods("GET")
	api.HandleFunc("/reminders/{id}/retry", s.retryNowHandler).Methods("POST")

	// Provider delivery-result callback
	api.HandleFunc("/callbacks/delivery", s.deliveryCallbackHandler).Methods("POST")

	// Metrics query
	api.HandleFunc("/metrics/daily", s.getDailyMetricsHandler).Methods("GET")

	// Health check
	router.HandleFunc(s.config.Monitoring.HealthPath, s.health.HTTPHandler()).Methods("GET")

	// Prometheus metrics
	if s.config.Monitoring.Enabled {
		router.Handle(s.config.Monitoring.MetricsPath, s.metrics.Handler()).Methods("GET")
	}

	s.logger.Info("Reminder service routes configured")
}

// createReminderHandler handles reminder creation
func (s *Service) createReminderHandler(w http.ResponseWriter, r *http.Request) {
	var rem types.Reminder
	if err := json.NewDecoder(r.Body).Decode(&rem); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	created, err := s.CreateReminder(r.Context(), &rem)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, types.ErrPatientNotFound) || errors.Is(err, types.ErrReminderTypeNotFound) {
			status = http.StatusNotFound
		}
		s.writeErrorResponse(w, status, "Failed to create reminder", err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, created)
}

// getReminderHandler handles reminder retrieval
func (s *Service) getReminderHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	reminderID := vars["id"]

	rem, err := s.GetReminder(r.Context(), reminderID)
	if err != nil {
		s.writeErrorResponse(w, http.StatusNotFound, "Reminder not found", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, rem)
}

// cancelReminderHandler handles reminder cancellation
func (s *Service) cancelReminderHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	reminderID := vars["id"]

	actor := r.Header.Get("X-User-ID")
	if actor == "" {
		actor = "api"
	}

	if err := s.CancelReminder(r.Context(), reminderID, actor); err != nil {
		var invalid *types.InvalidTransitionError
		switch {
		case errors.Is(err, types.ErrReminderNotFound):
			s.writeErrorResponse(w, http.StatusNotFound, "Reminder not found", err)
		case errors.As(err, &invalid):
			s.writeErrorResponse(w, http.StatusConflict, "Reminder is already terminal", err)
		default:
			s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to cancel reminder", err)
		}
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Reminder cancelled successfully"})
}

// listRemindersHandler handles reminder listing with filters
func (s *Service) listRemindersHandler(w http.ResponseWriter, r *http.Request) {
	filters := s.parseReminderFilters(r)

	reminders, err := s.ListReminders(r.Context(), filters)
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to list reminders", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, reminders)
}

// getHistoryHandler handles status history retrieval
func (s *Service) getHistoryHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	reminderID := vars["id"]

	history, err := s.GetStatusHistory(r.Context(), reminderID)
	if err != nil {
		if errors.Is(err, types.ErrReminderNotFound) {
			s.writeErrorResponse(w, http.StatusNotFound, "Reminder not found", err)
			return
		}
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to get status history", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, history)
}

// retryNowHandler makes a waiting retry immediately eligible
func (s *Service) retryNowHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	reminderID := vars["id"]

	if err := s.RetryNow(r.Context(), reminderID); err != nil {
		var invalid *types.InvalidTransitionError
		switch {
		case errors.Is(err, types.ErrReminderNotFound):
			s.writeErrorResponse(w, http.StatusNotFound, "Reminder not found", err)
		case errors.As(err, &invalid):
			s.writeErrorResponse(w, http.StatusConflict, "Reminder is not waiting for retry", err)
		default:
			s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to trigger retry", err)
		}
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Retry scheduled immediately"})
}

// deliveryCallbackHandler consumes the provider's asynchronous delivery feed
func (s *Service) deliveryCallbackHandler(w http.ResponseWriter, r *http.Request) {
	var event types.DeliveryEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if event.ProviderRef == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "provider_reference is required", nil)
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := s.ApplyDeliveryEvent(r.Context(), &event); err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to apply delivery event", err)
		return
	}

	// Unknown references and out-of-order events are acknowledged too; the
	// provider should not retry them
	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Delivery event processed"})
}

// getDailyMetricsHandler handles daily metrics queries
func (s *Service) getDailyMetricsHandler(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	from := now.AddDate(0, 0, -7)
	to := now

	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, "Invalid from date", err)
			return
		}
		from = parsed
	}

	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, "Invalid to date", err)
			return
		}
		to = parsed
	}

	metrics, err := s.GetDailyMetrics(r.Context(), from, to)
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to get daily metrics", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, metrics)
}

// parseReminderFilters parses query parameters into reminder filters
func (s *Service) parseReminderFilters(r *http.Request) *types.ReminderFilters {
	filters := &types.ReminderFilters{}

	if patientID := r.URL.Query().Get("patient_id"); patientID != "" {
		filters.PatientID = patientID
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filters.Status = types.ReminderStatus(status)
	}

	if remType := r.URL.Query().Get("type"); remType != "" {
		filters.Type = remType
	}

	if fromDate := r.URL.Query().Get("from_date"); fromDate != "" {
		if parsed, err := time.Parse("2006-01-02", fromDate); err == nil {
			filters.FromDate = parsed
		}
	}

	if toDate := r.URL.Query().Get("to_date"); toDate != "" {
		if parsed, err := time.Parse("2006-01-02", toDate); err == nil {
			filters.ToDate = parsed
		}
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if parsed, err := strconv.Atoi(limit); err == nil {
			filters.Limit = parsed
		}
	}

	if offset := r.URL.Query().Get("offset"); offset != "" {
		if parsed, err := strconv.Atoi(offset); err == nil {
			filters.Offset = parsed
		}
	}

	return filters
}

// writeJSONResponse writes a JSON response
func (s *Service) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (s *Service) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	s.logger.WithError(err).Warn(message)

	response := map[string]interface{}{
		"error":  message,
		"status": statusCode,
	}

	if err != nil {
		response["details"] = err.Error()
	}

	s.writeJSONResponse(w, statusCode, response)
}
