package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"facewatch/internal/config"
	"facewatch/internal/dto"
	"facewatch/internal/logger"
	"facewatch/internal/model"
	"facewatch/internal/repository"
)

// GetCapturesHandler returns a filtered, paginated page of the capture ledger.
func GetCapturesHandler(cfg *config.Config, logger *logger.Logger, captures repository.CaptureRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if captures == nil {
			http.Error(w, "Capture ledger disabled", http.StatusServiceUnavailable)
			return
		}

		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		before := parseDate(q.Get("dateBefore"))
		if !before.IsZero() {
			// Whole day inclusive.
			before = before.Add(24*time.Hour - time.Nanosecond)
		}

		filter := &dto.CaptureFilters{
			Status:        q.Get("status"),
			CreatedAfter:  parseDate(q.Get("dateAfter")),
			CreatedBefore: before,
			Limit:         limit,
			Offset:        (page - 1) * limit,
		}

		rows, err := captures.GetAll(filter)
		if err != nil {
			logger.Error("Error querying captures from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if rows == nil {
			rows = []model.Capture{}
		}

		totalCount, err := captures.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting captures: %v", err)
			totalCount = len(rows)
		}

		data := dto.CapturesData{
			Captures:    rows,
			ScratchDir:  cfg.ScratchDirectory,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// GetSignalsHandler returns the most recent signal attempts, newest first.
func GetSignalsHandler(logger *logger.Logger, signals repository.SignalRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if signals == nil {
			http.Error(w, "Signal history disabled", http.StatusServiceUnavailable)
			return
		}

		events, err := signals.GetRecent(atoiDefault(r.URL.Query().Get("limit"), 50))
		if err != nil {
			logger.Error("Error querying signals from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if events == nil {
			events = []model.SignalEvent{}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(events); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date string in the format "2006-01-02" (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}
