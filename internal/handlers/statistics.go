package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"
)

// Statistics handles GET /expenses/statistics. Year and month come from
// query params and default to the current month.
func (h *Handlers) Statistics(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	year := now.Year()
	month := int(now.Month())

	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		y, err := strconv.Atoi(yearStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid year: "+yearStr)
			return
		}
		year = y
	}
	if monthStr := r.URL.Query().Get("month"); monthStr != "" {
		m, err := strconv.Atoi(monthStr)
		if err != nil || m < 1 || m > 12 {
			writeError(w, http.StatusBadRequest, "invalid month: "+monthStr)
			return
		}
		month = m
	}

	stats, err := h.svc.Statistics(r.Context(), year, time.Month(month))
	if err != nil {
		log.Printf("Statistics error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
