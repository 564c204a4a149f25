package api

import (
	"net/http"
)

// handleStatsOverview returns the dashboard entity counts.
func (s *Server) handleStatsOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := s.stats.Overview(r.Context())
	s.writeStats(w, overview, err, "overview")
}

// handleAlertsByType returns alert counts grouped by type.
func (s *Server) handleAlertsByType(w http.ResponseWriter, r *http.Request) {
	counts, err := s.stats.AlertsByType(r.Context())
	s.writeStats(w, counts, err, "alerts by type")
}

// handleReadingsPerDay returns reading counts for each day of the current month.
func (s *Server) handleReadingsPerDay(w http.ResponseWriter, r *http.Request) {
	counts, err := s.stats.ReadingsPerDay(r.Context())
	s.writeStats(w, counts, err, "readings per day")
}

// handleReadingsPerMonth returns twelve monthly reading counts for the current year.
func (s *Server) handleReadingsPerMonth(w http.ResponseWriter, r *http.Request) {
	counts, err := s.stats.ReadingsPerMonth(r.Context())
	s.writeStats(w, counts, err, "readings per month")
}

// handleTopDevices returns the devices with the most readings.
func (s *Server) handleTopDevices(w http.ResponseWriter, r *http.Request) {
	counts, err := s.stats.TopDevices(r.Context())
	s.writeStats(w, counts, err, "top devices")
}

func (s *Server) writeStats(w http.ResponseWriter, v any, err error, name string) {
	if err != nil {
		s.logger.Error("failed to compute stats", "stat", name, "error", err)
		writeInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
