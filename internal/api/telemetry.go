package api

import (
	"errors"
	"net/http"

	"github.com/nerrad567/telemetry-core/internal/audit"
	"github.com/nerrad567/telemetry-core/internal/device"
	"github.com/nerrad567/telemetry-core/internal/telemetry"
	"github.com/nerrad567/telemetry-core/internal/validate"
)

const (
	msgReadingNotFound = "Sensor reading not found"
	msgAlertNotFound   = "Alert not found"
)

// ─── Ingest ─────────────────────────────────────────────────────────

// handleIngestReading stores a reading sent by a device. The device is
// identified by device_token in the body; no session is required.
func (s *Server) handleIngestReading(w http.ResponseWriter, r *http.Request) {
	var in telemetry.ReadingInput
	if !decodeJSON(w, r, &in) {
		return
	}

	if _, err := s.ingestor.IngestReading(r.Context(), in); err != nil {
		s.writeIngestError(w, err, "reading")
		return
	}
	writeMessage(w, http.StatusCreated, "Sensor reading created successfully")
}

// handleIngestAlert stores an alert sent by a device.
func (s *Server) handleIngestAlert(w http.ResponseWriter, r *http.Request) {
	var in telemetry.AlertInput
	if !decodeJSON(w, r, &in) {
		return
	}

	if _, err := s.ingestor.IngestAlert(r.Context(), in); err != nil {
		s.writeIngestError(w, err, "alert")
		return
	}
	writeMessage(w, http.StatusCreated, "Alert created successfully")
}

// writeIngestError maps Ingestor errors to responses.
func (s *Server) writeIngestError(w http.ResponseWriter, err error, kind string) {
	var verrs validate.Errors
	switch {
	case errors.As(err, &verrs):
		writeValidation(w, verrs)
	case errors.Is(err, device.ErrDeviceNotFound):
		writeNotFound(w, msgDeviceNotFound)
	case errors.Is(err, device.ErrDeviceInactive):
		writeForbidden(w, msgDeviceInactive)
	default:
		s.logger.Error("ingest failed", "kind", kind, "error", err)
		writeInternalError(w)
	}
}

// ─── Readings ───────────────────────────────────────────────────────

// handleListReadings returns every reading with its device, or 404 when there are none.
func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	readings, err := s.readings.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list readings", "error", err)
		writeInternalError(w)
		return
	}
	if len(readings) == 0 {
		writeNotFound(w, "No sensor readings found")
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

// handleGetReading returns a single reading by id.
func (s *Server) handleGetReading(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeNotFound(w, msgReadingNotFound)
		return
	}

	reading, err := s.readings.GetByID(r.Context(), id)
	if err != nil {
		s.writeTelemetryError(w, err, "get reading")
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

// handleUpdateReading replaces the four sensor values of a reading.
func (s *Server) handleUpdateReading(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeNotFound(w, msgReadingNotFound)
		return
	}

	var in telemetry.ReadingInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := telemetry.ValidateReadingUpdate(in); err != nil {
		s.writeTelemetryError(w, err, "validate reading")
		return
	}

	reading := &telemetry.Reading{
		ID:          id,
		Temperature: in.Temperature.Float64(),
		Humidity:    in.Humidity.Float64(),
		SmokeLevel:  in.SmokeLevel.Float64(),
		GasLevel:    in.GasLevel.Float64(),
	}
	if err := s.readings.Update(r.Context(), reading); err != nil {
		s.writeTelemetryError(w, err, "update reading")
		return
	}

	s.auditLog(audit.ActionUpdate, audit.EntityReading, formatID(id), actorID(r), nil)
	writeMessage(w, http.StatusOK, "Sensor reading updated successfully")
}

// handleDeleteReading removes a reading.
func (s *Server) handleDeleteReading(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeNotFound(w, msgReadingNotFound)
		return
	}

	if err := s.readings.Delete(r.Context(), id); err != nil {
		s.writeTelemetryError(w, err, "delete reading")
		return
	}

	s.auditLog(audit.ActionDelete, audit.EntityReading, formatID(id), actorID(r), nil)
	writeMessage(w, http.StatusOK, "Sensor reading deleted successfully")
}

// ─── Alerts ─────────────────────────────────────────────────────────

// handleListAlerts returns every alert with its device, or 404 when there are none.
func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.alerts.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list alerts", "error", err)
		writeInternalError(w)
		return
	}
	if len(alerts) == 0 {
		writeNotFound(w, "No alerts found")
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

// handleGetAlert returns a single alert by id.
func (s *Server) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeNotFound(w, msgAlertNotFound)
		return
	}

	alert, err := s.alerts.GetByID(r.Context(), id)
	if err != nil {
		s.writeTelemetryError(w, err, "get alert")
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

// handleUpdateAlert replaces an alert's type, value and max_value. Status is
// replaced only when the body carries one.
func (s *Server) handleUpdateAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeNotFound(w, msgAlertNotFound)
		return
	}

	var in telemetry.AlertInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := telemetry.ValidateAlertUpdate(in); err != nil {
		s.writeTelemetryError(w, err, "validate alert")
		return
	}

	alert := &telemetry.Alert{
		ID:       id,
		Type:     telemetry.AlertType(*in.Type),
		Value:    in.Value.Float64(),
		MaxValue: in.MaxValue.Float64(),
	}
	if in.Status != nil {
		alert.Status = *in.Status
	}
	if err := s.alerts.Update(r.Context(), alert); err != nil {
		s.writeTelemetryError(w, err, "update alert")
		return
	}

	s.auditLog(audit.ActionUpdate, audit.EntityAlert, formatID(id), actorID(r), map[string]any{"status": alert.Status})
	writeMessage(w, http.StatusOK, "Alert updated successfully")
}

// handleDeleteAlert removes an alert.
func (s *Server) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeNotFound(w, msgAlertNotFound)
		return
	}

	if err := s.alerts.Delete(r.Context(), id); err != nil {
		s.writeTelemetryError(w, err, "delete alert")
		return
	}

	s.auditLog(audit.ActionDelete, audit.EntityAlert, formatID(id), actorID(r), nil)
	writeMessage(w, http.StatusOK, "Alert deleted successfully")
}

// writeTelemetryError maps reading and alert repository errors to responses.
func (s *Server) writeTelemetryError(w http.ResponseWriter, err error, op string) {
	var verrs validate.Errors
	switch {
	case errors.As(err, &verrs):
		writeValidation(w, verrs)
	case errors.Is(err, telemetry.ErrReadingNotFound):
		writeNotFound(w, msgReadingNotFound)
	case errors.Is(err, telemetry.ErrAlertNotFound):
		writeNotFound(w, msgAlertNotFound)
	default:
		s.logger.Error("telemetry operation failed", "op", op, "error", err)
		writeInternalError(w)
	}
}
