package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/telemetry-core/internal/audit"
	"github.com/nerrad567/telemetry-core/internal/device"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/logging"
	"github.com/nerrad567/telemetry-core/internal/validate"
)

// handleListDevices returns every device ordered by id, or 404 when there are none.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.registry.ListDevices(r.Context())
	if err != nil {
		s.logger.Error("failed to list devices", "error", err)
		writeInternalError(w)
		return
	}
	if len(devices) == 0 {
		writeNotFound(w, "No devices found")
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

// handleGetDevice returns a single device by id.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeNotFound(w, msgDeviceNotFound)
		return
	}

	d, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		s.writeDeviceError(w, err, "get")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleCreateDevice registers a device. Its token is generated here and
// the device starts Inactive.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var in device.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	if !s.validDevice(w, in) {
		return
	}

	d := &device.Device{Name: *in.Name, Location: *in.Location}
	if err := s.registry.CreateDevice(r.Context(), d); err != nil {
		s.logger.Error("failed to create device", "error", err)
		writeInternalError(w)
		return
	}

	s.auditLog(audit.ActionCreate, audit.EntityDevice, formatID(d.ID), actorID(r), map[string]any{"name": d.Name})
	writeMessage(w, http.StatusCreated, "Device created successfully")
}

// handleUpdateDevice replaces a device's name and location.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeNotFound(w, msgDeviceNotFound)
		return
	}

	var in device.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	if !s.validDevice(w, in) {
		return
	}

	d := &device.Device{ID: id, Name: *in.Name, Location: *in.Location}
	if err := s.registry.UpdateDevice(r.Context(), d); err != nil {
		s.writeDeviceError(w, err, "update")
		return
	}

	s.auditLog(audit.ActionUpdate, audit.EntityDevice, formatID(id), actorID(r), map[string]any{"name": d.Name})
	writeMessage(w, http.StatusOK, "Device updated successfully")
}

// handleDeleteDevice removes a device together with its readings and alerts.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeNotFound(w, msgDeviceNotFound)
		return
	}

	if err := s.registry.DeleteDevice(r.Context(), id); err != nil {
		s.writeDeviceError(w, err, "delete")
		return
	}

	s.auditLog(audit.ActionDelete, audit.EntityDevice, formatID(id), actorID(r), nil)
	writeMessage(w, http.StatusOK, "Device deleted successfully")
}

// handleActivateDevice marks the device holding the path token as Active.
// The route is public: holding the token is the only credential.
func (s *Server) handleActivateDevice(w http.ResponseWriter, r *http.Request) {
	s.setDeviceStatus(w, r, device.StatusActive)
}

// handleDeactivateDevice marks the device holding the path token as Inactive.
func (s *Server) handleDeactivateDevice(w http.ResponseWriter, r *http.Request) {
	s.setDeviceStatus(w, r, device.StatusInactive)
}

func (s *Server) setDeviceStatus(w http.ResponseWriter, r *http.Request, status device.Status) {
	token := chi.URLParam(r, "token")

	var (
		err    error
		action string
		msg    string
	)
	if status == device.StatusActive {
		err = s.registry.Activate(r.Context(), token)
		action, msg = audit.ActionActivate, "Device activated successfully"
	} else {
		err = s.registry.Deactivate(r.Context(), token)
		action, msg = audit.ActionDeactivate, "Device deactivated successfully"
	}
	if err != nil {
		s.writeDeviceError(w, err, action)
		return
	}

	s.auditLog(action, audit.EntityDevice, "", "", map[string]any{"token": logging.TokenHint(token)})
	writeMessage(w, http.StatusOK, msg)
}

// handleDeviceStatus reports the status of the device holding the path token.
func (s *Server) handleDeviceStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.registry.Status(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		s.writeDeviceError(w, err, "status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]device.Status{"status": status})
}

// validDevice writes a 422 and returns false when in fails validation.
func (s *Server) validDevice(w http.ResponseWriter, in device.Input) bool {
	err := device.ValidateInput(in)
	if err == nil {
		return true
	}
	var verrs validate.Errors
	if errors.As(err, &verrs) {
		writeValidation(w, verrs)
		return false
	}
	writeInternalError(w)
	return false
}

// writeDeviceError maps registry errors to responses.
func (s *Server) writeDeviceError(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, device.ErrDeviceNotFound) {
		writeNotFound(w, msgDeviceNotFound)
		return
	}
	s.logger.Error("device operation failed", "op", op, "error", err)
	writeInternalError(w)
}

// idParam parses the {id} path parameter. A non-integer id is reported as
// not found, like an id that does not exist.
func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
