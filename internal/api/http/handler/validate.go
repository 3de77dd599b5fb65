package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Mid-D-Man/AirCode-sub002/internal/edge"
	"github.com/Mid-D-Man/AirCode-sub002/internal/logger"
	"github.com/Mid-D-Man/AirCode-sub002/internal/model"
	"github.com/Mid-D-Man/AirCode-sub002/internal/qrcrypto"
	"github.com/Mid-D-Man/AirCode-sub002/internal/temporal"
)

// Validate handles attendance validation requests from scanning clients.
type Validate struct {
	sessions      model.SessionStore
	attendance    model.AttendanceStore
	signingSecret []byte
	logger        *logger.Logger
	now           func() time.Time
}

// NewValidate creates a Validate handler.
func NewValidate(sessions model.SessionStore, attendance model.AttendanceStore, signingSecret []byte, logger *logger.Logger) *Validate {
	return &Validate{
		sessions:      sessions,
		attendance:    attendance,
		signingSecret: signingSecret,
		logger:        logger,
		now:           time.Now,
	}
}

// Handle processes one validation request. Checks run in a fixed order and
// the first failure determines the response code; the attendance row is
// inserted only after every check passes, so duplicate and device conflicts
// surface from the store's unique constraints.
func (h *Validate) Handle(w http.ResponseWriter, r *http.Request) {
	var req model.EdgeFunctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, http.StatusBadRequest, model.CodeInvalidJSON, "request body is not valid JSON")
		return
	}

	payload := req.QRCodePayload
	if payload.SessionID == "" {
		writeValidationError(w, http.StatusBadRequest, model.CodeMissingParameters, "session id is required")
		return
	}
	if req.AttendanceData.MatricNumber == "" {
		writeValidationError(w, http.StatusBadRequest, model.CodeMatricNumberMissing, "matric number is required")
		return
	}
	if payload.TemporalKey == "" {
		writeValidationError(w, http.StatusBadRequest, model.CodeTemporalKeyMissing, "temporal key is required")
		return
	}

	ok, err := edge.VerifyPayload(payload, req.PayloadSignature, h.signingSecret)
	if err != nil || !ok {
		h.logger.Warn("payload signature rejected", "session_id", payload.SessionID)
		writeValidationError(w, http.StatusUnauthorized, model.CodeInvalidSignature, "payload signature verification failed")
		return
	}

	session, err := h.sessions.GetByID(r.Context(), payload.SessionID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			writeValidationError(w, http.StatusNotFound, model.CodeSessionNotFound, "session not found")
			return
		}
		h.logger.Error("session lookup failed", "session_id", payload.SessionID, "error", err.Error())
		writeValidationError(w, http.StatusInternalServerError, model.CodeSessionQueryError, "failed to query session")
		return
	}

	now := h.now().UTC()
	if session.ExpiredAt(now) {
		writeValidationError(w, http.StatusGone, model.CodeTemporalKeyExpired, "session has ended")
		return
	}

	// The key is never read from storage; it is derived fresh from the
	// stored session identity and compared against the client's copy.
	expectedKey := temporal.Derive(session.SessionID, session.StartTime)
	if !qrcrypto.SecureCompare(expectedKey, payload.TemporalKey) {
		h.logger.Warn("temporal key rejected", "session_id", session.SessionID)
		writeValidationError(w, http.StatusGone, model.CodeTemporalKeyExpired, "temporal key is no longer valid")
		return
	}

	if session.SecurityFeatures.Has(model.SecurityDeviceGUIDCheck) && req.AttendanceData.DeviceGUID == "" {
		writeValidationError(w, http.StatusBadRequest, model.CodeDeviceGUIDMissing, "device identifier is required for this session")
		return
	}

	scanTime := now
	record := model.AttendanceScanRecord{
		ID:           uuid.New(),
		SessionID:    session.SessionID,
		MatricNumber: req.AttendanceData.MatricNumber,
		HasScanned:   req.AttendanceData.HasScannedAttendance,
		ScanTime:     &scanTime,
		IsOnlineScan: req.AttendanceData.IsOnlineScan,
		DeviceGUID:   req.AttendanceData.DeviceGUID,
	}

	if err := h.attendance.Insert(r.Context(), record); err != nil {
		switch {
		case errors.Is(err, model.ErrDuplicateAttendance):
			writeValidationError(w, http.StatusConflict, model.CodeDuplicateAttendance, "attendance already recorded for this student")
		case errors.Is(err, model.ErrDeviceAlreadyUsed):
			writeValidationError(w, http.StatusForbidden, model.CodeDeviceSecurityViolation, "device already recorded attendance for another student")
		default:
			h.logger.Error("attendance insert failed", "session_id", session.SessionID, "error", err.Error())
			writeValidationError(w, http.StatusInternalServerError, model.CodeAttendanceUpdateError, "failed to record attendance")
		}
		return
	}

	h.logger.Info("attendance recorded",
		"session_id", session.SessionID,
		"matric_number", req.AttendanceData.MatricNumber,
		"online", req.AttendanceData.IsOnlineScan)

	writeJSON(w, http.StatusOK, validationResponse{
		Success: true,
		Message: "attendance recorded",
	})
}
