package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Mid-D-Man/AirCode-sub002/internal/codec"
	"github.com/Mid-D-Man/AirCode-sub002/internal/logger"
	"github.com/Mid-D-Man/AirCode-sub002/internal/model"
	qrstore "github.com/Mid-D-Man/AirCode-sub002/internal/storage/minio"
)

// Session handles the lecturer-facing session management endpoints.
type Session struct {
	codec     *codec.Codec
	sessions  model.SessionStore
	images    model.Storage
	render    func(content string, size int) ([]byte, error)
	imageSize int
	logger    *logger.Logger
	now       func() time.Time
}

// NewSession creates a Session handler. render produces the QR PNG for a
// token, typically qrimage.RenderPNG.
func NewSession(
	c *codec.Codec,
	sessions model.SessionStore,
	images model.Storage,
	render func(content string, size int) ([]byte, error),
	imageSize int,
	logger *logger.Logger,
) *Session {
	return &Session{
		codec:     c,
		sessions:  sessions,
		images:    images,
		render:    render,
		imageSize: imageSize,
		logger:    logger,
		now:       time.Now,
	}
}

type createSessionRequest struct {
	SessionID             string    `json:"sessionId"`
	CourseCode            string    `json:"courseCode"`
	StartTime             time.Time `json:"startTime"`
	DurationMinutes       int       `json:"durationMinutes"`
	UseTemporalKeyRefresh bool      `json:"useTemporalKeyRefresh"`
	AllowOfflineSync      bool      `json:"allowOfflineSync"`
	SecurityFeatures      int       `json:"securityFeatures"`
}

type sessionResponse struct {
	SessionID  string    `json:"sessionId"`
	CourseCode string    `json:"courseCode"`
	Token      string    `json:"token"`
	StartTime  time.Time `json:"startTime"`
	ExpiresAt  time.Time `json:"expiresAt"`
	QRImageKey string    `json:"qrImageKey"`
}

// Create issues a new session token, persists the session and stores its
// rendered QR image.
func (h *Session) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "request body is not valid JSON", http.StatusBadRequest)
		return
	}

	if req.CourseCode == "" {
		http.Error(w, "course code is required", http.StatusBadRequest)
		return
	}
	if req.DurationMinutes <= 0 {
		http.Error(w, "duration must be positive", http.StatusBadRequest)
		return
	}

	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	if req.StartTime.IsZero() {
		req.StartTime = h.now().UTC()
	}

	token, descriptor, err := h.codec.Encode(codec.EncodeParams{
		SessionID:             req.SessionID,
		CourseCode:            req.CourseCode,
		StartTime:             req.StartTime,
		DurationMinutes:       req.DurationMinutes,
		UseTemporalKeyRefresh: req.UseTemporalKeyRefresh,
		AllowOfflineSync:      req.AllowOfflineSync,
		SecurityFeatures:      model.SecurityFeature(req.SecurityFeatures),
	})
	if err != nil {
		h.logger.Error("failed to encode session token", "error", err.Error())
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	if err := h.sessions.Create(r.Context(), descriptor); err != nil {
		h.logger.Error("failed to persist session", "session_id", descriptor.SessionID, "error", err.Error())
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	imageKey, err := h.storeImage(r, token, descriptor.SessionID)
	if err != nil {
		h.logger.Error("failed to store qr image", "session_id", descriptor.SessionID, "error", err.Error())
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	h.logger.Info("session created",
		"session_id", descriptor.SessionID,
		"course_code", descriptor.CourseCode,
		"expires_at", descriptor.ExpirationTime)

	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID:  descriptor.SessionID,
		CourseCode: descriptor.CourseCode,
		Token:      token,
		StartTime:  descriptor.StartTime,
		ExpiresAt:  descriptor.ExpirationTime,
		QRImageKey: imageKey,
	})
}

// Refresh re-issues the token for a running session. The new token covers
// the remaining session time; the stored QR image is replaced.
func (h *Session) Refresh(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	session, err := h.sessions.GetByID(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("session lookup failed", "session_id", sessionID, "error", err.Error())
		http.Error(w, "failed to refresh session", http.StatusInternalServerError)
		return
	}

	if !session.UseTemporalKeyRefresh {
		http.Error(w, "session does not allow token refresh", http.StatusConflict)
		return
	}

	now := h.now().UTC()
	remaining := session.ExpirationTime.Sub(now)
	if remaining <= 0 {
		http.Error(w, "session has ended", http.StatusGone)
		return
	}
	remainingMinutes := int((remaining + time.Minute - 1) / time.Minute)

	token, descriptor, err := h.codec.Encode(codec.EncodeParams{
		SessionID:             session.SessionID,
		CourseCode:            session.CourseCode,
		StartTime:             session.StartTime,
		DurationMinutes:       remainingMinutes,
		UseTemporalKeyRefresh: session.UseTemporalKeyRefresh,
		AllowOfflineSync:      session.AllowOfflineSync,
		SecurityFeatures:      session.SecurityFeatures,
	})
	if err != nil {
		h.logger.Error("failed to re-encode session token", "session_id", sessionID, "error", err.Error())
		http.Error(w, "failed to refresh session", http.StatusInternalServerError)
		return
	}

	if err := h.sessions.Create(r.Context(), descriptor); err != nil {
		h.logger.Error("failed to persist refreshed session", "session_id", sessionID, "error", err.Error())
		http.Error(w, "failed to refresh session", http.StatusInternalServerError)
		return
	}

	imageKey, err := h.storeImage(r, token, descriptor.SessionID)
	if err != nil {
		h.logger.Error("failed to store qr image", "session_id", sessionID, "error", err.Error())
		http.Error(w, "failed to refresh session", http.StatusInternalServerError)
		return
	}

	h.logger.Info("session token refreshed",
		"session_id", descriptor.SessionID,
		"expires_at", descriptor.ExpirationTime)

	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID:  descriptor.SessionID,
		CourseCode: descriptor.CourseCode,
		Token:      token,
		StartTime:  descriptor.StartTime,
		ExpiresAt:  descriptor.ExpirationTime,
		QRImageKey: imageKey,
	})
}

func (h *Session) storeImage(r *http.Request, token, sessionID string) (string, error) {
	image, err := h.render(token, h.imageSize)
	if err != nil {
		return "", err
	}
	key := qrstore.ImageKey(sessionID)
	if err := h.images.Upload(r.Context(), key, bytes.NewReader(image)); err != nil {
		return "", err
	}
	return key, nil
}
