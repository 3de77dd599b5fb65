package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mid-D-Man/AirCode-sub002/internal/api/http/handler"
	"github.com/Mid-D-Man/AirCode-sub002/internal/codec"
	"github.com/Mid-D-Man/AirCode-sub002/internal/edge"
	"github.com/Mid-D-Man/AirCode-sub002/internal/model"
	"github.com/Mid-D-Man/AirCode-sub002/internal/testutil"
	"github.com/Mid-D-Man/AirCode-sub002/internal/token"
	"github.com/google/uuid"
)

type memSessionStore struct {
	sessions map[string]model.SessionDescriptor
}

func (s *memSessionStore) Create(_ context.Context, session model.SessionDescriptor) error {
	s.sessions[session.SessionID] = session
	return nil
}

func (s *memSessionStore) GetByID(_ context.Context, sessionID string) (model.SessionDescriptor, error) {
	session, ok := s.sessions[sessionID]
	if !ok {
		return model.SessionDescriptor{}, model.ErrNotFound
	}
	return session, nil
}

type memAttendanceStore struct {
	records []model.AttendanceScanRecord
}

func (s *memAttendanceStore) Insert(_ context.Context, record model.AttendanceScanRecord) error {
	s.records = append(s.records, record)
	return nil
}

func (s *memAttendanceStore) ListBySession(_ context.Context, _ string) ([]model.AttendanceScanRecord, error) {
	return s.records, nil
}

type memImageStore struct {
	uploads map[string][]byte
}

func (s *memImageStore) Upload(_ context.Context, key string, reader io.Reader) error {
	data, _ := io.ReadAll(reader)
	s.uploads[key] = data
	return nil
}
func (s *memImageStore) Download(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.uploads[key])), nil
}
func (s *memImageStore) Delete(_ context.Context, key string) error { return nil }
func (s *memImageStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := s.uploads[key]
	return ok, nil
}

func buildRouter(t *testing.T) (http.Handler, *token.JWT) {
	t.Helper()

	logger := testutil.MakeNoopLogger()
	secret := []byte("dev-signing-secret")
	c := codec.New(codec.Config{
		URLPrefix:     "https://air-code.app/session/",
		Marker:        "AIRCODE",
		EncryptionKey: []byte("0123456789abcdef0123456789abcdef"),
		IV:            []byte("abcdef0123456789"),
		SigningSecret: secret,
	}, logger)

	sessions := &memSessionStore{sessions: make(map[string]model.SessionDescriptor)}
	attendance := &memAttendanceStore{}
	images := &memImageStore{uploads: make(map[string][]byte)}

	validate := handler.NewValidate(sessions, attendance, secret, logger)
	session := handler.NewSession(c, sessions, images, func(content string, _ int) ([]byte, error) {
		return []byte(content), nil
	}, 512, logger)

	jwtManager := token.NewJWT("router-test-secret")

	return New(validate, session, jwtManager, logger).Register(), jwtManager
}

func TestRouter_Health(t *testing.T) {
	mux, _ := buildRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_SessionAPIRequiresAuth(t *testing.T) {
	mux, _ := buildRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_CreateSessionThenValidateScan(t *testing.T) {
	mux, jwtManager := buildRouter(t)

	accessToken, err := jwtManager.GenerateLecturerToken(uuid.New())
	require.NoError(t, err)

	createBody, _ := json.Marshal(map[string]any{
		"courseCode":      "CSC201",
		"durationMinutes": 60,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewReader(createBody))
	req.Header.Set("Authorization", "Bearer "+accessToken)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		SessionID  string    `json:"sessionId"`
		Token      string    `json:"token"`
		StartTime  time.Time `json:"startTime"`
		ExpiresAt  time.Time `json:"expiresAt"`
		QRImageKey string    `json:"qrImageKey"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.Token)

	// A scanning client would decode the token and send the signed partial
	// payload; the edge package does both from the raw token.
	logger := testutil.MakeNoopLogger()
	secret := []byte("dev-signing-secret")
	c := codec.New(codec.Config{
		URLPrefix:     "https://air-code.app/session/",
		Marker:        "AIRCODE",
		EncryptionKey: []byte("0123456789abcdef0123456789abcdef"),
		IV:            []byte("abcdef0123456789"),
		SigningSecret: secret,
	}, logger)

	edgeReq, err := edge.NewBuilder(c, secret).BuildRequest(created.Token, model.AttendanceData{
		MatricNumber:         "U2021/0001",
		HasScannedAttendance: true,
		IsOnlineScan:         true,
	})
	require.NoError(t, err)

	validateBody, _ := json.Marshal(edgeReq)
	req = httptest.NewRequest(http.MethodPost, "/functions/v1/validate-attendance", bytes.NewReader(validateBody))
	req.RemoteAddr = "192.0.2.1:1234"
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var validated struct {
		Success bool `json:"success"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &validated))
	assert.True(t, validated.Success)
}
