// Package codec turns a session descriptor into a shareable, time-bounded
// token and back. The token is shaped like a URL so a generic scanner app
// shows a plausible string; only this application recognizes the marker
// suffix and treats it as a payload.
package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/Mid-D-Man/AirCode-sub002/internal/logger"
	"github.com/Mid-D-Man/AirCode-sub002/internal/model"
	"github.com/Mid-D-Man/AirCode-sub002/internal/qrcrypto"
	"github.com/Mid-D-Man/AirCode-sub002/internal/temporal"
)

// maxClockSkew bounds how far in the future a token's generation time may
// claim to be before it is rejected.
const maxClockSkew = 5 * time.Minute

// Config carries the codec's wire and key material parameters.
type Config struct {
	URLPrefix     string
	Marker        string
	EncryptionKey []byte
	IV            []byte
	SigningSecret []byte
}

// Codec encodes and decodes session tokens.
type Codec struct {
	cfg    Config
	logger *logger.Logger
	now    func() time.Time
}

// New creates a Codec using the wall clock.
func New(cfg Config, logger *logger.Logger) *Codec {
	return NewWithClock(cfg, logger, time.Now)
}

// NewWithClock creates a Codec with an injected clock.
func NewWithClock(cfg Config, logger *logger.Logger, clock func() time.Time) *Codec {
	return &Codec{cfg: cfg, logger: logger, now: clock}
}

// EncodeParams contains parameters to encode a session token.
type EncodeParams struct {
	SessionID             string
	CourseCode            string
	StartTime             time.Time
	DurationMinutes       int
	UseTemporalKeyRefresh bool
	AllowOfflineSync      bool
	SecurityFeatures      model.SecurityFeature
}

// Encode builds the descriptor, serializes, compresses, encrypts and signs
// it, and wraps the result in the URL-shaped token form.
func (c *Codec) Encode(params EncodeParams) (string, model.SessionDescriptor, error) {
	if params.SessionID == "" {
		return "", model.SessionDescriptor{}, fmt.Errorf("session id is required")
	}
	if params.DurationMinutes <= 0 {
		return "", model.SessionDescriptor{}, fmt.Errorf("duration must be positive, got %d", params.DurationMinutes)
	}

	now := c.now().UTC()
	descriptor := model.SessionDescriptor{
		SessionID:             params.SessionID,
		CourseCode:            params.CourseCode,
		StartTime:             params.StartTime.UTC(),
		DurationMinutes:       params.DurationMinutes,
		GeneratedTime:         now,
		ExpirationTime:        now.Add(time.Duration(params.DurationMinutes) * time.Minute),
		TemporalKey:           temporal.Derive(params.SessionID, params.StartTime),
		UseTemporalKeyRefresh: params.UseTemporalKeyRefresh,
		AllowOfflineSync:      params.AllowOfflineSync,
		SecurityFeatures:      params.SecurityFeatures,
	}

	serialized, err := json.Marshal(descriptor)
	if err != nil {
		return "", model.SessionDescriptor{}, fmt.Errorf("failed to serialize descriptor: %w", err)
	}

	var compressed bytes.Buffer
	zw := gzip.NewWriter(&compressed)
	if _, err := zw.Write(serialized); err != nil {
		return "", model.SessionDescriptor{}, fmt.Errorf("failed to compress descriptor: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", model.SessionDescriptor{}, fmt.Errorf("failed to finish compression: %w", err)
	}

	encrypted, err := qrcrypto.Encrypt(compressed.Bytes(), c.cfg.EncryptionKey, c.cfg.IV)
	if err != nil {
		return "", model.SessionDescriptor{}, fmt.Errorf("failed to encrypt descriptor: %w", err)
	}

	signature := qrcrypto.Sign(encrypted, c.cfg.SigningSecret)

	token := c.cfg.URLPrefix + params.SessionID +
		"#" + c.cfg.Marker + ":" +
		base64.StdEncoding.EncodeToString(encrypted) + ":" +
		hex.EncodeToString(signature)

	c.logger.Debug("encoded session token",
		"session_id", params.SessionID,
		"course_code", params.CourseCode,
		"expires_at", descriptor.ExpirationTime)

	return token, descriptor, nil
}

// Decode validates a token and returns its descriptor. Expected failures are
// returned as the typed errors in the model package; the first failing check
// wins and later checks do not run. Cryptographic and parse failures after
// signature verification are collapsed to ErrMalformedToken so callers
// cannot distinguish them.
func (c *Codec) Decode(token string) (model.SessionDescriptor, error) {
	anchor := "#" + c.cfg.Marker + ":"
	idx := strings.Index(token, anchor)
	if idx < 0 {
		return model.SessionDescriptor{}, model.ErrNotAppToken
	}

	parts := strings.Split(token[idx+len(anchor):], ":")
	if len(parts) != 2 {
		return model.SessionDescriptor{}, model.ErrMalformedToken
	}

	// Strict decoding rejects non-zero trailing padding bits, so a token
	// differing in any character never aliases to the same blob.
	encrypted, err := base64.StdEncoding.Strict().DecodeString(parts[0])
	if err != nil {
		return model.SessionDescriptor{}, model.ErrMalformedToken
	}
	signature, err := hex.DecodeString(parts[1])
	if err != nil {
		return model.SessionDescriptor{}, model.ErrMalformedToken
	}

	// Signature check runs before any decryption is attempted.
	if !qrcrypto.Verify(encrypted, signature, c.cfg.SigningSecret) {
		c.logger.Warn("token signature verification failed")
		return model.SessionDescriptor{}, model.ErrSignatureInvalid
	}

	descriptor, err := c.openPayload(encrypted)
	if err != nil {
		return model.SessionDescriptor{}, model.ErrMalformedToken
	}

	now := c.now().UTC()

	if now.After(descriptor.ExpirationTime) {
		return model.SessionDescriptor{}, model.ErrTokenExpired
	}

	expectedKey := temporal.Derive(descriptor.SessionID, descriptor.StartTime)
	if !qrcrypto.SecureCompare(expectedKey, descriptor.TemporalKey) {
		c.logger.Warn("temporal key mismatch", "session_id", descriptor.SessionID)
		return model.SessionDescriptor{}, model.ErrTemporalKeyInvalid
	}

	if descriptor.GeneratedTime.After(now.Add(maxClockSkew)) {
		return model.SessionDescriptor{}, model.ErrFutureDated
	}

	return descriptor, nil
}

func (c *Codec) openPayload(encrypted []byte) (model.SessionDescriptor, error) {
	compressed, err := qrcrypto.Decrypt(encrypted, c.cfg.EncryptionKey, c.cfg.IV)
	if err != nil {
		return model.SessionDescriptor{}, fmt.Errorf("failed to decrypt payload: %w", err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return model.SessionDescriptor{}, fmt.Errorf("failed to open compressed payload: %w", err)
	}
	defer zr.Close()

	serialized, err := io.ReadAll(zr)
	if err != nil {
		return model.SessionDescriptor{}, fmt.Errorf("failed to decompress payload: %w", err)
	}

	var descriptor model.SessionDescriptor
	if err := json.Unmarshal(serialized, &descriptor); err != nil {
		return model.SessionDescriptor{}, fmt.Errorf("failed to deserialize descriptor: %w", err)
	}

	return descriptor, nil
}
