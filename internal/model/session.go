package model

import (
	"context"
	"time"
)

// SecurityFeature is a flag set of optional per-session scan restrictions.
type SecurityFeature int

const (
	// SecurityNone enables no extra checks.
	SecurityNone SecurityFeature = 0
	// SecurityDeviceGUIDCheck restricts one physical device to one
	// matric number per session.
	SecurityDeviceGUIDCheck SecurityFeature = 1 << 0
)

// Has reports whether the flag set contains the given feature.
func (f SecurityFeature) Has(feature SecurityFeature) bool {
	return f&feature != 0
}

// SessionDescriptor describes one attendance session. It is immutable once
// issued; the temporal key is always recomputed from (SessionID, StartTime)
// during validation, never trusted from storage.
type SessionDescriptor struct {
	SessionID             string          `json:"sessionId"`
	CourseCode            string          `json:"courseCode"`
	StartTime             time.Time       `json:"startTime"`
	DurationMinutes       int             `json:"durationMinutes"`
	GeneratedTime         time.Time       `json:"generatedTime"`
	ExpirationTime        time.Time       `json:"expirationTime"`
	TemporalKey           string          `json:"temporalKey"`
	UseTemporalKeyRefresh bool            `json:"useTemporalKeyRefresh"`
	AllowOfflineSync      bool            `json:"allowOfflineSync"`
	SecurityFeatures      SecurityFeature `json:"securityFeatures"`
}

// ExpiredAt reports whether the descriptor is past its expiration at the
// given instant.
func (d SessionDescriptor) ExpiredAt(now time.Time) bool {
	return now.UTC().After(d.ExpirationTime)
}

// SessionStore persists issued sessions on the server side.
type SessionStore interface {
	Create(ctx context.Context, session SessionDescriptor) error
	GetByID(ctx context.Context, sessionID string) (SessionDescriptor, error)
}
