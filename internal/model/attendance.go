package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SyncStatus tracks an offline-recorded scan through reconciliation.
type SyncStatus string

const (
	// SyncStatusPending marks a scan awaiting its first remote attempt.
	SyncStatusPending SyncStatus = "pending"
	// SyncStatusProcessing marks a scan with a remote attempt in flight.
	SyncStatusProcessing SyncStatus = "processing"
	// SyncStatusSynced marks a scan confirmed by the remote store.
	SyncStatusSynced SyncStatus = "synced"
	// SyncStatusFailed marks a scan whose last remote attempt failed.
	SyncStatusFailed SyncStatus = "failed"
	// SyncStatusExpired marks a scan whose owning session expired before
	// it could be synced. Expired scans are never retried.
	SyncStatusExpired SyncStatus = "expired"
)

// AttendanceScanRecord is one student's scan against one session. Records
// live in the local pending queue until the remote store confirms them.
type AttendanceScanRecord struct {
	ID           uuid.UUID  `json:"id"`
	SessionID    string     `json:"sessionId"`
	MatricNumber string     `json:"matricNumber"`
	HasScanned   bool       `json:"hasScanned"`
	ScanTime     *time.Time `json:"scanTime"`
	IsOnlineScan bool       `json:"isOnlineScan"`
	DeviceGUID   string     `json:"deviceGUID,omitempty"`
	SyncStatus   SyncStatus `json:"syncStatus"`

	// Token is the raw scanned token, retained so a queued record can be
	// replayed through the edge request builder later.
	Token string `json:"token"`
	// SessionExpiry is copied from the decoded descriptor at scan time so
	// the sync loop can expire records without re-decoding.
	SessionExpiry time.Time `json:"sessionExpiry"`
	RetryCount    int       `json:"retryCount"`
	LastErrorCode ErrorCode `json:"lastErrorCode,omitempty"`
}

// RetryEligible reports whether a sync batch should attempt this record.
// Terminal remote rejections are never retried.
func (r AttendanceScanRecord) RetryEligible(maxRetries int) bool {
	switch r.SyncStatus {
	case SyncStatusPending:
		return true
	case SyncStatusFailed:
		return r.RetryCount < maxRetries && (r.LastErrorCode == "" || r.LastErrorCode.Retryable())
	default:
		return false
	}
}

// QueueStore is the local durable pending queue. List returns records in
// FIFO order, earliest scan first.
type QueueStore interface {
	Append(ctx context.Context, record AttendanceScanRecord) error
	List(ctx context.Context) ([]AttendanceScanRecord, error)
	Update(ctx context.Context, record AttendanceScanRecord) error
	Remove(ctx context.Context, id uuid.UUID) error
}

// AttendanceStore persists confirmed attendance on the server side.
type AttendanceStore interface {
	Insert(ctx context.Context, record AttendanceScanRecord) error
	ListBySession(ctx context.Context, sessionID string) ([]AttendanceScanRecord, error)
}
