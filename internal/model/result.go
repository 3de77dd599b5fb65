package model

import "github.com/google/uuid"

// ScanResult is the outcome of processing one scanned token.
type ScanResult struct {
	Success       bool
	Message       string
	ErrorCode     ErrorCode
	IsOfflineMode bool
	RequiresSync  bool
}

// RecordSyncResult is the outcome of one record within a sync batch.
type RecordSyncResult struct {
	RecordID     uuid.UUID
	MatricNumber string
	SessionID    string
	Status       SyncStatus
	ErrorCode    ErrorCode
	Message      string
}

// BatchResult summarizes one reconciliation pass. Partial success is the
// expected common case, not an error state.
type BatchResult struct {
	Total     int
	Succeeded int
	Failed    int
	Expired   int
	Records   []RecordSyncResult
}
