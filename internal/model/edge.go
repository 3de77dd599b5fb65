package model

import (
	"context"
	"time"
)

// PartialPayload is the unencrypted-but-signed subset of session data the
// remote validation function needs. The signature, not secrecy, is what the
// remote side checks.
type PartialPayload struct {
	SessionID             string    `json:"sessionId"`
	CourseCode            string    `json:"courseCode"`
	StartTime             time.Time `json:"startTime"`
	EndTime               time.Time `json:"endTime"`
	TemporalKey           string    `json:"temporalKey"`
	UseTemporalKeyRefresh bool      `json:"useTemporalKeyRefresh"`
}

// AttendanceData is the scan portion of an edge request.
type AttendanceData struct {
	MatricNumber         string `json:"matricNumber"`
	HasScannedAttendance bool   `json:"hasScannedAttendance"`
	IsOnlineScan         bool   `json:"isOnlineScan"`
	DeviceGUID           string `json:"deviceGUID,omitempty"`
}

// EdgeFunctionRequest pairs a partial payload with one scan record and a
// signature over the serialized payload. Never persisted; it exists for the
// duration of one remote call attempt.
type EdgeFunctionRequest struct {
	QRCodePayload    PartialPayload `json:"qrCodePayload"`
	AttendanceData   AttendanceData `json:"attendanceData"`
	PayloadSignature string         `json:"payloadSignature"`
}

// RemoteValidator dispatches edge requests to the remote attendance
// validation function. A nil return means the remote side confirmed the
// scan; failures are returned as *RemoteError.
type RemoteValidator interface {
	Send(ctx context.Context, req EdgeFunctionRequest) error
}

// ConnectivityMonitor supplies the online/offline signal that drives
// automatic reconciliation.
type ConnectivityMonitor interface {
	Online() bool
	// Changes delivers the new connectivity state on every transition.
	Changes() <-chan bool
}
