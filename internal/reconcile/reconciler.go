// Package reconcile records attendance scans made without connectivity and
// replays them against the remote validation function once connectivity
// returns, with per-record duplicate and device-security checks.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mid-D-Man/AirCode-sub002/internal/codec"
	"github.com/Mid-D-Man/AirCode-sub002/internal/edge"
	"github.com/Mid-D-Man/AirCode-sub002/internal/logger"
	"github.com/Mid-D-Man/AirCode-sub002/internal/model"
)

// Config carries reconciliation tuning.
type Config struct {
	// MaxRetries bounds sync attempts for a record failing with a
	// retryable error.
	MaxRetries int
	// Debounce is the settle delay between an offline→online transition
	// and the automatic sync it triggers.
	Debounce time.Duration
}

// Reconciler owns the pending queue. A single lock serializes scanning
// against in-flight sync batches; both mutate the same queue.
type Reconciler struct {
	mu        sync.Mutex
	codec     *codec.Codec
	builder   *edge.Builder
	validator model.RemoteValidator
	queue     model.QueueStore
	monitor   model.ConnectivityMonitor
	logger    *logger.Logger
	cfg       Config
	now       func() time.Time
}

// New creates a Reconciler using the wall clock.
func New(
	c *codec.Codec,
	builder *edge.Builder,
	validator model.RemoteValidator,
	queue model.QueueStore,
	monitor model.ConnectivityMonitor,
	logger *logger.Logger,
	cfg Config,
) *Reconciler {
	return NewWithClock(c, builder, validator, queue, monitor, logger, cfg, time.Now)
}

// NewWithClock creates a Reconciler with an injected clock.
func NewWithClock(
	c *codec.Codec,
	builder *edge.Builder,
	validator model.RemoteValidator,
	queue model.QueueStore,
	monitor model.ConnectivityMonitor,
	logger *logger.Logger,
	cfg Config,
	clock func() time.Time,
) *Reconciler {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Reconciler{
		codec:     c,
		builder:   builder,
		validator: validator,
		queue:     queue,
		monitor:   monitor,
		logger:    logger,
		cfg:       cfg,
		now:       clock,
	}
}

// ProcessScan handles one scanned token for one student. Scans never panic
// out of this method; unexpected store or crypto failures surface as failed
// results.
func (r *Reconciler) ProcessScan(ctx context.Context, token, matricNumber, deviceGUID string) model.ScanResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if matricNumber == "" {
		return failResult(model.CodeMatricNumberMissing, "matric number is required")
	}

	descriptor, err := r.codec.Decode(token)
	if err != nil {
		if model.IsSecurityError(err) {
			r.logger.Warn("rejected tampered token", "error", err.Error())
		}
		return failResult(model.CodeInvalidQRFormat, decodeMessage(err))
	}

	online := r.monitor.Online()

	if !online && !descriptor.AllowOfflineSync {
		return failResult(model.CodeOfflineNotSupported, "this session does not allow offline attendance, reconnect and rescan")
	}

	queued, err := r.queue.List(ctx)
	if err != nil {
		r.logger.Error("failed to read pending queue", "error", err.Error())
		return failResult(model.CodeAttendanceUpdateError, "could not read the local attendance queue, try again")
	}

	for _, record := range queued {
		if record.SessionID == descriptor.SessionID && record.MatricNumber == matricNumber {
			return failResult(model.CodeDuplicateOfflineRecord, "attendance for this session is already queued on this device")
		}
	}

	if descriptor.SecurityFeatures.Has(model.SecurityDeviceGUIDCheck) {
		if deviceGUID == "" {
			return failResult(model.CodeDeviceGUIDMissing, "this session requires a device identifier")
		}
		for _, record := range queued {
			if record.SessionID == descriptor.SessionID &&
				record.DeviceGUID == deviceGUID &&
				record.MatricNumber != matricNumber {
				r.logger.Warn("device reuse rejected",
					"session_id", descriptor.SessionID,
					"device_guid", deviceGUID)
				return failResult(model.CodeDeviceAlreadyUsedOffline, "another student already used this device for this session")
			}
		}
	}

	data := model.AttendanceData{
		MatricNumber:         matricNumber,
		HasScannedAttendance: true,
		IsOnlineScan:         online,
		DeviceGUID:           deviceGUID,
	}

	if online {
		result, queueAnyway := r.tryImmediate(ctx, token, descriptor, data)
		if !queueAnyway {
			return result
		}
	}

	scanTime := r.now().UTC()
	record := model.AttendanceScanRecord{
		ID:            uuid.New(),
		SessionID:     descriptor.SessionID,
		MatricNumber:  matricNumber,
		HasScanned:    true,
		ScanTime:      &scanTime,
		IsOnlineScan:  online,
		DeviceGUID:    deviceGUID,
		SyncStatus:    model.SyncStatusPending,
		Token:         token,
		SessionExpiry: descriptor.ExpirationTime,
	}

	if err := r.queue.Append(ctx, record); err != nil {
		r.logger.Error("failed to queue offline scan",
			"session_id", descriptor.SessionID,
			"error", err.Error())
		return failResult(model.CodeAttendanceUpdateError, "could not save the scan locally, try again")
	}

	r.logger.Info("scan queued for later sync",
		"session_id", descriptor.SessionID,
		"matric_number", matricNumber)

	return model.ScanResult{
		Success:       true,
		Message:       "attendance recorded offline, it will sync when connection returns",
		IsOfflineMode: true,
		RequiresSync:  true,
	}
}

// tryImmediate attempts the remote call for an online scan. The second
// return value reports whether the scan should fall back to the offline
// queue (transient failure on a session that allows it).
func (r *Reconciler) tryImmediate(ctx context.Context, token string, descriptor model.SessionDescriptor, data model.AttendanceData) (model.ScanResult, bool) {
	req, err := r.builder.BuildRequest(token, data)
	if err != nil {
		return failResult(model.CodeInvalidQRFormat, decodeMessage(err)), false
	}

	err = r.validator.Send(ctx, req)
	if err == nil {
		return model.ScanResult{
			Success: true,
			Message: "attendance recorded",
		}, false
	}

	var remoteErr *model.RemoteError
	if errors.As(err, &remoteErr) {
		if remoteErr.Retryable() {
			if descriptor.AllowOfflineSync {
				r.logger.Info("remote call failed transiently, queueing scan",
					"session_id", descriptor.SessionID,
					"code", string(remoteErr.Code))
				return model.ScanResult{}, true
			}
			return failResult(remoteErr.Code, "could not reach the attendance service, try again"), false
		}
		return failResult(remoteErr.Code, remoteMessage(remoteErr)), false
	}

	r.logger.Error("unexpected remote failure", "error", err.Error())
	return failResult(model.CodeNetworkError, "could not reach the attendance service, try again"), false
}

// ManualSync replays retry-eligible queued records in FIFO order. Every
// record gets an attempt; the batch never aborts on first failure.
func (r *Reconciler) ManualSync(ctx context.Context) (model.BatchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	queued, err := r.queue.List(ctx)
	if err != nil {
		return model.BatchResult{}, fmt.Errorf("failed to read pending queue: %w", err)
	}

	var batch model.BatchResult
	for _, record := range queued {
		if !record.RetryEligible(r.cfg.MaxRetries) {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		batch.Total++
		outcome := r.syncOne(ctx, record)
		batch.Records = append(batch.Records, outcome)

		switch outcome.Status {
		case model.SyncStatusSynced:
			batch.Succeeded++
		case model.SyncStatusExpired:
			batch.Expired++
		default:
			batch.Failed++
		}
	}

	r.logger.Info("sync batch finished",
		"total", batch.Total,
		"succeeded", batch.Succeeded,
		"failed", batch.Failed,
		"expired", batch.Expired)

	return batch, nil
}

func (r *Reconciler) syncOne(ctx context.Context, record model.AttendanceScanRecord) model.RecordSyncResult {
	outcome := model.RecordSyncResult{
		RecordID:     record.ID,
		MatricNumber: record.MatricNumber,
		SessionID:    record.SessionID,
	}

	if r.now().UTC().After(record.SessionExpiry) {
		record.SyncStatus = model.SyncStatusExpired
		if err := r.queue.Update(ctx, record); err != nil {
			r.logger.Error("failed to mark record expired", "record_id", record.ID, "error", err.Error())
		}
		outcome.Status = model.SyncStatusExpired
		outcome.Message = "session expired before the scan could sync"
		return outcome
	}

	record.SyncStatus = model.SyncStatusProcessing
	if err := r.queue.Update(ctx, record); err != nil {
		r.logger.Error("failed to mark record processing", "record_id", record.ID, "error", err.Error())
	}

	err := r.dispatchRecord(ctx, record)
	if err == nil {
		if err := r.queue.Remove(ctx, record.ID); err != nil {
			r.logger.Error("failed to remove synced record", "record_id", record.ID, "error", err.Error())
		}
		outcome.Status = model.SyncStatusSynced
		return outcome
	}

	if errors.Is(err, model.ErrTokenExpired) {
		record.SyncStatus = model.SyncStatusExpired
		if uerr := r.queue.Update(ctx, record); uerr != nil {
			r.logger.Error("failed to mark record expired", "record_id", record.ID, "error", uerr.Error())
		}
		outcome.Status = model.SyncStatusExpired
		outcome.Message = "session expired before the scan could sync"
		return outcome
	}

	record.SyncStatus = model.SyncStatusFailed
	record.RetryCount++

	var remoteErr *model.RemoteError
	switch {
	case errors.As(err, &remoteErr):
		record.LastErrorCode = remoteErr.Code
		outcome.ErrorCode = remoteErr.Code
		outcome.Message = remoteMessage(remoteErr)
	default:
		record.LastErrorCode = model.CodeInvalidQRFormat
		outcome.ErrorCode = model.CodeInvalidQRFormat
		outcome.Message = decodeMessage(err)
	}
	outcome.Status = model.SyncStatusFailed

	if uerr := r.queue.Update(ctx, record); uerr != nil {
		r.logger.Error("failed to mark record failed", "record_id", record.ID, "error", uerr.Error())
	}
	return outcome
}

func (r *Reconciler) dispatchRecord(ctx context.Context, record model.AttendanceScanRecord) error {
	req, err := r.builder.BuildRequest(record.Token, model.AttendanceData{
		MatricNumber:         record.MatricNumber,
		HasScannedAttendance: record.HasScanned,
		IsOnlineScan:         record.IsOnlineScan,
		DeviceGUID:           record.DeviceGUID,
	})
	if err != nil {
		return err
	}
	return r.validator.Send(ctx, req)
}

// Pending returns the queued records awaiting sync.
func (r *Reconciler) Pending(ctx context.Context) ([]model.AttendanceScanRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queue.List(ctx)
}

// Run drives automatic reconciliation from connectivity transitions until
// the context ends. Reconnects are debounced so a connection that
// immediately drops again does not fire a batch.
func (r *Reconciler) Run(ctx context.Context) {
	changes := r.monitor.Changes()
	var settle <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case online, ok := <-changes:
			if !ok {
				return
			}
			if online {
				settle = time.After(r.cfg.Debounce)
			} else {
				settle = nil
			}
		case <-settle:
			settle = nil
			if !r.monitor.Online() {
				continue
			}
			if _, err := r.ManualSync(ctx); err != nil {
				r.logger.Error("automatic sync failed", "error", err.Error())
			}
		}
	}
}

func failResult(code model.ErrorCode, message string) model.ScanResult {
	return model.ScanResult{Message: message, ErrorCode: code}
}

func decodeMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrNotAppToken):
		return "this QR code is not an attendance code"
	case errors.Is(err, model.ErrTokenExpired):
		return "QR code expired, ask for a fresh one and rescan"
	case errors.Is(err, model.ErrSignatureInvalid), errors.Is(err, model.ErrTemporalKeyInvalid):
		return "QR code failed verification and was rejected"
	case errors.Is(err, model.ErrFutureDated):
		return "QR code is not valid yet, check your device clock"
	default:
		return "QR code could not be read, rescan"
	}
}

func remoteMessage(err *model.RemoteError) string {
	switch err.Code {
	case model.CodeDuplicateAttendance:
		return "attendance for this session was already recorded"
	case model.CodeSessionNotFound:
		return "this session no longer exists"
	case model.CodeTemporalKeyExpired:
		return "QR code expired, ask for a fresh one and rescan"
	case model.CodeDeviceSecurityViolation:
		return "another student already used this device for this session"
	default:
		if err.Message != "" {
			return err.Message
		}
		return string(err.Code)
	}
}
