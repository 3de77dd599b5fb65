package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Mid-D-Man/AirCode-sub002/internal/model"
)

const uniqueViolation = "23505"

var _ model.AttendanceStore = (*AttendanceRepository)(nil)

type AttendanceRepository struct {
	db *Connection
}

func NewAttendanceRepository(db *Connection) *AttendanceRepository {
	return &AttendanceRepository{
		db: db,
	}
}

// Insert stores one confirmed attendance row. The schema's unique
// constraints enforce per-matric and per-device uniqueness atomically, so
// concurrent submissions from multiple devices cannot double-count.
func (r *AttendanceRepository) Insert(ctx context.Context, record model.AttendanceScanRecord) error {
	query := `
		INSERT INTO attendance_records (id, session_id, matric_number, has_scanned,
		                                scan_time, is_online_scan, device_guid)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))`

	_, err := r.db.Exec(ctx, query,
		record.ID, record.SessionID, record.MatricNumber, record.HasScanned,
		record.ScanTime, record.IsOnlineScan, record.DeviceGUID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			switch pgErr.ConstraintName {
			case "attendance_unique_matric":
				return model.ErrDuplicateAttendance
			case "attendance_unique_device":
				return model.ErrDeviceAlreadyUsed
			}
		}
		return err
	}
	return nil
}

func (r *AttendanceRepository) ListBySession(ctx context.Context, sessionID string) ([]model.AttendanceScanRecord, error) {
	query := `
		SELECT id, session_id, matric_number, has_scanned, scan_time,
		       is_online_scan, COALESCE(device_guid, '')
		FROM attendance_records
		WHERE session_id = $1
		ORDER BY scan_time ASC NULLS LAST`

	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.AttendanceScanRecord
	for rows.Next() {
		var record model.AttendanceScanRecord
		err := rows.Scan(
			&record.ID, &record.SessionID, &record.MatricNumber, &record.HasScanned,
			&record.ScanTime, &record.IsOnlineScan, &record.DeviceGUID,
		)
		if err != nil {
			return nil, err
		}
		record.SyncStatus = model.SyncStatusSynced
		records = append(records, record)
	}
	return records, rows.Err()
}
