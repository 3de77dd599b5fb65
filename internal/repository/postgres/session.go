package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/Mid-D-Man/AirCode-sub002/internal/model"
)

var _ model.SessionStore = (*SessionRepository)(nil)

// SessionRepository persists issued sessions. The temporal key is never
// stored; validation always recomputes it from (session_id, start_time).
type SessionRepository struct {
	db *Connection
}

func NewSessionRepository(db *Connection) *SessionRepository {
	return &SessionRepository{
		db: db,
	}
}

func (r *SessionRepository) Create(ctx context.Context, session model.SessionDescriptor) error {
	query := `
		INSERT INTO sessions (session_id, course_code, start_time, duration_minutes,
		                      generated_time, expiration_time, use_temporal_key_refresh,
		                      allow_offline_sync, security_features)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_id) DO UPDATE SET
			generated_time = EXCLUDED.generated_time,
			expiration_time = EXCLUDED.expiration_time`

	_, err := r.db.Exec(ctx, query,
		session.SessionID, session.CourseCode, session.StartTime, session.DurationMinutes,
		session.GeneratedTime, session.ExpirationTime, session.UseTemporalKeyRefresh,
		session.AllowOfflineSync, int(session.SecurityFeatures),
	)
	return err
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (model.SessionDescriptor, error) {
	query := `
		SELECT session_id, course_code, start_time, duration_minutes,
		       generated_time, expiration_time, use_temporal_key_refresh,
		       allow_offline_sync, security_features
		FROM sessions
		WHERE session_id = $1`

	var session model.SessionDescriptor
	var features int
	err := r.db.QueryRow(ctx, query, sessionID).Scan(
		&session.SessionID, &session.CourseCode, &session.StartTime, &session.DurationMinutes,
		&session.GeneratedTime, &session.ExpirationTime, &session.UseTemporalKeyRefresh,
		&session.AllowOfflineSync, &features,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.SessionDescriptor{}, model.ErrNotFound
		}
		return model.SessionDescriptor{}, err
	}

	session.SecurityFeatures = model.SecurityFeature(features)
	return session, nil
}
