//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Mid-D-Man/AirCode-sub002/internal/model"
	repo "github.com/Mid-D-Man/AirCode-sub002/internal/repository/postgres"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "aircode_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/aircode_test?sslmode=disable", host, port.Port())

	code := m.Run()

	_ = container.Terminate(ctx)
	os.Exit(code)
}

func makeSession(sessionID string) model.SessionDescriptor {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	return model.SessionDescriptor{
		SessionID:        sessionID,
		CourseCode:       "CSC201",
		StartTime:        start,
		DurationMinutes:  60,
		GeneratedTime:    start,
		ExpirationTime:   start.Add(time.Hour),
		AllowOfflineSync: true,
		SecurityFeatures: model.SecurityDeviceGUIDCheck,
	}
}

func makeScan(sessionID, matric, device string) model.AttendanceScanRecord {
	scanTime := time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC)
	return model.AttendanceScanRecord{
		ID:           uuid.New(),
		SessionID:    sessionID,
		MatricNumber: matric,
		HasScanned:   true,
		ScanTime:     &scanTime,
		DeviceGUID:   device,
	}
}

func TestSessionRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	db, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()

	sessions := repo.NewSessionRepository(db)

	session := makeSession("sess-create-get")
	require.NoError(t, sessions.Create(ctx, session))

	got, err := sessions.GetByID(ctx, "sess-create-get")
	require.NoError(t, err)
	assert.Equal(t, session.CourseCode, got.CourseCode)
	assert.Equal(t, session.DurationMinutes, got.DurationMinutes)
	assert.Equal(t, session.SecurityFeatures, got.SecurityFeatures)
	assert.True(t, session.StartTime.Equal(got.StartTime))

	_, err = sessions.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestAttendanceRepository_UniqueConstraints(t *testing.T) {
	ctx := context.Background()
	db, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()

	sessions := repo.NewSessionRepository(db)
	attendance := repo.NewAttendanceRepository(db)

	require.NoError(t, sessions.Create(ctx, makeSession("sess-unique")))

	require.NoError(t, attendance.Insert(ctx, makeScan("sess-unique", "U2021/0001", "device-1")))

	// Same matric again, any device.
	err = attendance.Insert(ctx, makeScan("sess-unique", "U2021/0001", "device-2"))
	assert.ErrorIs(t, err, model.ErrDuplicateAttendance)

	// Different matric, same device.
	err = attendance.Insert(ctx, makeScan("sess-unique", "U2021/0002", "device-1"))
	assert.ErrorIs(t, err, model.ErrDeviceAlreadyUsed)

	// Different matric, no device GUID: allowed, NULLs do not collide.
	require.NoError(t, attendance.Insert(ctx, makeScan("sess-unique", "U2021/0003", "")))
	require.NoError(t, attendance.Insert(ctx, makeScan("sess-unique", "U2021/0004", "")))

	records, err := attendance.ListBySession(ctx, "sess-unique")
	require.NoError(t, err)
	assert.Len(t, records, 3)
	for _, record := range records {
		assert.Equal(t, model.SyncStatusSynced, record.SyncStatus)
	}
}
