package edge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mid-D-Man/AirCode-sub002/internal/model"
	"github.com/Mid-D-Man/AirCode-sub002/internal/testutil"
)

func testRequest() model.EdgeFunctionRequest {
	return model.EdgeFunctionRequest{
		QRCodePayload: model.PartialPayload{
			SessionID:   "sess-1",
			CourseCode:  "CSC201",
			TemporalKey: "abcd1234abcd1234",
		},
		AttendanceData: model.AttendanceData{
			MatricNumber:         "U2021/1234",
			HasScannedAttendance: true,
		},
		PayloadSignature: "aabbcc",
	}
}

func TestDispatcher_Send_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req model.EdgeFunctionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sess-1", req.QRCodePayload.SessionID)
		assert.Equal(t, "U2021/1234", req.AttendanceData.MatricNumber)

		json.NewEncoder(w).Encode(Response{Success: true})
	}))
	defer srv.Close()

	d := NewDispatcher(srv.URL, 5*time.Second, testutil.MakeNoopLogger())

	err := d.Send(context.Background(), testRequest())
	assert.NoError(t, err)
}

func TestDispatcher_Send_RemoteErrorCodes(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          Response
		wantCode      model.ErrorCode
		wantRetryable bool
	}{
		{
			name:          "duplicate attendance is terminal",
			status:        http.StatusConflict,
			body:          Response{Success: false, Error: "DUPLICATE_ATTENDANCE", Message: "already recorded"},
			wantCode:      model.CodeDuplicateAttendance,
			wantRetryable: false,
		},
		{
			name:          "session not found is terminal",
			status:        http.StatusNotFound,
			body:          Response{Success: false, Error: "SESSION_NOT_FOUND"},
			wantCode:      model.CodeSessionNotFound,
			wantRetryable: false,
		},
		{
			name:          "temporal key expired is terminal",
			status:        http.StatusUnauthorized,
			body:          Response{Success: false, Error: "TEMPORAL_KEY_EXPIRED"},
			wantCode:      model.CodeTemporalKeyExpired,
			wantRetryable: false,
		},
		{
			name:          "device security violation is terminal",
			status:        http.StatusForbidden,
			body:          Response{Success: false, Error: "DEVICE_SECURITY_VIOLATION"},
			wantCode:      model.CodeDeviceSecurityViolation,
			wantRetryable: false,
		},
		{
			name:          "session query error is retryable",
			status:        http.StatusInternalServerError,
			body:          Response{Success: false, Error: "SESSION_QUERY_ERROR"},
			wantCode:      model.CodeSessionQueryError,
			wantRetryable: true,
		},
		{
			name:          "attendance update error is retryable",
			status:        http.StatusInternalServerError,
			body:          Response{Success: false, Error: "ATTENDANCE_UPDATE_ERROR"},
			wantCode:      model.CodeAttendanceUpdateError,
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(tt.body)
			}))
			defer srv.Close()

			d := NewDispatcher(srv.URL, 5*time.Second, testutil.MakeNoopLogger())

			err := d.Send(context.Background(), testRequest())
			require.Error(t, err)

			var remoteErr *model.RemoteError
			require.ErrorAs(t, err, &remoteErr)
			assert.Equal(t, tt.wantCode, remoteErr.Code)
			assert.Equal(t, tt.wantRetryable, remoteErr.Retryable())
		})
	}
}

func TestDispatcher_Send_ConnectionRefused(t *testing.T) {
	// A closed server simulates the device being offline.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	d := NewDispatcher(srv.URL, time.Second, testutil.MakeNoopLogger())

	err := d.Send(context.Background(), testRequest())
	var remoteErr *model.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, model.CodeNetworkError, remoteErr.Code)
	assert.True(t, remoteErr.Retryable())
}

func TestDispatcher_Send_TimeoutIsRetryable(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer func() {
		close(block)
		srv.Close()
	}()

	d := NewDispatcher(srv.URL, 50*time.Millisecond, testutil.MakeNoopLogger())

	err := d.Send(context.Background(), testRequest())
	var remoteErr *model.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, model.CodeNetworkError, remoteErr.Code)
	assert.True(t, remoteErr.Retryable())
}

func TestDispatcher_Send_UnreadableBody(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode model.ErrorCode
	}{
		{name: "5xx garbage is retryable", status: http.StatusBadGateway, body: "<html>bad gateway</html>", wantCode: model.CodeNetworkError},
		{name: "4xx garbage is terminal", status: http.StatusBadRequest, body: "nope", wantCode: model.CodeInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			d := NewDispatcher(srv.URL, time.Second, testutil.MakeNoopLogger())

			err := d.Send(context.Background(), testRequest())
			var remoteErr *model.RemoteError
			require.ErrorAs(t, err, &remoteErr)
			assert.Equal(t, tt.wantCode, remoteErr.Code)
		})
	}
}
