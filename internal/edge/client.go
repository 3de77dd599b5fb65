package edge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Mid-D-Man/AirCode-sub002/internal/logger"
	"github.com/Mid-D-Man/AirCode-sub002/internal/model"
)

// Response is the wire shape returned by the validation function.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

var _ model.RemoteValidator = (*Dispatcher)(nil)

// Dispatcher sends edge requests over HTTP with a per-call timeout.
// Transport failures and timeouts surface as retryable NETWORK_ERROR; the
// remote function's own codes pass through unchanged.
type Dispatcher struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
	logger   *logger.Logger
}

// NewDispatcher creates a Dispatcher for the given endpoint URL.
func NewDispatcher(endpoint string, timeout time.Duration, logger *logger.Logger) *Dispatcher {
	return &Dispatcher{
		endpoint: endpoint,
		client:   &http.Client{},
		timeout:  timeout,
		logger:   logger,
	}
}

// NewDispatcherWithClient allows injecting an HTTP client (used in tests).
func NewDispatcherWithClient(endpoint string, timeout time.Duration, client *http.Client, logger *logger.Logger) *Dispatcher {
	return &Dispatcher{endpoint: endpoint, client: client, timeout: timeout, logger: logger}
}

// Send posts one edge request. A nil return means the remote side confirmed
// the scan; every failure is a *model.RemoteError.
func (d *Dispatcher) Send(ctx context.Context, req model.EdgeFunctionRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return model.NewRemoteError(model.CodeInvalidJSON, fmt.Sprintf("failed to serialize request: %v", err))
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return model.NewRemoteError(model.CodeNetworkError, fmt.Sprintf("failed to build request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(httpReq)
	if err != nil {
		d.logger.Warn("edge call failed",
			"session_id", req.QRCodePayload.SessionID,
			"error", err.Error())
		return model.NewRemoteError(model.CodeNetworkError, err.Error())
	}
	defer resp.Body.Close()

	var parsed Response
	decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)

	if decodeErr != nil {
		if resp.StatusCode >= http.StatusInternalServerError {
			return model.NewRemoteError(model.CodeNetworkError, fmt.Sprintf("unreadable response, status %d", resp.StatusCode))
		}
		return model.NewRemoteError(model.CodeInvalidJSON, fmt.Sprintf("unreadable response, status %d", resp.StatusCode))
	}

	if parsed.Success {
		return nil
	}

	code := model.ErrorCode(parsed.Error)
	if code == "" {
		if resp.StatusCode >= http.StatusInternalServerError {
			code = model.CodeNetworkError
		} else {
			code = model.CodeMissingParameters
		}
	}

	return model.NewRemoteError(code, parsed.Message)
}
