// Package edge constructs and dispatches the signed remote-call payloads the
// attendance validation function consumes.
package edge

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/Mid-D-Man/AirCode-sub002/internal/codec"
	"github.com/Mid-D-Man/AirCode-sub002/internal/model"
	"github.com/Mid-D-Man/AirCode-sub002/internal/qrcrypto"
)

// Builder extracts the unencrypted-but-signed subset of session data and
// pairs it with a scan record.
type Builder struct {
	codec         *codec.Codec
	signingSecret []byte
}

// NewBuilder creates a Builder signing with the same application secret the
// codec uses for tokens.
func NewBuilder(c *codec.Codec, signingSecret []byte) *Builder {
	return &Builder{codec: c, signingSecret: signingSecret}
}

// BuildPayload flattens a decoded descriptor into the partial payload sent
// to the remote function. ExpirationTime travels as endTime on the wire.
func (b *Builder) BuildPayload(descriptor model.SessionDescriptor) model.PartialPayload {
	return model.PartialPayload{
		SessionID:             descriptor.SessionID,
		CourseCode:            descriptor.CourseCode,
		StartTime:             descriptor.StartTime,
		EndTime:               descriptor.ExpirationTime,
		TemporalKey:           descriptor.TemporalKey,
		UseTemporalKeyRefresh: descriptor.UseTemporalKeyRefresh,
	}
}

// BuildRequest decodes the token, builds the partial payload and signs its
// canonical serialization. Decode failures propagate unchanged; no request
// is built for an invalid token.
func (b *Builder) BuildRequest(token string, data model.AttendanceData) (model.EdgeFunctionRequest, error) {
	descriptor, err := b.codec.Decode(token)
	if err != nil {
		return model.EdgeFunctionRequest{}, err
	}

	payload := b.BuildPayload(descriptor)

	signature, err := SignPayload(payload, b.signingSecret)
	if err != nil {
		return model.EdgeFunctionRequest{}, err
	}

	return model.EdgeFunctionRequest{
		QRCodePayload:    payload,
		AttendanceData:   data,
		PayloadSignature: signature,
	}, nil
}

// SignPayload computes the hex HMAC over the canonical payload
// serialization. The validation function recomputes the same value.
func SignPayload(payload model.PartialPayload, secret []byte) (string, error) {
	serialized, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to serialize payload: %w", err)
	}
	return hex.EncodeToString(qrcrypto.Sign(serialized, secret)), nil
}

// VerifyPayload checks a payload signature produced by SignPayload.
func VerifyPayload(payload model.PartialPayload, signature string, secret []byte) (bool, error) {
	serialized, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("failed to serialize payload: %w", err)
	}
	tag, err := hex.DecodeString(signature)
	if err != nil {
		return false, nil
	}
	return qrcrypto.Verify(serialized, tag, secret), nil
}
