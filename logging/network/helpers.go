package network

import (
	"context"

	"github.com/DanielSh-bit/tank-family-server/logging"
)

const (
	// EventBroadcastFailed is emitted when a snapshot write to one recipient
	// fails; the recipient is torn down after the broadcast pass.
	EventBroadcastFailed logging.EventType = "network.broadcast_failed"
	// EventMalformedMessage is emitted when an inbound payload fails to parse.
	EventMalformedMessage logging.EventType = "network.malformed_message"
	// EventEncodeFailed is emitted when an outbound payload fails to marshal.
	EventEncodeFailed logging.EventType = "network.encode_failed"
	// EventStorageFailed is emitted when the credential store rejects a write.
	EventStorageFailed logging.EventType = "network.storage_failed"
)

type BroadcastFailedPayload struct {
	Error string `json:"error"`
}

type MalformedMessagePayload struct {
	Error string `json:"error"`
}

type EncodeFailedPayload struct {
	Error string `json:"error"`
}

type StorageFailedPayload struct {
	Error string `json:"error"`
}

// BroadcastFailed publishes a failed recipient write.
func BroadcastFailed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload BroadcastFailedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventBroadcastFailed,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// MalformedMessage publishes an unparsable inbound payload. The connection
// continues.
func MalformedMessage(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload MalformedMessagePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventMalformedMessage,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// EncodeFailed publishes a failed outbound marshal.
func EncodeFailed(ctx context.Context, pub logging.Publisher, tick uint64, payload EncodeFailedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventEncodeFailed,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindWorld},
		Severity: logging.SeverityError,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// StorageFailed publishes a failed credential store write.
func StorageFailed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload StorageFailedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventStorageFailed,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
