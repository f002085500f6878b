package server

import (
	"sync/atomic"
	"time"
)

// telemetryCounters tracks broadcast and tick costs for /diagnostics.
type telemetryCounters struct {
	broadcasts         atomic.Uint64
	bytesSent          atomic.Uint64
	lastBroadcastBytes atomic.Uint64
	tickDurationMillis atomic.Int64
	droppedRecipients  atomic.Uint64
}

type telemetrySnapshot struct {
	Broadcasts         uint64 `json:"broadcasts"`
	BytesSent          uint64 `json:"bytesSent"`
	LastBroadcastBytes uint64 `json:"lastBroadcastBytes"`
	TickDuration       int64  `json:"tickDurationMillis"`
	DroppedRecipients  uint64 `json:"droppedRecipients"`
}

func (t *telemetryCounters) RecordBroadcast(bytes, recipients int) {
	if bytes < 0 {
		bytes = 0
	}
	t.broadcasts.Add(1)
	t.bytesSent.Add(uint64(bytes) * uint64(max(recipients, 0)))
	t.lastBroadcastBytes.Store(uint64(bytes))
}

func (t *telemetryCounters) RecordTickDuration(duration time.Duration) {
	millis := duration.Milliseconds()
	if millis < 0 {
		millis = 0
	}
	t.tickDurationMillis.Store(millis)
}

func (t *telemetryCounters) RecordDroppedRecipient() {
	t.droppedRecipients.Add(1)
}

func (t *telemetryCounters) Snapshot() telemetrySnapshot {
	return telemetrySnapshot{
		Broadcasts:         t.broadcasts.Load(),
		BytesSent:          t.bytesSent.Load(),
		LastBroadcastBytes: t.lastBroadcastBytes.Load(),
		TickDuration:       t.tickDurationMillis.Load(),
		DroppedRecipients:  t.droppedRecipients.Load(),
	}
}
