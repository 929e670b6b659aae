package idhash

import (
	"fmt"

	"github.com/google/uuid"
)

// signalNamespace scopes signal UUIDs so they never collide with other v5 IDs.
var signalNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("signal-lab/signal"))

// ComputeSignalID computes a deterministic signal_id as a UUIDv5.
// Formula: UUIDv5(namespace, symbol|timestamp_ms|direction)
func ComputeSignalID(
	symbol string,
	timestampMs int64,
	direction string,
) string {
	data := fmt.Sprintf("%s|%d|%s",
		symbol,
		timestampMs,
		direction,
	)
	return uuid.NewSHA1(signalNamespace, []byte(data)).String()
}
