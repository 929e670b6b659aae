package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(signal_id|scenario_id|opened_at)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(
	signalID string,
	scenarioID string,
	openedAt int64,
) string {
	data := fmt.Sprintf("%s|%s|%d",
		signalID,
		scenarioID,
		openedAt,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeRunID computes a deterministic backtest run_id using SHA256.
// Formula: SHA256(symbol|config_fingerprint|start_ms|end_ms|bars)
// Returns hex-encoded hash (64 characters).
func ComputeRunID(
	symbol string,
	configFingerprint string,
	startMs int64,
	endMs int64,
	bars int,
) string {
	data := fmt.Sprintf("%s|%s|%d|%d|%d",
		symbol,
		configFingerprint,
		startMs,
		endMs,
		bars,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// Fingerprint hashes an arbitrary canonical representation of a configuration.
// Returns the first 16 hex characters of SHA256.
func Fingerprint(canonical []byte) string {
	hash := sha256.Sum256(canonical)
	return hex.EncodeToString(hash[:8])
}
