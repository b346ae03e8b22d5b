// Package tuning provides concurrency and resource sizing for the server.
// The step pipeline is battery-minded on device; on the server side the same
// knobs bound memory and write amplification.
package tuning

import (
	"runtime"
)

// Config holds tuned parameters for buffers and connection pools.
type Config struct {
	// Channel buffer sizes
	ReadingBuffer    int // pending sensor readings
	BroadcastBuffer  int // hub fan-out queue
	ClientSendBuffer int // per WebSocket client

	// Database connections
	DBMaxOpenConns int
	DBMaxIdleConns int
}

// DefaultConfig returns sensible defaults for production.
func DefaultConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		ReadingBuffer:    1024, // hardware sensors batch-deliver in bursts
		BroadcastBuffer:  256,
		ClientSendBuffer: 64,

		DBMaxOpenConns: numCPU * 2,
		DBMaxIdleConns: numCPU,
	}
}

// LowPowerConfig returns minimal settings for constrained environments.
func LowPowerConfig() *Config {
	return &Config{
		ReadingBuffer:    128,
		BroadcastBuffer:  32,
		ClientSendBuffer: 16,

		DBMaxOpenConns: 2,
		DBMaxIdleConns: 1,
	}
}
