package app

import (
	"os"
	"sync/atomic"
)

const testModeEnv = "SALON360_TEST_MODE"

// testMode caches the last reading of SALON360_TEST_MODE; nil until first use.
var testMode atomic.Pointer[bool]

func loadTestMode() bool {
	enabled := os.Getenv(testModeEnv) == "1"
	testMode.Store(&enabled)
	return enabled
}

// InTestMode reports whether entrypoints should skip connecting to Postgres and Redis.
// The environment is read once and cached until RefreshTestMode.
func InTestMode() bool {
	if cached := testMode.Load(); cached != nil {
		return *cached
	}
	return loadTestMode()
}

// RefreshTestMode re-reads SALON360_TEST_MODE after environment changes.
func RefreshTestMode() {
	loadTestMode()
}
