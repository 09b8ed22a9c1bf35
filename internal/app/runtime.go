package app

import (
	"os"
	"strconv"
	"sync"
)

// TestModeEnv switches off runtime side effects such as listening sockets
// and log output.
const TestModeEnv = "PECSA_TEST_MODE"

var testMode struct {
	sync.Mutex
	resolved bool
	on       bool
}

// InTestMode reports whether PECSA_TEST_MODE is set to a true value. The
// environment is read once; SetTestMode overrides it.
func InTestMode() bool {
	testMode.Lock()
	defer testMode.Unlock()
	if !testMode.resolved {
		testMode.on, _ = strconv.ParseBool(os.Getenv(TestModeEnv))
		testMode.resolved = true
	}
	return testMode.on
}

// SetTestMode forces the test mode flag and returns a func restoring the
// previous value.
func SetTestMode(on bool) (restore func()) {
	prev := InTestMode()
	testMode.Lock()
	testMode.on = on
	testMode.Unlock()
	return func() {
		testMode.Lock()
		testMode.on = prev
		testMode.Unlock()
	}
}
