// Package testing puts the process into test mode when blank-imported from a
// _test.go file.
package testing

import "os"

// defaults only fill variables that are unset, so LOG_LEVEL=debug still
// works while chasing a failing test.
var defaults = map[string]string{
	"PECSA_TEST_MODE": "1",
	"LOG_LEVEL":       "error",
}

func init() {
	Apply()
}

// Apply sets every test default that is not already present.
func Apply() {
	for key, value := range defaults {
		if _, ok := os.LookupEnv(key); !ok {
			_ = os.Setenv(key, value)
		}
	}
}
