// Package guard switches the console into test mode when imported, so that
// tests exercising cmd/console never bind ports or dial Redis.
package guard

import (
	"os"
	"sync"
)

// EnvVar is the environment variable read by app.InTestMode.
const EnvVar = "CONSOLE_TEST_MODE"

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv(EnvVar) == "" {
			_ = os.Setenv(EnvVar, "1")
		}
	})
}
