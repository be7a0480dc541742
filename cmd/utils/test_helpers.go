package utils

import (
	"os"
	"strings"
	"testing"
)

// ClearTestEnvironment blanks every env var for the duration of the test, so
// config-option tests don't pick up values from the developer's shell.
func ClearTestEnvironment(t *testing.T) {
	t.Helper()
	for _, env := range os.Environ() {
		key := env[:strings.Index(env, "=")]
		t.Setenv(key, "")
	}
}
