package telemetry

import (
	"context"
	"sync"
	"testing"
)

var setupTestEnvironments sync.Map

// SetupForTesting sets up telemetry for a test binary once per service
// name. The returned function shuts it down.
func SetupForTesting(t testing.TB, serviceName string) func() {
	_, setupAlready := setupTestEnvironments.LoadOrStore(serviceName, struct{}{})
	if setupAlready {
		return func() {}
	}

	InitSlog(testing.Verbose())
	tel, err := SetupFromEnv(context.Background(), serviceName)
	if err != nil {
		t.Fatal(err)
	}
	return func() {
		err := tel.Shutdown(context.Background())
		if err != nil {
			t.Error(err)
		}
	}
}
