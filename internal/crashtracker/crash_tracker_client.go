package crashtracker

import (
	"context"
	"time"
)

// CrashTrackerClient reports unhandled errors and panics from the API server
// and the pipeline workers. Clone hands each goroutine its own client.
type CrashTrackerClient interface {
	LogAndReportErrors(ctx context.Context, err error, msg string)
	LogAndReportMessages(ctx context.Context, msg string)
	FlushEvents(waitTime time.Duration) bool
	Recover()
	Clone() CrashTrackerClient
}
