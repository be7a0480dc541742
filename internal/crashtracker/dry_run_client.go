package crashtracker

import (
	"context"
	"fmt"
	"time"

	"github.com/stellar/go/support/log"
)

// dryRunClient logs what would have been reported, without any external calls.
type dryRunClient struct{}

var _ CrashTrackerClient = (*dryRunClient)(nil)

func NewDryRunClient() (*dryRunClient, error) {
	return &dryRunClient{}, nil
}

func (c *dryRunClient) LogAndReportErrors(ctx context.Context, err error, msg string) {
	if msg != "" {
		err = fmt.Errorf("%s: %w", msg, err)
	}
	log.Ctx(ctx).Errorf("[DRY_RUN Crash Reporter] %+v", err)
}

func (c *dryRunClient) LogAndReportMessages(ctx context.Context, msg string) {
	log.Ctx(ctx).Infof("[DRY_RUN Crash Reporter] %s", msg)
}

func (c *dryRunClient) FlushEvents(waitTime time.Duration) bool {
	return false
}

func (c *dryRunClient) Recover() {}

func (c *dryRunClient) Clone() CrashTrackerClient {
	return &dryRunClient{}
}
