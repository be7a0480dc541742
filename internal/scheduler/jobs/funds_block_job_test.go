package jobs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openg2p/g2p-bridge-backend/internal/services/mocks"
)

func Test_FundsBlockJob_GetInterval(t *testing.T) {
	interval := 6
	j := NewFundsBlockJob(FundsBlockJobOptions{JobIntervalSeconds: interval})
	require.Equal(t, time.Duration(interval)*time.Second, j.GetInterval())
}

func Test_FundsBlockJob_GetName(t *testing.T) {
	j := NewFundsBlockJob(FundsBlockJobOptions{JobIntervalSeconds: 5})
	require.Equal(t, fundsBlockJobName, j.GetName())
}

func Test_FundsBlockJob_Execute(t *testing.T) {
	tests := []struct {
		name           string
		blockEnvelopes func(ctx context.Context) error
		wantErr        bool
	}{
		{
			name: "BlockEligibleEnvelopes success",
			blockEnvelopes: func(ctx context.Context) error {
				return nil
			},
			wantErr: false,
		},
		{
			name: "BlockEligibleEnvelopes returns error",
			blockEnvelopes: func(ctx context.Context) error {
				return fmt.Errorf("error")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockFundsBlockService := &mocks.MockFundsBlockService{}
			mockFundsBlockService.On("BlockEligibleEnvelopes", mock.Anything).
				Return(tt.blockEnvelopes(nil))

			j := fundsBlockJob{
				service: mockFundsBlockService,
			}

			err := j.Execute(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("fundsBlockJob.Execute() error = %v, wantErr %v", err, tt.wantErr)
			}

			mockFundsBlockService.AssertExpectations(t)
		})
	}
}
