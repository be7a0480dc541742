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

func Test_StatementProcessorJob_GetInterval(t *testing.T) {
	interval := 30
	j := NewStatementProcessorJob(StatementProcessorJobOptions{JobIntervalSeconds: interval})
	require.Equal(t, time.Duration(interval)*time.Second, j.GetInterval())
}

func Test_StatementProcessorJob_GetName(t *testing.T) {
	j := NewStatementProcessorJob(StatementProcessorJobOptions{JobIntervalSeconds: 5})
	require.Equal(t, statementProcessorJobName, j.GetName())
}

func Test_StatementProcessorJob_Execute(t *testing.T) {
	tests := []struct {
		name              string
		processStatements func(ctx context.Context) error
		wantErr           bool
	}{
		{
			name: "ProcessEligibleStatements success",
			processStatements: func(ctx context.Context) error {
				return nil
			},
			wantErr: false,
		},
		{
			name: "ProcessEligibleStatements returns error",
			processStatements: func(ctx context.Context) error {
				return fmt.Errorf("error")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockStatementProcessorService := &mocks.MockStatementProcessorService{}
			mockStatementProcessorService.On("ProcessEligibleStatements", mock.Anything).
				Return(tt.processStatements(nil))

			j := statementProcessorJob{
				service: mockStatementProcessorService,
			}

			err := j.Execute(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("statementProcessorJob.Execute() error = %v, wantErr %v", err, tt.wantErr)
			}

			mockStatementProcessorService.AssertExpectations(t)
		})
	}
}
