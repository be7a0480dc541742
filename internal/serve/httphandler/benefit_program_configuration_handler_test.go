package httphandler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/openg2p/g2p-bridge-backend/internal/data"
	"github.com/openg2p/g2p-bridge-backend/internal/services/mocks"
)

func Test_BenefitProgramConfigurationHandler_GetBenefitProgramConfigurations(t *testing.T) {
	createdAt := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	testCases := []struct {
		name             string
		prepareMocks     func(t *testing.T, mProgramService *mocks.MockBenefitProgramService)
		expectedStatus   int
		expectedResponse string
	}{
		{
			name: "returns InternalError when the service fails",
			prepareMocks: func(t *testing.T, mProgramService *mocks.MockBenefitProgramService) {
				mProgramService.
					On("GetAllConfigurations", mock.Anything).
					Return(nil, errors.New("unexpected error")).
					Once()
			},
			expectedStatus:   http.StatusInternalServerError,
			expectedResponse: `{"error": "Cannot retrieve benefit program configurations"}`,
		},
		{
			name: "successfully lists the configurations",
			prepareMocks: func(t *testing.T, mProgramService *mocks.MockBenefitProgramService) {
				configs := []data.BenefitProgramConfiguration{
					{
						ProgramMnemonic:            "CASH-2026",
						ProgramName:                "Unconditional Cash Transfer",
						FundingOrgCode:             "FO-01",
						FundingOrgName:             "Ministry of Social Welfare",
						SponsorBankCode:            "EXAMPLE",
						SponsorBankAccountNumber:   "1234567890",
						SponsorBankBranchCode:      "BR-001",
						SponsorBankAccountCurrency: "USD",
						IDMapperResolutionRequired: true,
						CreatedAt:                  createdAt,
						UpdatedAt:                  createdAt,
					},
				}
				mProgramService.
					On("GetAllConfigurations", mock.Anything).
					Return(configs, nil).
					Once()
			},
			expectedStatus: http.StatusOK,
			expectedResponse: `{
				"response_status": "SUCCESS",
				"response_payload": [{
					"benefit_program_mnemonic": "CASH-2026",
					"benefit_program_name": "Unconditional Cash Transfer",
					"funding_org_code": "FO-01",
					"funding_org_name": "Ministry of Social Welfare",
					"sponsor_bank_code": "EXAMPLE",
					"sponsor_bank_account_number": "1234567890",
					"sponsor_bank_branch_code": "BR-001",
					"sponsor_bank_account_currency": "USD",
					"id_mapper_resolution_required": true,
					"created_at": "2026-08-01T09:00:00Z",
					"updated_at": "2026-08-01T09:00:00Z"
				}]
			}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mProgramService := &mocks.MockBenefitProgramService{}
			tc.prepareMocks(t, mProgramService)
			handler := BenefitProgramConfigurationHandler{ProgramService: mProgramService}

			req := httptest.NewRequest(http.MethodGet, "/benefit_program_configurations", nil)
			rr := httptest.NewRecorder()
			http.HandlerFunc(handler.GetBenefitProgramConfigurations).ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code)
			assert.JSONEq(t, tc.expectedResponse, rr.Body.String())

			mProgramService.AssertExpectations(t)
		})
	}
}

func Test_BenefitProgramConfigurationHandler_PostBenefitProgramConfiguration(t *testing.T) {
	testCases := []struct {
		name             string
		requestBody      string
		prepareMocks     func(t *testing.T, mProgramService *mocks.MockBenefitProgramService)
		expectedStatus   int
		expectedResponse string
	}{
		{
			name:             "returns BadRequest when the body is not valid JSON",
			requestBody:      `invalid json`,
			prepareMocks:     func(t *testing.T, mProgramService *mocks.MockBenefitProgramService) {},
			expectedStatus:   http.StatusBadRequest,
			expectedResponse: `{"error": "invalid request body"}`,
		},
		{
			name:        "returns BadRequest when a required field is missing",
			requestBody: `{"request_payload": {"benefit_program_name": "Unconditional Cash Transfer"}}`,
			prepareMocks: func(t *testing.T, mProgramService *mocks.MockBenefitProgramService) {
				mProgramService.
					On("CreateConfiguration", mock.Anything, mock.AnythingOfType("*data.BenefitProgramConfiguration")).
					Return(fmt.Errorf("benefit_program_mnemonic is required: %w", data.ErrMissingInput)).
					Once()
			},
			expectedStatus:   http.StatusBadRequest,
			expectedResponse: `{"error": "benefit_program_mnemonic is required: missing input"}`,
		},
		{
			name:        "returns Conflict when the program is already configured",
			requestBody: `{"request_payload": {"benefit_program_mnemonic": "CASH-2026"}}`,
			prepareMocks: func(t *testing.T, mProgramService *mocks.MockBenefitProgramService) {
				mProgramService.
					On("CreateConfiguration", mock.Anything, mock.AnythingOfType("*data.BenefitProgramConfiguration")).
					Return(fmt.Errorf("inserting program configuration CASH-2026: %w", data.ErrRecordAlreadyExists)).
					Once()
			},
			expectedStatus:   http.StatusConflict,
			expectedResponse: `{"error": "program configuration already exists"}`,
		},
		{
			name: "successfully creates the configuration",
			requestBody: `{
				"request_payload": {
					"benefit_program_mnemonic": "CASH-2026",
					"benefit_program_name": "Unconditional Cash Transfer",
					"funding_org_code": "FO-01",
					"funding_org_name": "Ministry of Social Welfare",
					"sponsor_bank_code": "EXAMPLE",
					"sponsor_bank_account_number": "1234567890",
					"sponsor_bank_branch_code": "BR-001",
					"sponsor_bank_account_currency": "USD",
					"id_mapper_resolution_required": true
				}
			}`,
			prepareMocks: func(t *testing.T, mProgramService *mocks.MockBenefitProgramService) {
				mProgramService.
					On("CreateConfiguration", mock.Anything, mock.AnythingOfType("*data.BenefitProgramConfiguration")).
					Return(nil).
					Once()
			},
			expectedStatus: http.StatusCreated,
			expectedResponse: `{
				"response_status": "SUCCESS",
				"response_payload": {
					"benefit_program_mnemonic": "CASH-2026",
					"benefit_program_name": "Unconditional Cash Transfer",
					"funding_org_code": "FO-01",
					"funding_org_name": "Ministry of Social Welfare",
					"sponsor_bank_code": "EXAMPLE",
					"sponsor_bank_account_number": "1234567890",
					"sponsor_bank_branch_code": "BR-001",
					"sponsor_bank_account_currency": "USD",
					"id_mapper_resolution_required": true,
					"created_at": "0001-01-01T00:00:00Z",
					"updated_at": "0001-01-01T00:00:00Z"
				}
			}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mProgramService := &mocks.MockBenefitProgramService{}
			tc.prepareMocks(t, mProgramService)
			handler := BenefitProgramConfigurationHandler{ProgramService: mProgramService}

			req := httptest.NewRequest(http.MethodPost, "/benefit_program_configurations", strings.NewReader(tc.requestBody))
			rr := httptest.NewRecorder()
			http.HandlerFunc(handler.PostBenefitProgramConfiguration).ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code)
			assert.JSONEq(t, tc.expectedResponse, rr.Body.String())

			mProgramService.AssertExpectations(t)
		})
	}
}
