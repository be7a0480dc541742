package utils

import (
	"go/types"

	"github.com/stellar/go/support/config"

	"github.com/openg2p/g2p-bridge-backend/internal/mapper"
)

// PipelineOptions holds the tunables of the background pipeline: the per-stage
// attempt caps, the producer periods, the external endpoints and the FA
// deconstruction strategies.
type PipelineOptions struct {
	FundsAvailableCheckAttempts int
	FundsBlockedAttempts        int
	MapperResolveAttempts       int
	FundsDisbursementAttempts   int
	StatementProcessAttempts    int

	FundsAvailableCheckPeriodSeconds int
	FundsBlockedPeriodSeconds        int
	MapperResolvePeriodSeconds       int
	FundsDisbursementPeriodSeconds   int
	StatementProcessPeriodSeconds    int

	MapperResolveAPIURL       string
	ExampleBankBaseURL        string
	BankRequestTimeoutSeconds int
	StatementCurrency         string

	BankFADeconstructStrategy         string
	MobileWalletFADeconstructStrategy string
	EmailWalletFADeconstructStrategy  string
}

// DeconstructStrategies converts the configured regex strings into the
// strategy set consumed by the mapper package.
func (o PipelineOptions) DeconstructStrategies() mapper.DeconstructStrategies {
	return mapper.DeconstructStrategies{
		BankAccount:  o.BankFADeconstructStrategy,
		MobileWallet: o.MobileWalletFADeconstructStrategy,
		EmailWallet:  o.EmailWalletFADeconstructStrategy,
	}
}

// PipelineConfigOptions returns the config options shared by every command
// that runs the stage pipeline.
func PipelineConfigOptions(opts *PipelineOptions) []*config.ConfigOption {
	return []*config.ConfigOption{
		{
			Name:        "funds-available-check-attempts",
			Usage:       "Maximum number of fund-availability checks per envelope before operator intervention is required",
			OptType:     types.Int,
			ConfigKey:   &opts.FundsAvailableCheckAttempts,
			FlagDefault: 3,
			Required:    true,
		},
		{
			Name:        "funds-blocked-attempts",
			Usage:       "Maximum number of fund-block attempts per envelope",
			OptType:     types.Int,
			ConfigKey:   &opts.FundsBlockedAttempts,
			FlagDefault: 3,
			Required:    true,
		},
		{
			Name:        "mapper-resolve-attempts",
			Usage:       "Maximum number of mapper resolution attempts per batch",
			OptType:     types.Int,
			ConfigKey:   &opts.MapperResolveAttempts,
			FlagDefault: 3,
			Required:    true,
		},
		{
			Name:        "funds-disbursement-attempts",
			Usage:       "Maximum number of payment dispatch attempts per bank batch",
			OptType:     types.Int,
			ConfigKey:   &opts.FundsDisbursementAttempts,
			FlagDefault: 3,
			Required:    true,
		},
		{
			Name:        "statement-process-attempts",
			Usage:       "Maximum number of processing attempts per uploaded MT940 statement",
			OptType:     types.Int,
			ConfigKey:   &opts.StatementProcessAttempts,
			FlagDefault: 3,
			Required:    true,
		},
		{
			Name:        "funds-available-check-period-seconds",
			Usage:       "Period in seconds of the fund-availability producer",
			OptType:     types.Int,
			ConfigKey:   &opts.FundsAvailableCheckPeriodSeconds,
			FlagDefault: 10,
			Required:    true,
		},
		{
			Name:        "funds-blocked-period-seconds",
			Usage:       "Period in seconds of the fund-block producer",
			OptType:     types.Int,
			ConfigKey:   &opts.FundsBlockedPeriodSeconds,
			FlagDefault: 10,
			Required:    true,
		},
		{
			Name:        "mapper-resolve-period-seconds",
			Usage:       "Period in seconds of the mapper-resolution producer",
			OptType:     types.Int,
			ConfigKey:   &opts.MapperResolvePeriodSeconds,
			FlagDefault: 10,
			Required:    true,
		},
		{
			Name:        "funds-disbursement-period-seconds",
			Usage:       "Period in seconds of the payment-dispatch producer",
			OptType:     types.Int,
			ConfigKey:   &opts.FundsDisbursementPeriodSeconds,
			FlagDefault: 10,
			Required:    true,
		},
		{
			Name:        "statement-process-period-seconds",
			Usage:       "Period in seconds of the statement-processor producer",
			OptType:     types.Int,
			ConfigKey:   &opts.StatementProcessPeriodSeconds,
			FlagDefault: 10,
			Required:    true,
		},
		{
			Name:           "mapper-resolve-api-url",
			Usage:          "The resolve endpoint of the external ID mapper",
			OptType:        types.String,
			CustomSetValue: SetConfigOptionURLString,
			ConfigKey:      &opts.MapperResolveAPIURL,
			FlagDefault:    "http://localhost:8007/mapper/resolve",
			Required:       true,
		},
		{
			Name:           "example-bank-base-url",
			Usage:          "Base URL of the Example Bank HTTP API",
			OptType:        types.String,
			CustomSetValue: SetConfigOptionURLString,
			ConfigKey:      &opts.ExampleBankBaseURL,
			FlagDefault:    "http://localhost:8501",
			Required:       true,
		},
		{
			Name:        "bank-request-timeout-seconds",
			Usage:       "Timeout in seconds for bank and mapper HTTP calls",
			OptType:     types.Int,
			ConfigKey:   &opts.BankRequestTimeoutSeconds,
			FlagDefault: 30,
			Required:    true,
		},
		{
			Name:        "statement-currency",
			Usage:       "Currency injected into parsed MT940 statements",
			OptType:     types.String,
			ConfigKey:   &opts.StatementCurrency,
			FlagDefault: "USD",
			Required:    true,
		},
		{
			Name:           "bank-fa-deconstruct-strategy",
			Usage:          "Named-group regex used to deconstruct BANK_ACCOUNT financial addresses",
			OptType:        types.String,
			CustomSetValue: SetConfigOptionDeconstructStrategy,
			ConfigKey:      &opts.BankFADeconstructStrategy,
			FlagDefault:    mapper.DefaultBankFADeconstructStrategy,
			Required:       true,
		},
		{
			Name:           "mobile-wallet-fa-deconstruct-strategy",
			Usage:          "Named-group regex used to deconstruct MOBILE_WALLET financial addresses",
			OptType:        types.String,
			CustomSetValue: SetConfigOptionDeconstructStrategy,
			ConfigKey:      &opts.MobileWalletFADeconstructStrategy,
			FlagDefault:    mapper.DefaultMobileWalletFADeconstructStrategy,
			Required:       true,
		},
		{
			Name:           "email-wallet-fa-deconstruct-strategy",
			Usage:          "Named-group regex used to deconstruct EMAIL_WALLET financial addresses",
			OptType:        types.String,
			CustomSetValue: SetConfigOptionDeconstructStrategy,
			ConfigKey:      &opts.EmailWalletFADeconstructStrategy,
			FlagDefault:    mapper.DefaultEmailWalletFADeconstructStrategy,
			Required:       true,
		},
	}
}
