package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/stellar/go/support/log"

	"github.com/openg2p/g2p-bridge-backend/internal/data"
)

const programConfigCacheTTL = 3 * time.Minute

type BenefitProgramServiceInterface interface {
	GetConfiguration(ctx context.Context, programMnemonic string) (*data.BenefitProgramConfiguration, error)
	GetConfigurationBySponsorAccount(ctx context.Context, sponsorBankAccountNumber string) (*data.BenefitProgramConfiguration, error)
	GetAllConfigurations(ctx context.Context) ([]data.BenefitProgramConfiguration, error)
	CreateConfiguration(ctx context.Context, config *data.BenefitProgramConfiguration) error
}

// BenefitProgramService serves program configurations. Configurations change
// rarely and are read on every envelope creation and statement run, so reads
// go through a short-TTL cache.
type BenefitProgramService struct {
	models *data.Models
	cache  *ristretto.Cache
}

var _ BenefitProgramServiceInterface = (*BenefitProgramService)(nil)

func NewBenefitProgramService(models *data.Models) *BenefitProgramService {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		log.Errorf("Failed to create benefit program configuration cache: %v", err)
		return &BenefitProgramService{models: models}
	}

	cache.Wait()

	return &BenefitProgramService{
		models: models,
		cache:  cache,
	}
}

func (s *BenefitProgramService) GetConfiguration(ctx context.Context, programMnemonic string) (*data.BenefitProgramConfiguration, error) {
	return s.getCached(ctx, "mnemonic:"+programMnemonic, func() (*data.BenefitProgramConfiguration, error) {
		return s.models.BenefitProgramConfigurations.Get(ctx, s.models.DBConnectionPool, programMnemonic)
	})
}

func (s *BenefitProgramService) GetConfigurationBySponsorAccount(ctx context.Context, sponsorBankAccountNumber string) (*data.BenefitProgramConfiguration, error) {
	return s.getCached(ctx, "account:"+sponsorBankAccountNumber, func() (*data.BenefitProgramConfiguration, error) {
		return s.models.BenefitProgramConfigurations.GetBySponsorBankAccountNumber(ctx, s.models.DBConnectionPool, sponsorBankAccountNumber)
	})
}

func (s *BenefitProgramService) getCached(_ context.Context, cacheKey string, load func() (*data.BenefitProgramConfiguration, error)) (*data.BenefitProgramConfiguration, error) {
	if s.cache != nil {
		if cached, found := s.cache.Get(cacheKey); found {
			if config, ok := cached.(*data.BenefitProgramConfiguration); ok {
				return config, nil
			}
			s.cache.Del(cacheKey)
		}
	}

	config, err := load()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.SetWithTTL(cacheKey, config, 1, programConfigCacheTTL)
	}
	return config, nil
}

func (s *BenefitProgramService) GetAllConfigurations(ctx context.Context) ([]data.BenefitProgramConfiguration, error) {
	return s.models.BenefitProgramConfigurations.GetAll(ctx, s.models.DBConnectionPool)
}

// CreateConfiguration validates and persists a new program configuration, and
// drops any cached entries it supersedes.
func (s *BenefitProgramService) CreateConfiguration(ctx context.Context, config *data.BenefitProgramConfiguration) error {
	if config == nil {
		return fmt.Errorf("config is required: %w", data.ErrMissingInput)
	}
	if err := validateProgramConfiguration(config); err != nil {
		return err
	}

	err := s.models.BenefitProgramConfigurations.Insert(ctx, s.models.DBConnectionPool, config)
	if err != nil {
		return fmt.Errorf("inserting program configuration %s: %w", config.ProgramMnemonic, err)
	}

	if s.cache != nil {
		s.cache.Del("mnemonic:" + config.ProgramMnemonic)
		s.cache.Del("account:" + config.SponsorBankAccountNumber)
	}
	return nil
}

func validateProgramConfiguration(config *data.BenefitProgramConfiguration) error {
	requiredFields := []struct {
		name  string
		value string
	}{
		{"benefit_program_mnemonic", config.ProgramMnemonic},
		{"benefit_program_name", config.ProgramName},
		{"sponsor_bank_code", config.SponsorBankCode},
		{"sponsor_bank_account_number", config.SponsorBankAccountNumber},
		{"sponsor_bank_account_currency", config.SponsorBankAccountCurrency},
	}
	for _, field := range requiredFields {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%s is required: %w", field.name, data.ErrMissingInput)
		}
	}
	return nil
}
