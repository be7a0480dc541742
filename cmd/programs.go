package cmd

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/stellar/go/support/log"

	cmdUtils "github.com/openg2p/g2p-bridge-backend/cmd/utils"
	"github.com/openg2p/g2p-bridge-backend/db"
	"github.com/openg2p/g2p-bridge-backend/internal/bank"
	"github.com/openg2p/g2p-bridge-backend/internal/data"
	"github.com/openg2p/g2p-bridge-backend/internal/services"
)

// ProgramsCommand manages benefit program configurations from the terminal:
// the routing rows that tie a program mnemonic to its sponsor bank account.
type ProgramsCommand struct{}

func (c *ProgramsCommand) Command() *cobra.Command {
	programsCmd := &cobra.Command{
		Use:              "programs",
		Short:            "Manage benefit program configurations",
		PersistentPreRun: cmdUtils.DefaultPersistentPreRun,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				log.Fatalf("Error calling help command: %s", err.Error())
			}
		},
	}

	programsCmd.AddCommand(&cobra.Command{
		Use:   "add",
		Short: "Interactively add a benefit program configuration",
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()
			programService, closePool := mustProgramService(globalOptions.DatabaseURL)
			defer closePool()

			config, err := promptProgramConfiguration()
			if err != nil {
				log.Ctx(ctx).Fatalf("Error collecting program configuration: %s", err.Error())
			}

			if err := programService.CreateConfiguration(ctx, config); err != nil {
				log.Ctx(ctx).Fatalf("Error creating program configuration: %s", err.Error())
			}
			log.Ctx(ctx).Infof("Created benefit program configuration %q", config.ProgramMnemonic)
		},
	})

	programsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the benefit program configurations",
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()
			programService, closePool := mustProgramService(globalOptions.DatabaseURL)
			defer closePool()

			configs, err := programService.GetAllConfigurations(ctx)
			if err != nil {
				log.Ctx(ctx).Fatalf("Error listing program configurations: %s", err.Error())
			}
			for _, config := range configs {
				log.Ctx(ctx).Infof("%s\tbank=%s account=%s currency=%s mapper_resolution=%t",
					config.ProgramMnemonic, config.SponsorBankCode, config.SponsorBankAccountNumber,
					config.SponsorBankAccountCurrency, config.IDMapperResolutionRequired)
			}
		},
	})

	return programsCmd
}

func mustProgramService(databaseURL string) (*services.BenefitProgramService, func()) {
	dbConnectionPool, err := db.OpenDBConnectionPool(databaseURL)
	if err != nil {
		log.Fatalf("Error opening DB connection pool: %s", err.Error())
	}
	models, err := data.NewModels(dbConnectionPool)
	if err != nil {
		log.Fatalf("Error creating models: %s", err.Error())
	}
	return services.NewBenefitProgramService(models), func() {
		if closeErr := dbConnectionPool.Close(); closeErr != nil {
			log.Errorf("Error closing DB connection pool: %s", closeErr.Error())
		}
	}
}

func promptProgramConfiguration() (*data.BenefitProgramConfiguration, error) {
	config := &data.BenefitProgramConfiguration{}

	nonEmpty := func(label string) promptui.ValidateFunc {
		return func(input string) error {
			if strings.TrimSpace(input) == "" {
				return fmt.Errorf("%s cannot be empty", label)
			}
			return nil
		}
	}

	prompts := []struct {
		label    string
		def      string
		validate promptui.ValidateFunc
		target   *string
	}{
		{"Program mnemonic", "", nonEmpty("program mnemonic"), &config.ProgramMnemonic},
		{"Program name", "", nonEmpty("program name"), &config.ProgramName},
		{"Funding org code", "", nonEmpty("funding org code"), &config.FundingOrgCode},
		{"Funding org name", "", nonEmpty("funding org name"), &config.FundingOrgName},
		{"Sponsor bank code", bank.ExampleBankCode, nonEmpty("sponsor bank code"), &config.SponsorBankCode},
		{"Sponsor bank account number", "", nonEmpty("sponsor bank account number"), &config.SponsorBankAccountNumber},
		{"Sponsor bank branch code", "", nil, &config.SponsorBankBranchCode},
		{"Sponsor bank account currency", "USD", nonEmpty("sponsor bank account currency"), &config.SponsorBankAccountCurrency},
	}

	for _, p := range prompts {
		prompt := promptui.Prompt{Label: p.label, Default: p.def, Validate: p.validate}
		value, err := prompt.Run()
		if err != nil {
			return nil, fmt.Errorf("prompting for %s: %w", p.label, err)
		}
		*p.target = strings.TrimSpace(value)
	}

	mapperPrompt := promptui.Select{
		Label: "Require ID mapper resolution",
		Items: []string{"yes", "no"},
	}
	_, mapperAnswer, err := mapperPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("prompting for ID mapper resolution: %w", err)
	}
	config.IDMapperResolutionRequired = mapperAnswer == "yes"

	return config, nil
}
