package mapper

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/nyaruka/phonenumbers"

	"github.com/openg2p/g2p-bridge-backend/internal/data"
)

// Default deconstruct strategies for the FA formats the ID mapper hands back.
// Each strategy is a named-group regex; deployments override them through
// configuration when their mapper constructs FAs differently.
const (
	DefaultBankFADeconstructStrategy         = `^BANK_ACCOUNT:(?P<account_number>[^@]+)@(?P<bank_code>[^.]+)\.(?P<branch_code>.+)$`
	DefaultMobileWalletFADeconstructStrategy = `^MOBILE_WALLET:(?P<mobile_number>[^@]+)@(?P<mobile_wallet_provider>.+)$`
	DefaultEmailWalletFADeconstructStrategy  = `^EMAIL_WALLET:(?P<email_address>.+)@(?P<email_wallet_provider>[^@]+)$`
)

// FABreakdown is the result of deconstructing a financial address. FAType is
// nil when the FA prefix was unknown or the strategy regex did not match; the
// type-specific fields are then empty too.
type FABreakdown struct {
	FAType               *data.FundsAccessorType
	AccountNumber        string
	BankCode             string
	BranchCode           string
	MobileNumber         string
	MobileWalletProvider string
	EmailAddress         string
	EmailWalletProvider  string
}

// DeconstructStrategies carries the raw named-group regexes, one per FA type.
type DeconstructStrategies struct {
	BankAccount  string
	MobileWallet string
	EmailWallet  string
}

// DefaultDeconstructStrategies returns the strategies for the default FA formats.
func DefaultDeconstructStrategies() DeconstructStrategies {
	return DeconstructStrategies{
		BankAccount:  DefaultBankFADeconstructStrategy,
		MobileWallet: DefaultMobileWalletFADeconstructStrategy,
		EmailWallet:  DefaultEmailWalletFADeconstructStrategy,
	}
}

// Deconstructor picks a strategy by FA prefix and extracts the named groups.
// Strategies are compiled once at startup and reused by every worker run.
type Deconstructor struct {
	strategies map[data.FundsAccessorType]*regexp.Regexp
}

func NewDeconstructor(strategies DeconstructStrategies) (*Deconstructor, error) {
	rawByType := map[data.FundsAccessorType]string{
		data.BankAccountFundsAccessorType:  strategies.BankAccount,
		data.MobileWalletFundsAccessorType: strategies.MobileWallet,
		data.EmailWalletFundsAccessorType:  strategies.EmailWallet,
	}

	compiled := make(map[data.FundsAccessorType]*regexp.Regexp, len(rawByType))
	for faType, raw := range rawByType {
		if raw == "" {
			continue
		}
		re, err := regexp.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling %s FA deconstruct strategy: %w", faType, err)
		}
		compiled[faType] = re
	}

	return &Deconstructor{strategies: compiled}, nil
}

// Deconstruct breaks a financial address into its routing fields. It never
// fails: an FA it cannot make sense of yields an empty breakdown, and the
// caller stores the raw FA alongside whatever was extracted.
func (d *Deconstructor) Deconstruct(fa string) FABreakdown {
	faType, ok := d.matchFAType(fa)
	if !ok {
		return FABreakdown{}
	}

	re := d.strategies[faType]
	match := re.FindStringSubmatch(fa)
	if match == nil {
		return FABreakdown{}
	}

	groups := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name != "" && i < len(match) {
			groups[name] = match[i]
		}
	}

	return FABreakdown{
		FAType:               &faType,
		AccountNumber:        groups["account_number"],
		BankCode:             groups["bank_code"],
		BranchCode:           groups["branch_code"],
		MobileNumber:         normalizeMobileNumber(groups["mobile_number"]),
		MobileWalletProvider: groups["mobile_wallet_provider"],
		EmailAddress:         normalizeEmailAddress(groups["email_address"]),
		EmailWalletProvider:  groups["email_wallet_provider"],
	}
}

func (d *Deconstructor) matchFAType(fa string) (data.FundsAccessorType, bool) {
	for _, faType := range data.FundsAccessorTypes() {
		if _, hasStrategy := d.strategies[faType]; !hasStrategy {
			continue
		}
		if strings.HasPrefix(fa, string(faType)) {
			return faType, true
		}
	}
	return "", false
}

// normalizeMobileNumber renders the number in E.164 when it parses; numbers the
// phone library rejects are kept as captured so the payment instruction still
// carries what the mapper returned.
func normalizeMobileNumber(mobileNumber string) string {
	if mobileNumber == "" {
		return ""
	}

	parsed, err := phonenumbers.Parse(mobileNumber, "")
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return mobileNumber
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}

// normalizeEmailAddress lowercases addresses govalidator accepts and keeps the
// rest as captured.
func normalizeEmailAddress(emailAddress string) string {
	if emailAddress == "" {
		return ""
	}

	trimmed := strings.TrimSpace(emailAddress)
	if !govalidator.IsEmail(trimmed) {
		return emailAddress
	}
	return strings.ToLower(trimmed)
}
