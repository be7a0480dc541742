package utils

import (
	"go/types"
	"time"

	"github.com/stellar/go/support/config"

	"github.com/openg2p/g2p-bridge-backend/db"
	"github.com/openg2p/g2p-bridge-backend/internal/alerts"
	"github.com/openg2p/g2p-bridge-backend/internal/crashtracker"
)

// DBPoolOptions contains tunables for the PostgreSQL connection pool.
type DBPoolOptions struct {
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxIdleTimeSeconds int
	DBConnMaxLifetimeSeconds int
}

// ToConfig converts the flag values into the pool config consumed by the db package.
func (o DBPoolOptions) ToConfig() db.DBPoolConfig {
	return db.DBPoolConfig{
		MaxOpenConns:    o.DBMaxOpenConns,
		MaxIdleConns:    o.DBMaxIdleConns,
		ConnMaxIdleTime: time.Duration(o.DBConnMaxIdleTimeSeconds) * time.Second,
		ConnMaxLifetime: time.Duration(o.DBConnMaxLifetimeSeconds) * time.Second,
	}
}

// DBPoolConfigOptions returns config options for tuning the DB connection pool.
func DBPoolConfigOptions(opts *DBPoolOptions) []*config.ConfigOption {
	return []*config.ConfigOption{
		{
			Name:        "db-max-open-conns",
			Usage:       "Maximum number of open DB connections per pool",
			OptType:     types.Int,
			ConfigKey:   &opts.DBMaxOpenConns,
			FlagDefault: db.DefaultDBPoolConfig.MaxOpenConns,
			Required:    false,
		},
		{
			Name:        "db-max-idle-conns",
			Usage:       "Maximum number of idle DB connections retained per pool",
			OptType:     types.Int,
			ConfigKey:   &opts.DBMaxIdleConns,
			FlagDefault: db.DefaultDBPoolConfig.MaxIdleConns,
			Required:    false,
		},
		{
			Name:        "db-conn-max-idle-time-seconds",
			Usage:       "Maximum idle time in seconds before a connection is closed",
			OptType:     types.Int,
			ConfigKey:   &opts.DBConnMaxIdleTimeSeconds,
			FlagDefault: db.DefaultConnMaxIdleTimeSeconds,
			Required:    false,
		},
		{
			Name:        "db-conn-max-lifetime-seconds",
			Usage:       "Maximum lifetime in seconds for a single connection",
			OptType:     types.Int,
			ConfigKey:   &opts.DBConnMaxLifetimeSeconds,
			FlagDefault: db.DefaultConnMaxLifetimeSeconds,
			Required:    false,
		},
	}
}

// TwilioConfigOptions returns the credentials needed by the TWILIO_* alert
// messenger types.
func TwilioConfigOptions(opts *alerts.MessengerOptions) []*config.ConfigOption {
	return []*config.ConfigOption{
		{
			Name:      "twilio-account-sid",
			Usage:     "Account SID for the Twilio account sending alert SMSes",
			OptType:   types.String,
			ConfigKey: &opts.TwilioAccountSID,
			Required:  false,
		},
		{
			Name:      "twilio-auth-token",
			Usage:     "Auth token for the Twilio account sending alert SMSes",
			OptType:   types.String,
			ConfigKey: &opts.TwilioAuthToken,
			Required:  false,
		},
		{
			Name:      "twilio-service-sid",
			Usage:     "Twilio messaging service SID used for sending alert SMSes",
			OptType:   types.String,
			ConfigKey: &opts.TwilioServiceSID,
			Required:  false,
		},
		// Twilio Email (SendGrid)
		{
			Name:      "twilio-sendgrid-api-key",
			Usage:     "API key for the Twilio SendGrid account sending alert emails",
			OptType:   types.String,
			ConfigKey: &opts.TwilioSendGridAPIKey,
			Required:  false,
		},
		{
			Name:      "twilio-sendgrid-sender-address",
			Usage:     "Sender address Twilio SendGrid uses for alert emails",
			OptType:   types.String,
			ConfigKey: &opts.TwilioSendGridSenderAddress,
			Required:  false,
		},
	}
}

// AWSConfigOptions returns the credentials needed by the AWS_* alert
// messenger types.
func AWSConfigOptions(opts *alerts.MessengerOptions) []*config.ConfigOption {
	return []*config.ConfigOption{
		{
			Name:      "aws-access-key-id",
			Usage:     "AWS access key ID for the account sending alerts",
			OptType:   types.String,
			ConfigKey: &opts.AWSAccessKeyID,
			Required:  false,
		},
		{
			Name:      "aws-secret-access-key",
			Usage:     "AWS secret access key for the account sending alerts",
			OptType:   types.String,
			ConfigKey: &opts.AWSSecretAccessKey,
			Required:  false,
		},
		{
			Name:      "aws-region",
			Usage:     "AWS region the SNS and SES clients connect to",
			OptType:   types.String,
			ConfigKey: &opts.AWSRegion,
			Required:  false,
		},
		// AWS SMS (SNS)
		{
			Name:      "aws-sns-sender-id",
			Usage:     "Sender ID attached to alert SMSes dispatched through AWS SNS",
			OptType:   types.String,
			ConfigKey: &opts.AWSSNSSenderID,
			Required:  false,
		},
		// AWS Email (SES)
		{
			Name:      "aws-ses-sender-id",
			Usage:     "Sender address for alert emails dispatched through AWS SES",
			OptType:   types.String,
			ConfigKey: &opts.AWSSESSenderID,
			Required:  false,
		},
	}
}

// AlertsConfigOptions returns the config options shared by every command that
// dispatches operational alerts: the messenger type plus the alert targets.
func AlertsConfigOptions(opts *alerts.MessengerOptions, alertsEmail, alertsPhoneNumber *string) []*config.ConfigOption {
	configOptions := []*config.ConfigOption{
		{
			Name:           "alerts-messenger-type",
			Usage:          `Messenger type used to dispatch operational alerts. Options: "TWILIO_SMS", "TWILIO_EMAIL", "AWS_SMS", "AWS_EMAIL", "DRY_RUN"`,
			OptType:        types.String,
			CustomSetValue: SetConfigOptionMessengerType,
			ConfigKey:      &opts.MessengerType,
			FlagDefault:    string(alerts.MessengerTypeDryRun),
			Required:       true,
		},
		{
			Name:      "alerts-email",
			Usage:     "The email address operational alerts are sent to. Required for email messenger types.",
			OptType:   types.String,
			ConfigKey: alertsEmail,
			Required:  false,
		},
		{
			Name:      "alerts-phone-number",
			Usage:     "The phone number operational alerts are sent to. Required for SMS messenger types.",
			OptType:   types.String,
			ConfigKey: alertsPhoneNumber,
			Required:  false,
		},
	}
	configOptions = append(configOptions, TwilioConfigOptions(opts)...)
	configOptions = append(configOptions, AWSConfigOptions(opts)...)
	return configOptions
}

func CrashTrackerTypeConfigOption(targetPointer interface{}) *config.ConfigOption {
	return &config.ConfigOption{
		Name:           "crash-tracker-type",
		Usage:          `Crash tracker type. Options: "SENTRY", "DRY_RUN"`,
		OptType:        types.String,
		CustomSetValue: SetConfigOptionCrashTrackerType,
		ConfigKey:      targetPointer,
		FlagDefault:    string(crashtracker.CrashTrackerTypeDryRun),
		Required:       true,
	}
}
