package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stellar/go/support/config"
	"github.com/stellar/go/support/log"

	"github.com/openg2p/g2p-bridge-backend/internal/alerts"
	"github.com/openg2p/g2p-bridge-backend/internal/crashtracker"
	"github.com/openg2p/g2p-bridge-backend/internal/monitor"
)

// assignConfigKey writes value into the option's ConfigKey, which must be a
// pointer to T.
func assignConfigKey[T any](co *config.ConfigOption, value T) error {
	key, ok := co.ConfigKey.(*T)
	if !ok {
		return fmt.Errorf("the expected type for the config key %q is %T, but a %T was provided instead", co.Name, key, co.ConfigKey)
	}
	*key = value
	return nil
}

func SetConfigOptionMessengerType(co *config.ConfigOption) error {
	messengerType, err := alerts.ParseMessengerType(viper.GetString(co.Name))
	if err != nil {
		return fmt.Errorf("couldn't parse messenger type: %w", err)
	}
	return assignConfigKey(co, messengerType)
}

func SetConfigOptionMetricType(co *config.ConfigOption) error {
	metricType, err := monitor.ParseMetricType(viper.GetString(co.Name))
	if err != nil {
		return fmt.Errorf("couldn't parse metric type: %w", err)
	}
	return assignConfigKey(co, metricType)
}

func SetConfigOptionCrashTrackerType(co *config.ConfigOption) error {
	crashTrackerType, err := crashtracker.ParseCrashTrackerType(viper.GetString(co.Name))
	if err != nil {
		return fmt.Errorf("couldn't parse crash tracker type: %w", err)
	}
	return assignConfigKey(co, crashTrackerType)
}

func SetConfigOptionLogLevel(co *config.ConfigOption) error {
	logLevel, err := logrus.ParseLevel(viper.GetString(co.Name))
	if err != nil {
		return fmt.Errorf("couldn't parse log level: %w", err)
	}
	if err = assignConfigKey(co, logLevel); err != nil {
		return err
	}

	if config.IsExplicitlySet(co) {
		log.Debugf("Setting log level to: %q", logLevel)
		log.DefaultLogger.SetLevel(logLevel)
	} else {
		log.Debugf("Using default log level: %q", logLevel)
	}
	return nil
}

// SetConfigOptionDeconstructStrategy validates that the incoming value compiles
// as a financial-address deconstruction regex with at least one named group.
func SetConfigOptionDeconstructStrategy(co *config.ConfigOption) error {
	strategy := viper.GetString(co.Name)

	re, err := regexp.Compile(strategy)
	if err != nil {
		return fmt.Errorf("compiling deconstruction strategy %q: %w", co.Name, err)
	}

	hasNamedGroup := false
	for _, groupName := range re.SubexpNames() {
		if groupName != "" {
			hasNamedGroup = true
			break
		}
	}
	if !hasNamedGroup {
		return fmt.Errorf("deconstruction strategy %q has no named capture groups", co.Name)
	}

	return assignConfigKey(co, strategy)
}

func SetCorsAllowedOrigins(co *config.ConfigOption) error {
	joinedOrigins := viper.GetString(co.Name)
	if joinedOrigins == "" {
		return fmt.Errorf("cors allowed addresses cannot be empty")
	}

	corsAllowedOrigins := strings.Split(joinedOrigins, ",")
	for _, origin := range corsAllowedOrigins {
		if _, err := url.ParseRequestURI(origin); err != nil {
			return fmt.Errorf("error parsing cors addresses: %w", err)
		}
		if origin == "*" {
			log.Warn(`The value "*" for the CORS Allowed Origins is too permissive and not recommended.`)
		}
	}

	return assignConfigKey(co, corsAllowedOrigins)
}

func SetConfigOptionURLString(co *config.ConfigOption) error {
	u := viper.GetString(co.Name)
	if u == "" {
		return fmt.Errorf("url cannot be empty")
	}
	if _, err := url.ParseRequestURI(u); err != nil {
		return fmt.Errorf("error parsing url: %w", err)
	}

	return assignConfigKey(co, u)
}
