package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	envFileFlagName = "--env-file"
	envFileEnvVar   = "ENV_FILE"
)

// LoadEnvFile seeds the process environment from a dotenv file before cobra
// and viper parse any flags. The file is picked in priority order: the
// --env-file flag, the ENV_FILE variable, then ./.env. A missing ./.env is
// fine; a missing explicitly requested file is an error.
func LoadEnvFile() error {
	if path := resolveEnvFilePath(os.Args, os.Getenv(envFileEnvVar)); path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading env file %s: %w", path, err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env file: %w", err)
	}
	return nil
}

// resolveEnvFilePath picks the dotenv path from the raw argument list or the
// ENV_FILE value, normalizing relative paths against the working directory.
// It returns "" when neither source names a file.
func resolveEnvFilePath(args []string, envVarValue string) string {
	path := envVarValue
	if fromArgs := envFilePathFromArgs(args); fromArgs != "" {
		path = fromArgs
	}

	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// envFilePathFromArgs scans the raw argument list for --env-file. This runs
// before cobra has parsed anything, so both "--env-file x" and "--env-file=x"
// are handled by hand.
func envFilePathFromArgs(args []string) string {
	for i, arg := range args {
		if arg == envFileFlagName && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(arg, envFileFlagName+"=") {
			return strings.TrimPrefix(arg, envFileFlagName+"=")
		}
	}
	return ""
}
