package main

import (
	"github.com/sirupsen/logrus"
	"github.com/stellar/go/support/log"

	"github.com/openg2p/g2p-bridge-backend/cmd"
	cmdUtils "github.com/openg2p/g2p-bridge-backend/cmd/utils"
)

// Version is the official version of this application.
const Version = "1.0.0"

// GitCommit is populated at build time by
// go build -ldflags "-X main.GitCommit=$GIT_COMMIT"
var GitCommit string

func main() {
	if err := cmdUtils.LoadEnvFile(); err != nil {
		log.Warnf("Error loading env file: %s", err.Error())
	}

	preConfigureLogger()
	rootCmd := cmd.SetupCLI(Version, GitCommit)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing g2p-bridge: %s", err.Error())
	}
}

// preConfigureLogger will set the log level to Trace, so logs works from the
// start. This will eventually be overwritten in cmd/root.go
func preConfigureLogger() {
	log.DefaultLogger = log.New()
	log.DefaultLogger.SetLevel(logrus.TraceLevel)
}
