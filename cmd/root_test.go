package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cmdUtils "github.com/openg2p/g2p-bridge-backend/cmd/utils"
	"github.com/openg2p/g2p-bridge-backend/internal/utils"
)

func Test_noArgsAndHelpHaveSameResultAndDoDontPanic(t *testing.T) {
	cmdArgsTestCases := [][]string{
		{"--help"},
		{},
	}

	for i, cmdArgs := range cmdArgsTestCases {
		// setup
		rootCmd := SetupCLI("x.y.z", "1234567890abcdef")
		rootCmd.SetArgs(cmdArgs)
		var out bytes.Buffer
		rootCmd.SetOut(&out)

		// test
		err := rootCmd.Execute()
		assert.NoErrorf(t, err, "test case %d returned an error", i)

		// assert printed text
		assert.Containsf(t, out.String(), "Use \"g2p-bridge [command] --help\" for more information about a command.", "test case %d did not print help message as expected", i)
	}
}

func Test_SetupCLI_registersAllSubcommands(t *testing.T) {
	rootCmd := SetupCLI("x.y.z", "1234567890abcdef")

	wantSubcommands := []string{"serve", "pipeline", "db", "programs"}
	for _, wantUse := range wantSubcommands {
		found := false
		for _, cmd := range rootCmd.Commands() {
			if cmd.Use == wantUse {
				found = true
				break
			}
		}
		require.Truef(t, found, "%q command not found", wantUse)
	}
}

func Test_rootCmd_exitsWithFatalOnInvalidLogLevel(t *testing.T) {
	utils.AssertFuncExitsWithFatal(t, func() {
		cmdUtils.ClearTestEnvironment(t)
		rootCmd := SetupCLI("x.y.z", "1234567890abcdef")
		rootCmd.SetArgs([]string{"--log-level", "NOT_A_LEVEL"})
		_ = rootCmd.Execute()
	}, "couldn't parse log level")
}
