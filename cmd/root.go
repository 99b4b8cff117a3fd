package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ibt-bridge/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ibt-bridge",
	Short: "Bridge the IBT token between Ethereum and Sui",
	Long: `ibt-bridge moves IBT between Ethereum and Sui by burning tokens on the
source chain and minting the same amount on the destination chain, signing
both transactions with your own keys.

The two steps are not atomic. If the mint fails after the burn confirmed, the
transfer is kept in the local journal; list such transfers with
'ibt-bridge transfers stuck'.

Examples:
  ibt-bridge transfer 5 eth to sui
  ibt-bridge transfer 2.5 sui to eth --recipient 0x70997970C51812dc3A010C7d01b50e0d17dc79C8
  ibt-bridge balance
  ibt-bridge transfers list`,
	Version: "0.1.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			config.SetConfigFile(cfgFile)
		}
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is $HOME/.ibt-bridge.yaml)")
}

// newLogger returns a development logger in verbose mode and a no-op
// logger otherwise
func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}
