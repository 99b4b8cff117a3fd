package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ibt-bridge/config"
	"ibt-bridge/pkg/bridge"
	"ibt-bridge/pkg/chain"
	"ibt-bridge/pkg/types"
)

var (
	balanceEthAddress string
	balanceSuiAddress string
	watchBalance      bool
	watchInterval     int
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show IBT balances on Ethereum and Sui",
	Long: `Show the IBT balance of your accounts on both chains.

By default the accounts of the configured signing keys are used.

Examples:
  ibt-bridge balance
  ibt-bridge balance --eth-address 0x70997970C51812dc3A010C7d01b50e0d17dc79C8
  ibt-bridge balance --watch --interval 10`,
	Args: cobra.NoArgs,
	Run:  runBalance,
}

func init() {
	rootCmd.AddCommand(balanceCmd)

	balanceCmd.Flags().StringVar(&balanceEthAddress, "eth-address", "", "Ethereum account to query")
	balanceCmd.Flags().StringVar(&balanceSuiAddress, "sui-address", "", "Sui account to query")
	balanceCmd.Flags().BoolVarP(&watchBalance, "watch", "w", false, "Watch balances continuously")
	balanceCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

type balanceView struct {
	EthereumAccount string          `json:"ethereum_account,omitempty"`
	SuiAccount      string          `json:"sui_account,omitempty"`
	ContractOwner   string          `json:"contract_owner,omitempty"`
	Balances        *types.Balances `json:"balances"`
}

func runBalance(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	logger := newLogger(verbose)
	defer logger.Sync()

	ctx := context.Background()

	gateways, err := chain.Open(ctx, cfg, logger)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer gateways.Close()

	ethAccount := balanceEthAddress
	if ethAccount == "" {
		ethAccount = gateways.AccountFor(types.ChainEthereum)
	}
	suiAccount := balanceSuiAddress
	if suiAccount == "" {
		suiAccount = gateways.AccountFor(types.ChainSui)
	}
	if ethAccount == "" && suiAccount == "" {
		printError(fmt.Errorf("no account to query: configure a signing key or pass --eth-address / --sui-address"))
		os.Exit(1)
	}

	orchestrator := bridge.NewOrchestrator(gateways.Ethereum, gateways.Sui, nil, logger)

	if watchBalance {
		if jsonOutput {
			fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
			os.Exit(1)
		}
		if err := validateWatchInterval(watchInterval); err != nil {
			printError(err)
			os.Exit(1)
		}
		watchCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
		watchBalances(watchCtx, orchestrator, ethAccount, suiAccount)
		return
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching balances..."
		s.Start()
	}

	view := balanceView{EthereumAccount: ethAccount, SuiAccount: suiAccount}
	view.Balances, err = orchestrator.Balances(ctx, ethAccount, suiAccount)
	if err == nil {
		if owner, ownerErr := gateways.Ethereum.Owner(ctx); ownerErr == nil {
			view.ContractOwner = owner.Hex()
		} else {
			logger.Sugar().Debugw("failed to read contract owner", "error", ownerErr)
		}
	}

	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(view, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	displayBalances(&view)
}

func validateWatchInterval(seconds int) error {
	if seconds <= 0 {
		return fmt.Errorf("--interval must be a positive number of seconds, got %d", seconds)
	}
	return nil
}

// watchBalances polls until ctx is done
func watchBalances(ctx context.Context, orchestrator *bridge.Orchestrator, ethAccount, suiAccount string) {
	fmt.Printf("\nWatching IBT balances. Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	// Check immediately first
	checkAndDisplayBalances(ctx, orchestrator, ethAccount, suiAccount)

	// Then check periodically
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkAndDisplayBalances(ctx, orchestrator, ethAccount, suiAccount)
		}
	}
}

func checkAndDisplayBalances(ctx context.Context, orchestrator *bridge.Orchestrator, ethAccount, suiAccount string) {
	balances, err := orchestrator.Balances(ctx, ethAccount, suiAccount)
	if err != nil {
		color.Red("Error: %v", err)
		return
	}

	timestamp := time.Now().Format("15:04:05")
	fmt.Printf("[%s] Ethereum: %s IBT  Sui: %s IBT\n", timestamp,
		color.YellowString(orDash(balances.Ethereum)), color.YellowString(orDash(balances.Sui)))
}

func displayBalances(view *balanceView) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     IBT BALANCES")
	fmt.Println(strings.Repeat("=", 60))

	if view.EthereumAccount != "" {
		fmt.Printf("\n  Ethereum:          %s IBT\n", color.YellowString(view.Balances.Ethereum))
		fmt.Printf("    Account:         %s\n", color.CyanString(view.EthereumAccount))
	}
	if view.SuiAccount != "" {
		fmt.Printf("\n  Sui:               %s IBT\n", color.YellowString(view.Balances.Sui))
		fmt.Printf("    Account:         %s\n", color.CyanString(view.SuiAccount))
	}
	if view.ContractOwner != "" {
		fmt.Printf("\n  Contract owner:    %s\n", view.ContractOwner)
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
