package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ibt-bridge/config"
	"ibt-bridge/pkg/bridge"
	"ibt-bridge/pkg/chain"
	"ibt-bridge/pkg/journal"
	"ibt-bridge/pkg/parser"
	"ibt-bridge/pkg/types"
	"ibt-bridge/pkg/units"
)

var (
	transferRecipient string
	noConfirm         bool
)

var transferCmd = &cobra.Command{
	Use:   "transfer <amount> <chain> to <chain>",
	Short: "Burn IBT on one chain and mint it on the other",
	Long: `Transfer IBT between Ethereum and Sui.

The tokens are burned on the source chain first. Once the burn is confirmed
the same amount is minted on the destination chain. Both chains must have a
signing key configured.

Ethereum amounts carry 18 decimals and Sui amounts 9. When bridging to Sui
anything below 0.000000001 IBT is dropped and not credited.

Examples:
  ibt-bridge transfer 5 eth to sui
  ibt-bridge transfer 1.25 IBT from sui to ethereum
  ibt-bridge transfer 10 eth to sui --recipient 0x1b5e...aa --yes`,
	Args: cobra.MinimumNArgs(1),
	Run:  runTransfer,
}

func init() {
	rootCmd.AddCommand(transferCmd)

	transferCmd.Flags().StringVar(&transferRecipient, "recipient", "", "Destination account (defaults to your own account on the destination chain)")
	transferCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runTransfer(cmd *cobra.Command, args []string) {
	// Parse the command
	req, err := parser.ParseTransferCommand(strings.Join(args, " "))
	if err != nil {
		printError(err)
		os.Exit(1)
	}

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

	transfers, err := journal.Open(cfg.Journal)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer transfers.Close()

	fillAccounts(req, gateways, transferRecipient)

	if !jsonOutput {
		displayTransferPlan(req)
	}

	// Ask for confirmation
	if !noConfirm && !cfg.AutoConfirm && !jsonOutput {
		if !confirmTransfer() {
			fmt.Println("\nTransfer cancelled.")
			return
		}
	}

	orchestrator := bridge.NewOrchestrator(gateways.Ethereum, gateways.Sui, transfers, logger)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		orchestrator.SetObserver(func(state bridge.State, direction types.Direction) {
			s.Lock()
			s.Suffix = " " + progressMessage(state, direction)
			s.Unlock()
		})
		s.Suffix = " Validating transfer..."
		s.Start()
	}

	result, err := orchestrator.Transfer(ctx, *req)
	if !jsonOutput {
		s.Stop()
	}

	if jsonOutput {
		output := map[string]interface{}{"result": result}
		if err != nil {
			output["error"] = err.Error()
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		if err != nil {
			os.Exit(1)
		}
		return
	}

	if err != nil {
		displayTransferFailure(result, err)
		os.Exit(1)
	}

	displayTransferResult(result)
}

// fillAccounts uses the configured signing accounts for both sides, with
// recipient overriding the destination when set
func fillAccounts(req *types.TransferRequest, gateways *chain.Gateways, recipient string) {
	req.SourceAccount = gateways.AccountFor(req.Direction.Source())
	req.DestinationAccount = gateways.AccountFor(req.Direction.Destination())
	if recipient != "" {
		req.DestinationAccount = recipient
	}
}

func progressMessage(state bridge.State, direction types.Direction) string {
	switch state {
	case bridge.StateBurningSource:
		return fmt.Sprintf("Step 1/2: Burning tokens on %s...", direction.Source().DisplayName())
	case bridge.StateMintingDestination:
		return fmt.Sprintf("Step 2/2: Minting tokens on %s...", direction.Destination().DisplayName())
	case bridge.StateCompleted:
		return "Refreshing balances..."
	default:
		return string(state)
	}
}

func displayTransferPlan(req *types.TransferRequest) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     BRIDGE TRANSFER")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Amount:            %s IBT\n", color.YellowString(req.Amount))
	fmt.Printf("  From:              %s %s\n", req.Direction.Source().DisplayName(), color.CyanString(displayAccount(req.SourceAccount)))
	fmt.Printf("  To:                %s %s\n", req.Direction.Destination().DisplayName(), color.CyanString(displayAccount(req.DestinationAccount)))

	if req.Direction == types.EthToSui {
		if wei, err := units.ParseAmount(req.Amount); err == nil {
			if mist, truncated, err := units.ToSui(wei); err == nil && truncated.Sign() > 0 {
				color.Yellow("\n  Sui holds 9 decimals: %s IBT will be minted, %s wei is dropped.",
					units.FormatMist(mist), truncated)
			}
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func displayAccount(account string) string {
	if account == "" {
		return "(not connected)"
	}
	return account
}

func displayTransferResult(result *bridge.Result) {
	color.Green("\n✓ Transfer completed!")
	fmt.Printf("  Transfer ID:       %s\n", result.TransferID)
	fmt.Printf("  Amount:            %s IBT\n", result.Amount)
	fmt.Printf("  Burn TX:           %s\n", color.CyanString(result.SourceTx))
	fmt.Printf("  Mint TX:           %s\n", color.CyanString(result.DestinationTx))

	if result.Balances != nil {
		fmt.Printf("\n  Ethereum balance:  %s IBT\n", result.Balances.Ethereum)
		fmt.Printf("  Sui balance:       %s IBT\n", result.Balances.Sui)
	}
	fmt.Println()
}

func displayTransferFailure(result *bridge.Result, err error) {
	var (
		validation *bridge.ValidationError
		noFunds    *bridge.NoFundsError
		chainErr   *bridge.ChainCallError
	)

	switch {
	case errors.As(err, &validation):
		printError(err)
	case errors.As(err, &noFunds):
		printError(err)
		color.Yellow("Mint or receive %s on Sui before bridging it back.\n", noFunds.CoinType)
	case errors.As(err, &chainErr):
		printError(err)
		if chainErr.TxHash != "" {
			fmt.Printf("  Transaction:       %s\n", color.CyanString(chainErr.TxHash))
		}
		if chainErr.Phase == bridge.StateMintingDestination && result != nil {
			color.Red("\nThe burn on %s was confirmed (%s) but the mint did not go through.",
				result.Direction.Source().DisplayName(), result.SourceTx)
			fmt.Println("Those tokens are not credited anywhere. The transfer is recorded as:")
			color.Cyan("  ibt-bridge transfers view %s\n", result.TransferID)
		}
	default:
		printError(err)
	}
}

func confirmTransfer() bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Proceed with transfer? (y/N): ")

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
