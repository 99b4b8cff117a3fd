package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ibt-bridge/config"
	"ibt-bridge/pkg/journal"
)

var transferStateFilter string

var transfersCmd = &cobra.Command{
	Use:   "transfers",
	Short: "Inspect the local transfer journal",
	Long: `Every transfer is recorded in a local journal as it moves through
pending, source_confirmed and completed or failed.

A transfer is stuck when its source burn was confirmed, or broadcast without
a confirmed outcome, and no mint followed.
Stuck transfers are not retried; they need manual reconciliation.`,
}

var transfersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded transfers",
	Args:  cobra.NoArgs,
	Run:   runTransfersList,
}

var transfersViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show details of a transfer",
	Args:  cobra.ExactArgs(1),
	Run:   runTransfersView,
}

var transfersStuckCmd = &cobra.Command{
	Use:   "stuck",
	Short: "List transfers burned on the source chain but never minted",
	Args:  cobra.NoArgs,
	Run:   runTransfersStuck,
}

func init() {
	rootCmd.AddCommand(transfersCmd)
	transfersCmd.AddCommand(transfersListCmd)
	transfersCmd.AddCommand(transfersViewCmd)
	transfersCmd.AddCommand(transfersStuckCmd)

	transfersListCmd.Flags().StringVar(&transferStateFilter, "state", "", "Filter by state (pending, source_confirmed, completed, failed)")
}

func openJournal() *journal.Manager {
	cfg := config.Get()

	manager, err := journal.Open(cfg.Journal)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	return manager
}

func runTransfersList(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	manager := openJournal()
	defer manager.Close()

	var (
		records []*journal.Transfer
		err     error
	)
	if transferStateFilter != "" {
		state, perr := journal.ParseState(transferStateFilter)
		if perr != nil {
			printError(perr)
			os.Exit(1)
		}
		records, err = manager.ListByState(state)
	} else {
		records, err = manager.List()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		printSummariesJSON(records)
		return
	}

	if len(records) == 0 {
		color.Yellow("No transfers found.\n")
		return
	}

	displayTransferTable("TRANSFERS", records)
}

func runTransfersStuck(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	manager := openJournal()
	defer manager.Close()

	records, err := manager.ListStuck()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		printSummariesJSON(records)
		return
	}

	if len(records) == 0 {
		printSuccess(color.GreenString("✓ No stuck transfers."))
		return
	}

	displayTransferTable("STUCK TRANSFERS", records)
	color.Yellow("These burns were confirmed, or broadcast without a confirmed outcome, and never minted on the destination.")
	fmt.Println("Inspect one with:")
	color.Cyan("  ibt-bridge transfers view <id>\n")
}

func runTransfersView(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	manager := openJournal()
	defer manager.Close()

	t, err := manager.Get(args[0])
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(t, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	color.Green("                              TRANSFER DETAILS")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Printf("\n  ID:                %s\n", color.CyanString(t.ID))
	fmt.Printf("  State:             %s\n", getStateColor(t.State))
	fmt.Printf("  Direction:         %s -> %s\n", t.Direction.Source().DisplayName(), t.Direction.Destination().DisplayName())
	fmt.Printf("  Amount:            %s IBT\n", t.Amount)
	fmt.Printf("  Burned:            %s (source units)\n", t.SourceAmount)
	fmt.Printf("  Minted:            %s (destination units)\n", t.DestinationAmount)
	fmt.Printf("  From:              %s\n", t.SourceAccount)
	fmt.Printf("  To:                %s\n", t.DestinationAccount)
	fmt.Printf("  Created:           %s\n", t.Created.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Last Updated:      %s\n", t.LastUpdated.Format("2006-01-02 15:04:05"))

	if t.SourceTxHash != "" {
		fmt.Printf("  Burn TX:           %s\n", color.CyanString(t.SourceTxHash))
	}
	if t.DestTxHash != "" {
		fmt.Printf("  Mint TX:           %s\n", color.CyanString(t.DestTxHash))
	}
	if t.CompletedTime != nil {
		fmt.Printf("  Completed:         %s\n", t.CompletedTime.Format("2006-01-02 15:04:05"))
	}
	if t.State == journal.StateFailed {
		fmt.Printf("  Failed Phase:      %s\n", t.FailedPhase)
		if t.FailedTxHash != "" {
			fmt.Printf("  Failed TX:         %s\n", color.CyanString(t.FailedTxHash))
		}
		fmt.Printf("  Error:             %s\n", color.RedString(t.ErrorMessage))
	}
	if t.IsStuck() {
		if t.State == journal.StateFailed && t.FailedPhase == journal.PhaseSource {
			color.Yellow("\n  The burn was broadcast but not confirmed. Check the Failed TX on the source chain before retrying.")
		} else {
			color.Yellow("\n  The source burn is confirmed but nothing was minted. This needs manual reconciliation.")
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 80) + "\n")
}

func printSummariesJSON(records []*journal.Transfer) {
	summaries := make([]*journal.TransferSummary, len(records))
	for i, t := range records {
		summaries[i] = t.ToSummary()
	}
	output, _ := json.MarshalIndent(summaries, "", "  ")
	fmt.Println(string(output))
}

func displayTransferTable(title string, records []*journal.Transfer) {
	fmt.Println("\n" + strings.Repeat("=", 100))
	color.Green("%s%s", strings.Repeat(" ", (100-len(title))/2), title)
	fmt.Println(strings.Repeat("=", 100))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nID\tDIRECTION\tAMOUNT\tSTATE\tCREATED")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, t := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Direction, t.Amount, getStateColor(t.State), t.Created.Format("2006-01-02 15:04"))
	}

	w.Flush()
	fmt.Println("\n" + strings.Repeat("=", 100) + "\n")
}

func getStateColor(state journal.State) string {
	switch state {
	case journal.StateCompleted:
		return color.GreenString(string(state))
	case journal.StateSourceConfirmed:
		return color.YellowString(string(state))
	case journal.StatePending:
		return color.CyanString(string(state))
	case journal.StateFailed:
		return color.RedString(string(state))
	default:
		return string(state)
	}
}
