package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"text/tabwriter"

	appintegration "github.com/erp/ledgersync/internal/application/integration"
	"github.com/erp/ledgersync/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push records to the accounting ledger",
}

var syncInvoiceCmd = &cobra.Command{
	Use:     "invoice <invoice-id>",
	Short:   "Create or update the external invoice, creating its customer when needed",
	Args:    cobra.ExactArgs(1),
	Example: `  ledgerctl sync invoice 0b6f8c1e-51d4-4a57-9f7a-3d1e0c2b9a11`,
	RunE:    runSyncInvoice,
}

var syncPaymentCmd = &cobra.Command{
	Use:   "payment <payment-id>",
	Short: "Create the external payment linked to its already synced invoice",
	Args:  cobra.ExactArgs(1),
	RunE:  runSyncPayment,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the accounting ledger connection",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var historyCmd = &cobra.Command{
	Use:   "history <entity-id>",
	Short: "List sync attempts for an internal record, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show sync totals and mapped record counts",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var connectURLCmd = &cobra.Command{
	Use:   "connect-url",
	Short: "Print the URL that starts the accounting ledger consent flow",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), newClient().baseURL+"/api/v1/accounting/connect")
		return nil
	},
}

func init() {
	syncCmd.AddCommand(syncInvoiceCmd, syncPaymentCmd)
	rootCmd.AddCommand(syncCmd, statusCmd, historyCmd, statsCmd, connectURLCmd)

	historyCmd.Flags().Int("limit", 50, "Maximum number of entries (1-200)")
}

func parseID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", arg, err)
	}
	return id, nil
}

func runSyncInvoice(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	log.Info("Syncing invoice", zap.String("invoice_id", id.String()))

	var result dto.InvoiceSyncResponse
	raw, err := newClient().post(cmd.Context(), "/accounting/invoices/"+id.String()+"/sync", &result)
	if err != nil {
		return err
	}
	if outputJSON {
		return printJSON(cmd, raw)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "invoice %s: %s external id %s (sync token %s, customer %s)\n",
		result.InvoiceID, result.Action, result.ExternalID, result.SyncToken, result.CustomerExternalID)
	return nil
}

func runSyncPayment(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	log.Info("Syncing payment", zap.String("payment_id", id.String()))

	var result dto.PaymentSyncResponse
	raw, err := newClient().post(cmd.Context(), "/accounting/payments/"+id.String()+"/sync", &result)
	if err != nil {
		return err
	}
	if outputJSON {
		return printJSON(cmd, raw)
	}
	line := fmt.Sprintf("payment %s: %s", result.PaymentID, result.Outcome)
	if result.ExternalID != "" {
		line += " external id " + result.ExternalID
	}
	fmt.Fprintln(cmd.OutOrStdout(), line)
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	var status dto.ConnectionStatusResponse
	raw, err := newClient().get(cmd.Context(), "/accounting/status", nil, &status)
	if err != nil {
		return err
	}
	if outputJSON {
		return printJSON(cmd, raw)
	}

	out := cmd.OutOrStdout()
	if !status.Connected {
		fmt.Fprintln(out, "not connected")
		if status.RefreshTokenExpired {
			fmt.Fprintln(out, "refresh token expired, run the connect flow again")
		}
		return nil
	}
	fmt.Fprintf(out, "connected to %s (realm %s)\n", status.CompanyName, status.RealmID)
	if status.AccessTokenExpires != nil {
		fmt.Fprintf(out, "access token expires %s (expired: %t)\n", status.AccessTokenExpires.Format("2006-01-02 15:04"), status.AccessTokenExpired)
	}
	if status.RefreshTokenExpires != nil {
		fmt.Fprintf(out, "refresh token expires %s\n", status.RefreshTokenExpires.Format("2006-01-02 15:04"))
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")

	var entries []dto.SyncLogEntryResponse
	raw, err := newClient().get(cmd.Context(), "/accounting/history/"+id.String(),
		url.Values{"limit": {strconv.Itoa(limit)}}, &entries)
	if err != nil {
		return err
	}
	if outputJSON {
		return printJSON(cmd, raw)
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no sync attempts")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tTYPE\tACTION\tSTATUS\tEXTERNAL ID\tERROR")
	for _, e := range entries {
		external := "-"
		if e.ExternalID != nil {
			external = *e.ExternalID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.StartedAt.Format("2006-01-02 15:04:05"), e.SyncType, e.Action, e.Status, external, truncate(e.ErrorMessage, 60))
	}
	return w.Flush()
}

func runStats(cmd *cobra.Command, _ []string) error {
	var stats appintegration.SyncStats
	raw, err := newClient().get(cmd.Context(), "/accounting/stats", nil, &stats)
	if err != nil {
		return err
	}
	if outputJSON {
		return printJSON(cmd, raw)
	}
	fmt.Fprintf(cmd.OutOrStdout(),
		"attempts %d, completed %d, failed %d, success rate %.1f%%\nmapped customers %d, invoices %d, payments %d\n",
		stats.Total, stats.Completed, stats.Failed, stats.SuccessRate,
		stats.MappedCustomers, stats.MappedInvoices, stats.MappedPayments)
	return nil
}

func printJSON(cmd *cobra.Command, raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
