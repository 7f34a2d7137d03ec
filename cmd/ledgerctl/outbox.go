package main

import (
	"fmt"
	"net/url"
	"strconv"
	"text/tabwriter"

	"github.com/erp/ledgersync/internal/application/event"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Inspect and replay post-commit deliveries",
}

var outboxStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count outbox entries per status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var stats event.OutboxStatsDTO
		raw, err := newClient().get(cmd.Context(), "/outbox/stats", nil, &stats)
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(cmd, raw)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pending %d, processing %d, sent %d, failed %d, dead %d (total %d)\n",
			stats.Pending, stats.Processing, stats.Sent, stats.Failed, stats.Dead, stats.Total)
		return nil
	},
}

var outboxDeadCmd = &cobra.Command{
	Use:   "dead",
	Short: "List entries that exhausted their retries",
	Args:  cobra.NoArgs,
	RunE:  runOutboxDead,
}

var outboxRetryCmd = &cobra.Command{
	Use:   "retry [entry-id]",
	Short: "Requeue one dead entry, or all of them with --all",
	Example: `  ledgerctl outbox retry 5c1d2a8e-7f3b-4e0a-9c61-2b8d4f7e1a90
  ledgerctl outbox retry --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: runOutboxRetry,
}

func init() {
	outboxCmd.AddCommand(outboxStatsCmd, outboxDeadCmd, outboxRetryCmd)
	rootCmd.AddCommand(outboxCmd)

	outboxDeadCmd.Flags().Int("page", 1, "Page number")
	outboxDeadCmd.Flags().Int("page-size", 20, "Entries per page (max 100)")
	outboxRetryCmd.Flags().Bool("all", false, "Requeue every dead entry")
}

func runOutboxDead(cmd *cobra.Command, _ []string) error {
	page, _ := cmd.Flags().GetInt("page")
	pageSize, _ := cmd.Flags().GetInt("page-size")

	var result event.OutboxPage
	raw, err := newClient().get(cmd.Context(), "/outbox/dead", url.Values{
		"page":      {strconv.Itoa(page)},
		"page_size": {strconv.Itoa(pageSize)},
	}, &result)
	if err != nil {
		return err
	}
	if outputJSON {
		return printJSON(cmd, raw)
	}
	if len(result.Entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no dead entries")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEVENT\tAGGREGATE\tRETRIES\tLAST ERROR")
	for _, e := range result.Entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\n",
			e.ID, e.EventType, e.AggregateID, e.RetryCount, e.MaxRetries, truncate(e.LastError, 60))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "page %d, %d of %d entries\n", result.Page, len(result.Entries), result.Total)
	return nil
}

func runOutboxRetry(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	client := newClient()

	switch {
	case all && len(args) == 0:
		var result struct {
			Requeued int64 `json:"requeued"`
		}
		if _, err := client.post(cmd.Context(), "/outbox/dead/retry", &result); err != nil {
			return err
		}
		log.Info("Requeued dead entries", zap.Int64("count", result.Requeued))
		fmt.Fprintf(cmd.OutOrStdout(), "requeued %d entries\n", result.Requeued)
		return nil

	case !all && len(args) == 1:
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		var entry event.OutboxEntryDTO
		if _, err := client.post(cmd.Context(), "/outbox/dead/"+id.String()+"/retry", &entry); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "entry %s is %s\n", entry.ID, entry.Status)
		return nil

	default:
		return fmt.Errorf("pass one entry id or --all")
	}
}
