package main

import (
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/payfast/payfast/internal/history"
	"github.com/payfast/payfast/internal/money"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:   "history ID",
		Short: "List an account's transfers, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, closeFn, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			entries, err := history.NewReader(app.store, app.accounts).History(cmd.Context(), args[0], page, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				pterm.Info.WithWriter(out).Println("no transfers on this page")
				return nil
			}
			return pterm.DefaultTable.WithHasHeader().WithWriter(out).WithData(historyTable(entries)).Render()
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&limit, "limit", history.DefaultPageSize, "records per page")
	return cmd
}

func historyTable(entries []history.EnrichedRecord) pterm.TableData {
	data := pterm.TableData{{"#", "When", "Direction", "Amount", "From", "To"}}
	for _, e := range entries {
		data = append(data, []string{
			strconv.FormatInt(e.Seq, 10),
			e.CreatedAt.Format(time.RFC3339),
			string(e.Direction),
			money.Format(e.Amount),
			e.SenderName + " <" + e.FromID + ">",
			e.ReceiverName + " <" + e.ToID + ">",
		})
	}
	return data
}
