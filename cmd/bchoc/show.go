package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jmerrifield20/bchoc/internal/custody"
	"github.com/jmerrifield20/bchoc/internal/lifecycle"
)

// ── show ─────────────────────────────────────────────────────────────────────

func newShowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show cases, items or history",
	}
	cmd.AddCommand(
		newShowCasesCmd(a),
		newShowItemsCmd(a),
		newShowHistoryCmd(a),
	)
	return cmd
}

func newShowCasesCmd(a *app) *cobra.Command {
	var password, format string

	cmd := &cobra.Command{
		Use:   "cases [-p PASSWORD]",
		Short: "List every case (identifiers decoded with a valid password)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cases, err := a.svc.Cases(password)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), format, cases, func(w io.Writer) {
				if len(cases) == 0 {
					fmt.Fprintln(w, "> No cases in blockchain.")
					return
				}
				for i, c := range cases {
					fmt.Fprintf(w, "> Case #%d\n", i+1)
					fmt.Fprintf(w, ">   Case ID      : %s\n", c.Case)
					fmt.Fprintf(w, ">   Unique items : %d\n", c.Items)
					fmt.Fprintln(w)
				}
			})
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "any role password; decodes identifiers")
	addFormatFlag(cmd, &format)
	return cmd
}

func newShowItemsCmd(a *app) *cobra.Command {
	var caseID, password, format string

	cmd := &cobra.Command{
		Use:   "items -c CASE_ID [-p PASSWORD]",
		Short: "List the items of a case with their latest state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.svc.Items(caseID, password)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), format, items, func(w io.Writer) {
				if len(items) == 0 {
					fmt.Fprintf(w, "> No items found for case %s\n", caseID)
					return
				}
				for _, it := range items {
					if it.Owner != "" {
						fmt.Fprintf(w, "> %s  %s  (%s)\n", it.Item, it.State, it.Owner)
					} else {
						fmt.Fprintf(w, "> %s  %s\n", it.Item, it.State)
					}
				}
			})
		},
	}

	cmd.Flags().StringVarP(&caseID, "case_id", "c", "", "case UUID")
	cmd.Flags().StringVarP(&password, "password", "p", "", "any role password; decodes identifiers")
	addFormatFlag(cmd, &format)
	_ = cmd.MarkFlagRequired("case_id")
	return cmd
}

func newShowHistoryCmd(a *app) *cobra.Command {
	var (
		q      custody.HistoryQuery
		format string
	)

	cmd := &cobra.Command{
		Use:   "history [-c CASE_ID] [-i ITEM_ID] [-n N] [-r] [-p PASSWORD]",
		Short: "Show ledger entries, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if q.Limit < 0 {
				return fmt.Errorf("num_entries must not be negative")
			}
			events, err := a.svc.History(q)
			if err != nil {
				return err
			}
			// -n 0 asks for no entries, not for all of them
			matched := len(events)
			if q.Limit == 0 && cmd.Flags().Changed("num_entries") {
				events = events[:0]
			}
			return render(cmd.OutOrStdout(), format, events, func(w io.Writer) {
				if matched == 0 {
					fmt.Fprintln(w, "> No history entries match the given filters.")
					return
				}
				for _, ev := range events {
					fmt.Fprintf(w, "> Case: %s\n", ev.Case)
					fmt.Fprintf(w, "> Item: %s\n", ev.Item)
					fmt.Fprintf(w, "> Action: %s\n", ev.State)
					fmt.Fprintf(w, "> Time: %s\n", formatTime(ev.Time))
					fmt.Fprintln(w)
				}
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&q.CaseID, "case_id", "c", "", "case UUID filter")
	f.StringVarP(&q.ItemID, "item_id", "i", "", "item id filter")
	f.IntVarP(&q.Limit, "num_entries", "n", 0, "show at most N entries")
	f.BoolVarP(&q.Reverse, "reverse", "r", false, "newest entries first")
	f.StringVarP(&q.Password, "password", "p", "", "any role password; decodes identifiers")
	addFormatFlag(cmd, &format)
	return cmd
}

// ── summary ──────────────────────────────────────────────────────────────────

func newSummaryCmd(a *app) *cobra.Command {
	var caseID, format string

	cmd := &cobra.Command{
		Use:   "summary -c CASE_ID",
		Short: "Count the actions recorded for a case",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := a.svc.Summary(caseID)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), format, sum, func(w io.Writer) {
				if sum.UniqueItems == 0 {
					fmt.Fprintf(w, "> No records found for case %s\n", sum.Case)
					return
				}
				fmt.Fprintf(w, "> Case: %s\n", sum.Case)
				fmt.Fprintf(w, "> Unique item IDs: %d\n", sum.UniqueItems)
				for _, st := range lifecycle.ItemStates {
					fmt.Fprintf(w, "> %-9s: %d\n", st, sum.Counts[st])
				}
			})
		},
	}

	cmd.Flags().StringVarP(&caseID, "case_id", "c", "", "case UUID")
	addFormatFlag(cmd, &format)
	_ = cmd.MarkFlagRequired("case_id")
	return cmd
}
