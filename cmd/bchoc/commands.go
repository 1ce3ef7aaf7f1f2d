package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jmerrifield20/bchoc/internal/custody"
	"github.com/jmerrifield20/bchoc/internal/lifecycle"
	"github.com/jmerrifield20/bchoc/internal/roles"
)

// promptPassword returns given, or reads a password from the terminal when
// given is empty and stdin is interactive.
func promptPassword(cmd *cobra.Command, given string) (string, error) {
	if given != "" {
		return given, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

// ── init ─────────────────────────────────────────────────────────────────────

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the ledger with its INITIAL block, or check an existing one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := a.svc.Init()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if created {
				fmt.Fprintln(out, "> Blockchain file not found. Created INITIAL block.")
			} else {
				fmt.Fprintln(out, "> Blockchain file found with INITIAL block.")
			}
			return nil
		},
	}
}

// ── add ──────────────────────────────────────────────────────────────────────

func newAddCmd(a *app) *cobra.Command {
	var (
		caseID   string
		itemIDs  []string
		creator  string
		password string
	)

	cmd := &cobra.Command{
		Use:   "add -c CASE_ID -i ITEM_ID [ITEM_ID ...] -g CREATOR -p PASSWORD",
		Short: "Add new evidence items to a case (creator role)",
		// extra positional arguments are further item ids: add -i 1 2 3
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := append(itemIDs, args...)
			pw, err := promptPassword(cmd, password)
			if err != nil {
				return err
			}
			events, err := a.svc.Add(custody.AddRequest{
				CaseID:   caseID,
				ItemIDs:  ids,
				Creator:  creator,
				Password: pw,
			})
			out := cmd.OutOrStdout()
			for i, ev := range events {
				if i == 0 {
					fmt.Fprintf(out, "> Added to case: %s\n", ev.Case)
				}
				fmt.Fprintf(out, "> Added item: %s\n", ev.Item)
				fmt.Fprintf(out, "> Status: %s\n", ev.State)
				fmt.Fprintf(out, "> Time of action: %s\n", formatTime(ev.Time))
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&caseID, "case_id", "c", "", "case UUID")
	cmd.Flags().StringSliceVarP(&itemIDs, "item_id", "i", nil, "item id (repeatable or comma separated)")
	cmd.Flags().StringVarP(&creator, "creator", "g", "", "name of the person adding the items")
	cmd.Flags().StringVarP(&password, "password", "p", "", "creator password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("case_id")
	_ = cmd.MarkFlagRequired("item_id")
	_ = cmd.MarkFlagRequired("creator")
	return cmd
}

// ── checkout / checkin ───────────────────────────────────────────────────────

func newCheckoutCmd(a *app) *cobra.Command {
	var itemID, owner, password string

	cmd := &cobra.Command{
		Use:   "checkout -i ITEM_ID -o OWNER -p PASSWORD",
		Short: "Check an item out to a new owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := promptPassword(cmd, password)
			if err != nil {
				return err
			}
			ev, err := a.svc.Checkout(itemID, owner, pw)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "> Case: %s\n", ev.Case)
			fmt.Fprintf(out, "> Checked out item: %s\n", ev.Item)
			fmt.Fprintf(out, "> New owner: %s\n", ev.Owner)
			fmt.Fprintf(out, "> Status: %s\n", ev.State)
			fmt.Fprintf(out, "> Time of action: %s\n", formatTime(ev.Time))
			return nil
		},
	}

	cmd.Flags().StringVarP(&itemID, "item_id", "i", "", "item id")
	cmd.Flags().StringVarP(&owner, "owner", "o", "", "new owner name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "any role password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("item_id")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newCheckinCmd(a *app) *cobra.Command {
	var itemID, password string

	cmd := &cobra.Command{
		Use:   "checkin -i ITEM_ID -p PASSWORD",
		Short: "Check a checked-out item back in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := promptPassword(cmd, password)
			if err != nil {
				return err
			}
			ev, err := a.svc.Checkin(itemID, pw)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "> Case: %s\n", ev.Case)
			fmt.Fprintf(out, "> Checked in item: %s\n", ev.Item)
			fmt.Fprintf(out, "> Status: %s\n", ev.State)
			fmt.Fprintf(out, "> Time of action: %s\n", formatTime(ev.Time))
			return nil
		},
	}

	cmd.Flags().StringVarP(&itemID, "item_id", "i", "", "item id")
	cmd.Flags().StringVarP(&password, "password", "p", "", "any role password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("item_id")
	return cmd
}

// ── remove ───────────────────────────────────────────────────────────────────

func newRemoveCmd(a *app) *cobra.Command {
	var itemID, state, owner, password string

	cmd := &cobra.Command{
		Use:   "remove -i ITEM_ID -s DISPOSED|DESTROYED|RELEASED [-o OWNER] -p PASSWORD",
		Short: "Take an item out of custody permanently (creator role)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := promptPassword(cmd, password)
			if err != nil {
				return err
			}
			ev, err := a.svc.Remove(custody.RemoveRequest{
				ItemID:   itemID,
				State:    state,
				Owner:    owner,
				Password: pw,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "> Case: %s\n", ev.Case)
			fmt.Fprintf(out, "> Removed item: %s\n", ev.Item)
			fmt.Fprintf(out, "> Status: %s\n", ev.State)
			if ev.State == lifecycle.Released {
				fmt.Fprintf(out, "> Released to: %s\n", ev.Owner)
			}
			fmt.Fprintf(out, "> Time of action: %s\n", formatTime(ev.Time))
			return nil
		},
	}

	cmd.Flags().StringVarP(&itemID, "item_id", "i", "", "item id")
	cmd.Flags().StringVarP(&state, "state", "s", "", "removal state: DISPOSED, DESTROYED or RELEASED")
	cmd.Flags().StringVarP(&owner, "owner", "o", "", "receiving owner (required for RELEASED)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "creator password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("item_id")
	_ = cmd.MarkFlagRequired("state")
	return cmd
}

// ── passwd-hash ──────────────────────────────────────────────────────────────

func newPasswdHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd-hash [PASSWORD]",
		Short: "Print a bcrypt hash for use as a passwords.<role> config value",
		Args:  cobra.MaximumNArgs(1),
		// no config needed
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			given := ""
			if len(args) == 1 {
				given = args[0]
			}
			pw, err := promptPassword(cmd, given)
			if err != nil {
				return err
			}
			hash, err := roles.HashSecret(pw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
