package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmerrifield20/bchoc/internal/integrity"
)

// ── verify ───────────────────────────────────────────────────────────────────

func newVerifyCmd(a *app) *cobra.Command {
	var (
		format string
		watch  bool
	)

	cmd := &cobra.Command{
		Use:   "verify [--watch]",
		Short: "Check the whole ledger for tampering and illegal sequences",
		Long: `verify re-reads every block and reports the first problem found:
a modified block, a missing or shared parent, or an item acted on after
removal. The exit status is 1 unless the ledger is CLEAN.

With --watch, verify runs again every time the ledger file changes until
interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !watch {
				return verifyOnce(a, out, format)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return verifyWatch(ctx, a, out, format)
		},
	}

	addFormatFlag(cmd, &format)
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "verify again whenever the ledger file changes")
	return cmd
}

// verifyWatch verifies now and after every ledger change until ctx is done.
// It returns the outcome of the last verification.
func verifyWatch(ctx context.Context, a *app, w io.Writer, format string) error {
	last := verifyOnce(a, w, format)
	if last != nil && !errors.Is(last, errVerifyFailed) {
		return last
	}
	err := watchLedger(ctx, a.cfg.FilePath, a.logger, func() {
		last = verifyOnce(a, w, format)
		if last != nil && !errors.Is(last, errVerifyFailed) {
			a.logger.Warn("verification failed to run", zap.Error(last))
		}
	})
	if err != nil {
		return err
	}
	return last
}

func verifyOnce(a *app, w io.Writer, format string) error {
	cert, err := a.svc.Verify()
	if err != nil {
		return err
	}
	if err := render(w, format, cert, func(w io.Writer) { printCertification(w, cert) }); err != nil {
		return err
	}
	if !cert.OK() {
		return errVerifyFailed
	}
	return nil
}

func printCertification(w io.Writer, cert integrity.Certification) {
	fmt.Fprintf(w, "> Transactions in blockchain: %d\n", cert.Transactions)
	if cert.OK() {
		fmt.Fprintf(w, "> State of blockchain: %s\n", color.GreenString("CLEAN"))
		return
	}
	fmt.Fprintf(w, "> State of blockchain: %s\n", color.RedString("ERROR"))
	fmt.Fprintf(w, "> Bad block: %s\n", cert.BadBlock)
	switch cert.Kind {
	case integrity.ParentNotFound:
		fmt.Fprintln(w, "> Parent block: NOT FOUND")
		return
	case integrity.DuplicateParent:
		fmt.Fprintf(w, "> Parent block: %s\n", cert.Parent)
	}
	fmt.Fprintf(w, "> %s\n", cert.Message())
}
