// Command bchoc records and audits the chain of custody of evidence items
// in a tamper-evident block file.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jmerrifield20/bchoc/internal/custody"
	"github.com/jmerrifield20/bchoc/internal/ledger"
	"github.com/jmerrifield20/bchoc/internal/metrics"
	"github.com/jmerrifield20/bchoc/internal/roles"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

// errVerifyFailed is returned after an unclean certification has already
// been printed.
var errVerifyFailed = errors.New("ledger failed verification")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command line and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if a.metrics != nil {
		if werr := a.metrics.WriteTextfile(a.cfg.MetricsFile); werr != nil {
			a.logger.Warn("metrics not written", zap.Error(werr))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}

	if err == nil {
		return 0
	}
	if !errors.Is(err, errVerifyFailed) {
		fmt.Fprintln(stderr, color.RedString("> %s", err))
	}
	return 1
}

// app carries the state built by the root command's pre-run hook.
type app struct {
	cfg     config
	logger  *zap.Logger
	metrics *metrics.Metrics
	store   *ledger.Store
	svc     *custody.Service
}

// setup loads configuration and wires the service. It runs once per invocation.
func (a *app) setup(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	cfg, err := loadConfig(v, cfgFile)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	if cfg.ConfigUsed != "" {
		logger.Debug("config loaded", zap.String("file", cfg.ConfigUsed))
	}

	auth := roles.New(cfg.Secrets)
	if auth.Configured() == 0 {
		logger.Debug("no role passwords configured; set BCHOC_PASSWORD_<ROLE>")
	}

	a.cfg = cfg
	a.logger = logger.With(zap.String("command", cmd.Name()))
	a.metrics = metrics.New()
	a.store = ledger.NewStore(cfg.FilePath, a.logger)
	a.svc = custody.NewService(a.store, auth, a.logger)
	a.svc.SetMetrics(a.metrics)
	return nil
}

func newRootCmd(a *app) *cobra.Command {
	var cfgFile string
	v := viper.New()

	root := &cobra.Command{
		Use:   "bchoc",
		Short: "Blockchain chain of custody",
		Long: `bchoc keeps a tamper-evident, append-only record of who held each
evidence item and when.

Every action is a block in a single ledger file. Each block carries the
SHA-256 of the block before it, so any edit or reordering of history is
caught by "bchoc verify".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, v, cfgFile)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.bchoc/config.yaml)")
	root.PersistentFlags().StringP("file", "f", "", "ledger file (default $BCHOC_FILE_PATH or blockchain.dat)")
	root.PersistentFlags().BoolP("verbose", "v", false, "debug logging to stderr")
	_ = v.BindPFlag("file_path", root.PersistentFlags().Lookup("file"))
	_ = v.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))

	root.AddCommand(
		newInitCmd(a),
		newAddCmd(a),
		newCheckoutCmd(a),
		newCheckinCmd(a),
		newRemoveCmd(a),
		newShowCmd(a),
		newSummaryCmd(a),
		newVerifyCmd(a),
		newPasswdHashCmd(),
		newVersionCmd(),
	)
	return root
}

// ── version ──────────────────────────────────────────────────────────────────

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the bchoc version",
		// no config needed
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bchoc %s\n", version)
		},
	}
}
