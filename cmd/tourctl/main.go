package main

import (
	"fmt"
	"io"
	"os"

	"tour-routing-service/internal/config"
	"tour-routing-service/internal/domain"
	"tour-routing-service/internal/platform/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// options are shared by every subcommand.
type options struct {
	policyPath string
	verbose    bool
	out        io.Writer
}

func (o *options) policy() (domain.Policy, error) {
	if o.policyPath == "" {
		return domain.DefaultPolicy(), nil
	}
	return config.LoadPolicy(o.policyPath)
}

func (o *options) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	l, err := logging.New("debug", "console")
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{out: out}

	root := &cobra.Command{
		Use:           "tourctl",
		Short:         "Plan and check house-concert tours, and manage the local database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.policyPath, "policy", config.Get("POLICY_PATH", ""), "YAML policy overriding the defaults")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")

	root.AddCommand(newInitCmd(opts))
	root.AddCommand(newSeedCmd(opts))
	root.AddCommand(newPlanCmd(opts))
	root.AddCommand(newCheckCmd(opts))

	return root
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
