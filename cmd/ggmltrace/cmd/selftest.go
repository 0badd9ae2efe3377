package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psantana5/ggmltrace/pkg/backtrace"
	"github.com/psantana5/ggmltrace/pkg/fatal"
	"github.com/psantana5/ggmltrace/pkg/hook"
)

// selftestCmd represents the selftest command
var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Trigger a synthetic fatal failure through the installed hook",
	Long: `Install the termination hook, then raise an unrecovered failure.

The expected outcome is a backtrace on stderr, a crash report in the
report directory, and abnormal process exit. This command never returns
successfully unless installation was skipped.`,
	RunE: runSelftest,
}

func init() {
	rootCmd.AddCommand(selftestCmd)
}

func runSelftest(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	reporter := backtrace.NewReporter()
	reporter.SetStore(store)

	m := hook.New(reporter)
	if !m.Installed() {
		return fmt.Errorf("termination hook not installed (is %s set?)", hook.OptOutEnv)
	}

	fmt.Printf("Hook installed, reports -> %s\n", store.Dir())
	fmt.Println("Raising synthetic fatal failure...")

	defer fatal.HandleCrash()
	panic("ggmltrace selftest: synthetic fatal failure")
}
