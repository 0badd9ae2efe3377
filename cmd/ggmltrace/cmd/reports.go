package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/psantana5/ggmltrace/pkg/backtrace"
)

// reportsCmd represents the reports command
var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Inspect persisted crash reports",
	Long:  `Commands for listing and displaying crash reports written by the termination hook.`,
}

// reportsListCmd represents the reports list command
var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored crash reports",
	Long:  `List all crash reports in the report directory, newest first.`,
	RunE:  runReportsList,
}

// reportsShowCmd represents the reports show command
var reportsShowCmd = &cobra.Command{
	Use:   "show <report-id>",
	Short: "Display a single crash report",
	Long:  `Display the host snapshot and full backtrace of one crash report. The ID may be abbreviated to a unique prefix of at least eight characters.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runReportsShow,
}

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(reportsListCmd)
	reportsCmd.AddCommand(reportsShowCmd)
}

func openStore() (*backtrace.Store, error) {
	store, err := backtrace.NewStore(reportDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open report store: %w", err)
	}
	return store, nil
}

func runReportsList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	reports, err := store.List()
	if err != nil {
		return err
	}

	switch outputFormat {
	case "json":
		return renderJSON(reports)
	case "yaml":
		return renderYAML(reports)
	default:
		if len(reports) == 0 {
			fmt.Printf("No crash reports in %s\n", store.Dir())
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.Header("ID", "Time", "Host", "OS/Arch", "Stack Bytes")

		for _, rep := range reports {
			table.Append(
				rep.ID[:8],
				rep.Timestamp.Format("2006-01-02 15:04:05"),
				rep.Host.Hostname,
				fmt.Sprintf("%s/%s", rep.Host.OS, rep.Host.Arch),
				fmt.Sprintf("%d", len(rep.Stack)),
			)
		}

		table.Render()
		fmt.Printf("\nTotal reports: %d (%s)\n", len(reports), store.Dir())
		return nil
	}
}

func runReportsShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	rep, err := store.Load(args[0])
	if err != nil {
		return err
	}

	switch outputFormat {
	case "json":
		return renderJSON(rep)
	case "yaml":
		return renderYAML(rep)
	default:
		fmt.Printf("Report:    %s\n", rep.ID)
		fmt.Printf("Time:      %s\n", rep.Timestamp.Format("2006-01-02 15:04:05 MST"))
		fmt.Printf("Host:      %s (%s)\n", rep.Host.Hostname, rep.Host.Platform)
		fmt.Printf("Runtime:   %s/%s, %d cpus, pid %d\n", rep.Host.OS, rep.Host.Arch, rep.Host.CPUs, rep.Host.PID)
		fmt.Printf("\n%s\n", rep.Stack)
		return nil
	}
}

func renderJSON(v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(output))
	return nil
}

func renderYAML(v interface{}) error {
	output, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	fmt.Print(string(output))
	return nil
}
