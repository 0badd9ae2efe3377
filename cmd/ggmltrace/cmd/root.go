package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile      string
	reportDir    string
	outputFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ggmltrace",
	Short: "Crash diagnostics for applications embedding ggml",
	Long: `ggmltrace manages the process termination hook that emits a backtrace
and a persisted crash report when an application embedding ggml-backed
native code hits an unrecovered failure.`,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ggmltrace/config)")
	rootCmd.PersistentFlags().StringVar(&reportDir, "report-dir", "", "crash report directory (default from config or the system location)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table, json or yaml")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".ggmltrace")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// Bind specific environment variables
	viper.BindEnv("report_dir", "GGMLTRACE_REPORT_DIR")

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		if viper.GetString("report_dir") != "" && reportDir == "" {
			reportDir = viper.GetString("report_dir")
		}
	}

	if reportDir == "" && viper.GetString("report_dir") != "" {
		reportDir = viper.GetString("report_dir")
	}
}
