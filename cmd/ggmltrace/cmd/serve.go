package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/psantana5/ggmltrace/pkg/backtrace"
	"github.com/psantana5/ggmltrace/pkg/diag"
	"github.com/psantana5/ggmltrace/pkg/fatal"
	"github.com/psantana5/ggmltrace/pkg/hook"
	"github.com/psantana5/ggmltrace/pkg/logging"
	"github.com/psantana5/ggmltrace/pkg/shutdown"
)

var (
	serveListen   string
	serveLogLevel string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the diagnostics HTTP endpoint",
	Long: `Install the termination hook and serve live goroutine dumps, stored
crash reports and Prometheus metrics over HTTP until interrupted. The
hook is uninstalled on the way out.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveListen, "listen", ":9464", "listen address for the diagnostics endpoint")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "INFO", "log level: DEBUG, INFO, WARN, ERROR")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logging.NewLogger(logging.ParseLevel(serveLogLevel), false)

	store, err := openStore()
	if err != nil {
		return err
	}

	reporter := backtrace.NewReporter()
	reporter.SetStore(store)

	m := hook.New(reporter)
	if m.Installed() {
		fatal.TrapSignals()
		log.Info("Termination hook installed", map[string]interface{}{"reports": store.Dir()})
	} else {
		log.Warn(fmt.Sprintf("Termination hook not installed (%s set); serving reports only", hook.OptOutEnv))
	}

	server := &http.Server{
		Addr:    serveListen,
		Handler: diag.NewServer(store, m.Installed(), log).Router(),
	}

	sd := shutdown.New(10*time.Second, log)
	sd.Register(func(ctx context.Context) error {
		m.Uninstall()
		return nil
	})
	sd.Register(shutdown.StopHTTPServer(server, "diagnostics"))

	go func() {
		defer fatal.HandleCrash()
		log.Info("Diagnostics endpoint listening", map[string]interface{}{"addr": serveListen})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Diagnostics server error", map[string]interface{}{"error": err.Error()})
		}
	}()

	sd.Wait()
	sd.Shutdown()
	return nil
}
