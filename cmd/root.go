// Package cmd holds the icrtest command line interface.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Howie-0721/ICR-Identification-tool/pkg/config"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/log"
)

type generalOptions struct {
	workDir string
	verbose bool
}

var generalConfig generalOptions

var rootCmd = &cobra.Command{
	Use:   "icrtest",
	Short: "Recognition accuracy testing for the document recognition service",
	Long: `icrtest uploads prepared test documents to the recognition service,
triggers batch recognition, exports the result tables and scores the
recognition output against ground-truth answer workbooks.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetVerbose(generalConfig.verbose)
	},
}

// Execute runs the command line interface.
func Execute() {
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newRecognizeCommand())
	rootCmd.AddCommand(newExportDBCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Entry().WithError(err).Fatal("execution failed")
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&generalConfig.workDir, "workDir", ".", "working directory holding config.ini, Answer/, Upload_folder/ and excel_template/")
	rootCmd.PersistentFlags().BoolVarP(&generalConfig.verbose, "verbose", "v", false, "enable debug output")
}

// workPaths resolves the runtime folder layout from the --workDir flag.
func workPaths() config.Paths {
	return config.Paths{WorkDir: generalConfig.workDir}
}

// loadSettings reads and validates config.ini from the working directory.
func loadSettings(paths config.Paths) (*config.Settings, error) {
	return config.Load(paths.SettingsFile())
}

// signalContext returns a context cancelled on interrupt or termination so a
// running test shuts down between steps instead of mid-transfer.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
