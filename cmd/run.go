package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Howie-0721/ICR-Identification-tool/pkg/config"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/database"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/dataset"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/fileutil"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/log"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/recognition"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/sftpclient"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/workflow"
)

type runOptions struct {
	docType      string
	answerFile   string
	files        []string
	answerFormat string
	overrides    overrideOptions
}

// overrideOptions lets single connection settings from config.ini be
// replaced on the command line, e.g. when pointing a test at a lab clone.
type overrideOptions struct {
	sftpHost   string
	remotePath string
	dbHost     string
	dbName     string
}

func addOverrideFlags(cmd *cobra.Command, options *overrideOptions) {
	cmd.Flags().StringVar(&options.sftpHost, "sftp-host", "", "override the SFTP host from config.ini")
	cmd.Flags().StringVar(&options.remotePath, "remote-path", "", "override the SFTP remote path from config.ini")
	cmd.Flags().StringVar(&options.dbHost, "db-host", "", "override the database host from config.ini")
	cmd.Flags().StringVar(&options.dbName, "db-name", "", "override the database name from config.ini")
}

func applyOverrides(settings *config.Settings, options overrideOptions) {
	if options.sftpHost != "" {
		settings.SFTP.Host = options.sftpHost
	}
	if options.remotePath != "" {
		settings.SFTP.RemotePath = options.remotePath
	}
	if options.dbHost != "" {
		settings.Database.Host = options.dbHost
	}
	if options.dbName != "" {
		settings.Database.Database = options.dbName
	}
}

func newRunCommand() *cobra.Command {
	options := runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a full recognition accuracy test",
		Long: `Runs the complete test for one document type: stages the selected test
files and answer workbook, validates them against each other, uploads the
test data over SFTP, triggers batch recognition, exports the result tables
and writes the scored report into a timestamped directory under Log/.

Without --answer and --files the workbook in Answer/ and the files already
staged in Upload_folder/ are used as they are.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			return runTest(ctx, options, workPaths())
		},
	}

	cmd.Flags().StringVarP(&options.docType, "type", "t", "", "document type to test, one of: arc, employment, health")
	cmd.Flags().StringVar(&options.answerFile, "answer", "", "answer workbook to copy into Answer/ before the run")
	cmd.Flags().StringSliceVar(&options.files, "files", nil, "test files to restage into Upload_folder/ before the run")
	cmd.Flags().StringVar(&options.answerFormat, "answer-format", "", "employment list rendering, multiline (default) or list")
	addOverrideFlags(cmd, &options.overrides)
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func runTest(ctx context.Context, options runOptions, paths config.Paths) error {
	doc, err := config.DocTypeByKey(options.docType)
	if err != nil {
		return err
	}
	format, err := dataset.ParseAnswerFormat(options.answerFormat)
	if err != nil {
		return err
	}
	settings, err := loadSettings(paths)
	if err != nil {
		return err
	}
	applyOverrides(settings, options.overrides)

	if err := stageAnswer(paths, doc, options.answerFile); err != nil {
		return err
	}
	if err := stageFiles(paths, doc, options.files); err != nil {
		return err
	}

	db, err := database.Open(ctx, settings.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	orchestrator := &workflow.Orchestrator{
		Paths:      paths,
		Settings:   settings,
		Uploader:   sftpclient.New(settings.SFTP),
		Recognizer: recognition.NewClient(settings.Recognition),
		Store:      database.NewClient(db),
		Format:     format,
	}

	if err := orchestrator.Run(ctx, doc); err != nil {
		return err
	}
	log.Entry().Info("test finished")
	return nil
}

// stageAnswer copies the selected answer workbook into Answer/ under the
// name the document type expects.
func stageAnswer(paths config.Paths, doc config.DocType, answerFile string) error {
	if answerFile == "" {
		return nil
	}
	if err := os.MkdirAll(paths.AnswerDir(), 0o755); err != nil {
		return errors.Wrap(err, "failed to create the answer folder")
	}
	target := filepath.Join(paths.AnswerDir(), doc.AnswerFileName)
	if _, err := fileutil.Copy(answerFile, target); err != nil {
		return errors.Wrapf(err, "failed to stage the answer workbook '%s'", answerFile)
	}
	log.Entry().Infof("staged answer workbook as %s", target)
	return nil
}

// stageFiles clears the document type's staging folder and copies the
// selected test files into it.
func stageFiles(paths config.Paths, doc config.DocType, files []string) error {
	if len(files) == 0 {
		return nil
	}
	stagingDir := paths.StagingDir(doc)
	if err := fileutil.ClearDir(stagingDir); err != nil {
		return errors.Wrap(err, "failed to clear the staging folder")
	}
	for _, file := range files {
		target := filepath.Join(stagingDir, filepath.Base(file))
		if _, err := fileutil.Copy(file, target); err != nil {
			return errors.Wrapf(err, "failed to stage test file '%s'", file)
		}
	}
	log.Entry().Infof("staged %d test files in %s", len(files), stagingDir)
	return nil
}
