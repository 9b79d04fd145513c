package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Howie-0721/ICR-Identification-tool/pkg/config"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/database"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/dataset"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/log"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/recognition"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/sftpclient"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/workflow"
)

type recognizeOptions struct {
	docType      string
	files        []string
	answerFormat string
	overrides    overrideOptions
}

func newRecognizeCommand() *cobra.Command {
	options := recognizeOptions{}

	cmd := &cobra.Command{
		Use:   "recognize",
		Short: "Run recognition without an answer workbook",
		Long: `Runs the workflow without ground truth: uploads the staged test files,
triggers batch recognition, exports the result tables and writes the raw
recognition rows, without scoring, into a timestamped directory under
Log/.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			return runRecognize(ctx, options, workPaths())
		},
	}

	cmd.Flags().StringVarP(&options.docType, "type", "t", "", "document type to recognize, one of: arc, employment, health")
	cmd.Flags().StringSliceVar(&options.files, "files", nil, "test files to restage into Upload_folder/ before the run")
	cmd.Flags().StringVar(&options.answerFormat, "answer-format", "", "employment list rendering, multiline (default) or list")
	addOverrideFlags(cmd, &options.overrides)
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func runRecognize(ctx context.Context, options recognizeOptions, paths config.Paths) error {
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

	if err := orchestrator.RunNoAnswer(ctx, doc); err != nil {
		return err
	}
	log.Entry().Info("recognition run finished")
	return nil
}
