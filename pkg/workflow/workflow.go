// Package workflow drives a complete recognition accuracy test: staging
// upload, batch recognition, database export, scoring and report writing.
package workflow

import (
	"context"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Howie-0721/ICR-Identification-tool/pkg/config"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/database"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/dataset"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/fileutil"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/log"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/recognition"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/report"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/scoring"
)

// ResultFileName is the report written when answers are scored.
const ResultFileName = "results.xlsx"

// NoAnswerFileName is the report written when no answer workbook is used.
const NoAnswerFileName = "Identification_results.xlsx"

const totalSteps = 5

// Uploader stages the test documents on the recognition host.
type Uploader interface {
	UploadDir(ctx context.Context, localDir, remoteDir string) error
}

// Recognizer triggers batch recognition and waits for it to finish.
type Recognizer interface {
	StartBatch(ctx context.Context) (*recognition.Job, error)
	WaitForCompletion(ctx context.Context, counter recognition.CompletedCounter, job *recognition.Job) error
}

// Store reads the recognition service database.
type Store interface {
	recognition.CompletedCounter
	ExportTables(ctx context.Context, queries []database.TableQuery, outDir string) error
}

// Orchestrator wires the test steps together. All collaborators are
// interfaces so the flow can be tested without a lab environment.
type Orchestrator struct {
	Paths      config.Paths
	Settings   *config.Settings
	Uploader   Uploader
	Recognizer Recognizer
	Store      Store
	Format     dataset.AnswerFormat
}

// Run executes a full test of one document type and writes the scored report
// into a fresh run directory under Log/.
func (o *Orchestrator) Run(ctx context.Context, doc config.DocType) error {
	runLog, err := log.StartRun(o.Paths.LogDir())
	if err != nil {
		return err
	}
	defer runLog.Close()

	runID := uuid.New().String()
	log.Section("recognition accuracy test " + runID)
	log.Entry().Infof("document type: %s", doc.Name)

	log.Step(1, totalSteps, "load answers and validate test data")
	answers, err := o.loadAnswers(doc)
	if err != nil {
		return err
	}
	files, err := fileutil.ListFiles(o.Paths.StagingDir(doc))
	if err != nil {
		return errors.Wrap(err, "failed to list the staging folder")
	}
	if err := scoring.MatchFilenames(answers, files); err != nil {
		return err
	}
	log.Entry().Infof("validated %d test files against %d answer rows", len(files), len(answers))

	job, err := o.uploadAndRecognize(ctx, doc, len(files))
	if err != nil {
		return err
	}

	log.Step(4, totalSteps, "export recognition tables")
	if err := o.exportBatch(ctx, doc, job.UploadID); err != nil {
		return err
	}

	log.Step(5, totalSteps, "score results and write the report")
	scored, err := o.mergeAndScore(doc, answers)
	if err != nil {
		return err
	}

	stats := scoring.ComputeFileStats(scored, answers, doc)
	summary := scoring.Summarize(scored, stats)
	analyses := scoring.AnalyzeFields(scored, answers, doc)

	resultPath := filepath.Join(runLog.Dir, ResultFileName)
	err = report.Write(resultPath, o.Paths.TemplateDir(), report.Report{
		Doc:      doc,
		Rows:     scored,
		Columns:  dataset.OutputColumns(scored, doc.OutputColumns),
		Stats:    stats,
		Summary:  summary,
		Analyses: analyses,
	})
	if err != nil {
		return err
	}
	log.Entry().Infof("report written to %s", resultPath)

	o.archiveRun(runLog.Dir, doc)

	log.Entry().Infof("scored %d records, %d fully correct (%.1f%%)",
		summary.TotalRecords, summary.Perfect, summary.PerfectRate)
	return nil
}

// RunNoAnswer executes the test without ground truth and writes the raw
// recognition rows, without sequence numbers, into the run directory.
func (o *Orchestrator) RunNoAnswer(ctx context.Context, doc config.DocType) error {
	runLog, err := log.StartRun(o.Paths.LogDir())
	if err != nil {
		return err
	}
	defer runLog.Close()

	runID := uuid.New().String()
	log.Section("recognition run " + runID)
	log.Entry().Infof("document type: %s, no answer workbook", doc.Name)

	log.Step(1, totalSteps, "collect test data")
	files, err := fileutil.ListFiles(o.Paths.StagingDir(doc))
	if err != nil {
		return errors.Wrap(err, "failed to list the staging folder")
	}
	log.Entry().Infof("found %d test files", len(files))

	job, err := o.uploadAndRecognize(ctx, doc, len(files))
	if err != nil {
		return err
	}

	log.Step(4, totalSteps, "export recognition tables")
	if err := o.exportBatch(ctx, doc, job.UploadID); err != nil {
		return err
	}

	log.Step(5, totalSteps, "write the recognition report")
	rows, err := o.mergeNoAnswer(doc)
	if err != nil {
		return err
	}

	resultPath := filepath.Join(runLog.Dir, NoAnswerFileName)
	columns := withoutSequence(doc.OutputColumns)
	if err := report.WriteNoAnswer(resultPath, doc, rows, columns); err != nil {
		return err
	}
	log.Entry().Infof("report written to %s", resultPath)

	o.archiveRun(runLog.Dir, doc)
	log.Entry().Infof("recognized %d records", len(rows))
	return nil
}

func (o *Orchestrator) loadAnswers(doc config.DocType) ([]map[string]string, error) {
	path := filepath.Join(o.Paths.AnswerDir(), doc.AnswerFileName)
	answers, err := fileutil.ReadExcelRows(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read the answer workbook %s", path)
	}
	if len(answers) == 0 {
		return nil, errors.Errorf("answer workbook %s holds no rows", path)
	}
	return answers, nil
}

// uploadAndRecognize covers steps 2 and 3: staging upload, batch trigger and
// completion polling against the service database.
func (o *Orchestrator) uploadAndRecognize(ctx context.Context, doc config.DocType, fileCount int) (*recognition.Job, error) {
	log.Step(2, totalSteps, "upload test data")
	stagingDir := o.Paths.StagingDir(doc)
	if err := o.Uploader.UploadDir(ctx, stagingDir, o.Settings.SFTP.RemotePath); err != nil {
		return nil, err
	}

	log.Step(3, totalSteps, "run batch recognition")
	job, err := o.Recognizer.StartBatch(ctx)
	if err != nil {
		return nil, err
	}
	if job.TotalFiles != fileCount {
		log.Entry().Warningf("batch reports %d files but %d were staged", job.TotalFiles, fileCount)
	}
	if err := o.Recognizer.WaitForCompletion(ctx, o.Store, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (o *Orchestrator) exportBatch(ctx context.Context, doc config.DocType, uploadID string) error {
	dbDir := o.Paths.DBDir()
	if err := fileutil.ClearDir(dbDir); err != nil {
		return errors.Wrap(err, "failed to clear the export folder")
	}
	return o.Store.ExportTables(ctx, database.BatchQueries(uploadID, doc), dbDir)
}

func (o *Orchestrator) mergeAndScore(doc config.DocType, answers []map[string]string) ([]map[string]string, error) {
	master, err := o.readExport(config.MasterTable)
	if err != nil {
		return nil, err
	}

	var rows []map[string]string
	if doc.FromLLMOutput {
		rows, err = dataset.MergeEmployment(doc, master, answers, o.Format)
	} else {
		var docRows []map[string]string
		docRows, err = o.readExport(doc.Table)
		if err != nil {
			return nil, err
		}
		rows, err = dataset.MergeStandard(doc, master, docRows, answers)
	}
	if err != nil {
		return nil, err
	}

	return scoring.Score(rows, answers, doc), nil
}

func (o *Orchestrator) mergeNoAnswer(doc config.DocType) ([]map[string]string, error) {
	master, err := o.readExport(config.MasterTable)
	if err != nil {
		return nil, err
	}
	if doc.FromLLMOutput {
		return dataset.MergeEmploymentNoAnswer(master, o.Format), nil
	}
	docRows, err := o.readExport(doc.Table)
	if err != nil {
		return nil, err
	}
	return dataset.MergeStandardNoAnswer(doc, master, docRows), nil
}

func (o *Orchestrator) readExport(table string) ([]map[string]string, error) {
	path := filepath.Join(o.Paths.DBDir(), table+".csv")
	rows, err := fileutil.ReadCSVRows(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read the export %s", path)
	}
	return rows, nil
}

// archiveRun copies the database export and the test data into the run
// directory so each run stays reproducible. Archive failures do not fail
// the run, the report is already written at this point.
func (o *Orchestrator) archiveRun(runDir string, doc config.DocType) {
	if _, err := fileutil.CopyDir(o.Paths.DBDir(), filepath.Join(runDir, "DB")); err != nil {
		log.Entry().WithError(err).Warn("failed to archive the database export")
	}
	testDataDir := filepath.Join(runDir, "test_data", doc.Name)
	if _, err := fileutil.CopyDir(o.Paths.StagingDir(doc), testDataDir); err != nil {
		log.Entry().WithError(err).Warn("failed to archive the test data")
	}
}

func withoutSequence(columns []string) []string {
	kept := make([]string, 0, len(columns))
	for _, column := range columns {
		if column != dataset.ColSequence {
			kept = append(kept, column)
		}
	}
	return kept
}
