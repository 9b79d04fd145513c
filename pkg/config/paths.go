package config

import "path/filepath"

// Paths derives the runtime folder layout from the working directory. The
// layout matches what the packaging scaffolds next to the executable.
type Paths struct {
	WorkDir string
}

// SettingsFile returns the path of config.ini.
func (p Paths) SettingsFile() string {
	return filepath.Join(p.WorkDir, DefaultFileName)
}

// AnswerDir holds the ground-truth workbooks.
func (p Paths) AnswerDir() string {
	return filepath.Join(p.WorkDir, "Answer")
}

// DBDir receives the CSV exports of the recognition tables.
func (p Paths) DBDir() string {
	return filepath.Join(p.WorkDir, "DB")
}

// LogDir is the parent of the per-run timestamped directories.
func (p Paths) LogDir() string {
	return filepath.Join(p.WorkDir, "Log")
}

// UploadDir is the root of the per-document-type staging folders.
func (p Paths) UploadDir() string {
	return filepath.Join(p.WorkDir, "Upload_folder")
}

// StagingDir returns the upload staging folder of a document type.
func (p Paths) StagingDir(doc DocType) string {
	return filepath.Join(p.WorkDir, doc.UploadFolder)
}

// TemplateDir holds the report workbook templates.
func (p Paths) TemplateDir() string {
	return filepath.Join(p.WorkDir, "excel_template")
}
