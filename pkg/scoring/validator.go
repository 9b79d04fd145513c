package scoring

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/Howie-0721/ICR-Identification-tool/pkg/dataset"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/log"
)

// MatchFilenames verifies that the answer rows and the staged upload files
// describe the same document set. Both directions are checked so that a
// missing answer and a missing test file are reported separately.
func MatchFilenames(answers []map[string]string, uploadFiles []string) error {
	answerNames := map[string]bool{}
	for _, row := range answers {
		if name := strings.TrimSpace(row[dataset.ColFileName]); name != "" {
			answerNames[name] = true
		}
	}

	uploadNames := map[string]bool{}
	for _, file := range uploadFiles {
		uploadNames[filepath.Base(file)] = true
	}

	var missingAnswers, missingFiles []string
	for name := range uploadNames {
		if !answerNames[name] {
			missingAnswers = append(missingAnswers, name)
		}
	}
	for name := range answerNames {
		if !uploadNames[name] {
			missingFiles = append(missingFiles, name)
		}
	}

	if len(missingAnswers) == 0 && len(missingFiles) == 0 {
		return nil
	}

	sort.Strings(missingAnswers)
	sort.Strings(missingFiles)
	if len(missingAnswers) > 0 {
		log.Entry().Errorf("test files without an answer row: %s", strings.Join(missingAnswers, ", "))
	}
	if len(missingFiles) > 0 {
		log.Entry().Errorf("answer rows without a test file: %s", strings.Join(missingFiles, ", "))
	}
	return errors.Errorf("test files and answer rows do not match (files without answers: %d, answers without files: %d)",
		len(missingAnswers), len(missingFiles))
}
