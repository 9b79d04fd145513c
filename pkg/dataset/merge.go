package dataset

import (
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Howie-0721/ICR-Identification-tool/pkg/config"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/log"
)

// TypeColumn returns the report column carrying the document type. ARC
// reports historically label it 資料類型, the other types 文件類型.
func TypeColumn(doc config.DocType) string {
	for _, column := range doc.OutputColumns {
		if column == ColARCType {
			return ColARCType
		}
	}
	return ColDocType
}

// MergeStandard joins the batch's master rows with the per-type table rows
// for types whose fields live in dedicated columns (ARC, Health). The newest
// N master rows are taken, N being the answer count, and their filename set
// must match the answer filenames exactly.
func MergeStandard(doc config.DocType, master, docRows, answers []map[string]string) ([]map[string]string, error) {
	matching := newestRows(master, len(answers))
	if err := checkFilenames(matching, answers); err != nil {
		return nil, err
	}

	output := mergeByUUID(doc, matching, docRows, true)
	sortByFileName(output)
	return output, nil
}

// MergeStandardNoAnswer joins every exported master row with the per-type
// table rows, without a sequence column.
func MergeStandardNoAnswer(doc config.DocType, master, docRows []map[string]string) []map[string]string {
	output := mergeByUUID(doc, master, docRows, false)
	sortByFileName(output)
	return output
}

func mergeByUUID(doc config.DocType, master, docRows []map[string]string, withSequence bool) []map[string]string {
	byUUID := make(map[string]map[string]string, len(docRows))
	for _, row := range docRows {
		if uuid := row[masterUUID]; uuid != "" {
			byUUID[uuid] = row
		}
	}

	typeColumn := TypeColumn(doc)
	output := make([]map[string]string, 0, len(master))
	for _, row := range master {
		uuid := row[masterUUID]
		outputRow := map[string]string{
			ColFileName: row[masterFileName],
			typeColumn:  row[masterDocType],
		}
		if withSequence {
			outputRow[ColSequence] = uuid
		}
		docRow := byUUID[uuid]
		for field, dbColumn := range doc.FieldMapping {
			if docRow != nil {
				outputRow[field] = docRow[dbColumn]
			} else {
				outputRow[field] = ""
			}
		}
		output = append(output, outputRow)
	}
	return output
}

// newestRows returns the n most recent rows by created_at.
func newestRows(master []map[string]string, n int) []map[string]string {
	sorted := append([]map[string]string{}, master...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return parseCreatedAt(sorted[i][masterCreatedAt]).After(parseCreatedAt(sorted[j][masterCreatedAt]))
	})
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// checkFilenames verifies that the batch's master rows and the answer rows
// cover exactly the same files.
func checkFilenames(master, answers []map[string]string) error {
	masterNames := make(map[string]bool, len(master))
	for _, row := range master {
		if name := row[masterFileName]; name != "" {
			masterNames[name] = true
		}
	}
	answerNames := make(map[string]bool, len(answers))
	for _, row := range answers {
		if name := row[ColFileName]; name != "" {
			answerNames[name] = true
		}
	}

	var missingInMaster, missingInAnswers []string
	for name := range answerNames {
		if !masterNames[name] {
			missingInMaster = append(missingInMaster, name)
		}
	}
	for name := range masterNames {
		if !answerNames[name] {
			missingInAnswers = append(missingInAnswers, name)
		}
	}
	if len(missingInMaster) == 0 && len(missingInAnswers) == 0 {
		return nil
	}

	sort.Strings(missingInMaster)
	sort.Strings(missingInAnswers)
	for _, name := range missingInMaster {
		log.Entry().Errorf("file in answers but not in database export: %s", name)
	}
	for _, name := range missingInAnswers {
		log.Entry().Errorf("file in database export but not in answers: %s", name)
	}

	var parts []string
	if len(missingInMaster) > 0 {
		parts = append(parts, "missing in database export: "+strings.Join(missingInMaster, ", "))
	}
	if len(missingInAnswers) > 0 {
		parts = append(parts, "missing in answers: "+strings.Join(missingInAnswers, ", "))
	}
	return errors.Errorf("exported files do not match the answer files (%s)", strings.Join(parts, "; "))
}

func sortByFileName(rows []map[string]string) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i][ColFileName] < rows[j][ColFileName]
	})
}

func sortByFileNameAndNumber(rows []map[string]string) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i][ColFileName] != rows[j][ColFileName] {
			return rows[i][ColFileName] < rows[j][ColFileName]
		}
		return rows[i][fieldNumber] < rows[j][fieldNumber]
	})
}

var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05",
}

func parseCreatedAt(value string) time.Time {
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
