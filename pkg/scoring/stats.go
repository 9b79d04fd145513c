package scoring

import (
	"strings"

	"github.com/Howie-0721/ICR-Identification-tool/pkg/config"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/dataset"
)

// FileStats holds the per-row accuracy counters of one scored record.
type FileStats struct {
	FileName     string
	Correct      int
	Expected     int
	ModelOutput  int
	Compared     int
	Precision    float64
	Recall       float64
	F1           float64
	ItemAccuracy float64
}

// Summary aggregates the whole run for the report sheet. Character level
// accuracy is not measured, the field stays zero.
type Summary struct {
	TotalRecords    int
	Perfect         int
	PerfectRate     float64
	AvgPrecision    float64
	AvgRecall       float64
	AvgF1           float64
	AvgItemAccuracy float64
	AvgCharAccuracy float64
}

// FieldAnalysis breaks the result down per document field.
type FieldAnalysis struct {
	Field     string
	Total     int
	Correct   int
	Partial   int
	Wrong     int
	Missing   int
	Extra     int
	Accuracy  float64
	ErrorRate float64
	Mode      string
}

// AnalysisMode labels the comparison strictness in the analyze sheet.
const AnalysisMode = "嚴謹"

// statFields returns the document fields that carry recognition content,
// skipping the identity and type columns.
func statFields(doc config.DocType) []string {
	excluded := map[string]bool{
		dataset.ColSequence: true,
		dataset.ColFileName: true,
		dataset.ColARCType:  true,
		dataset.ColDocType:  true,
	}
	fields := make([]string, 0, len(doc.Fields))
	for _, field := range doc.Fields {
		if !excluded[field] {
			fields = append(fields, field)
		}
	}
	return fields
}

// ComputeFileStats derives the per-row counters and rates from the scored
// rows. Rows without a matching answer row are skipped.
func ComputeFileStats(scored, answers []map[string]string, doc config.DocType) []FileStats {
	answerDict := answersByFile(answers)
	fields := statFields(doc)

	stats := make([]FileStats, 0, len(scored))
	for _, row := range scored {
		fileName := strings.TrimSpace(row[dataset.ColFileName])
		answerRow, ok := answerDict[fileName]
		if fileName == "" || !ok {
			continue
		}

		entry := FileStats{FileName: fileName}
		for _, field := range fields {
			expected := strings.TrimSpace(answerRow[field])
			model := strippedValue(row[field])
			hasModel := isModelValue(model)

			if expected != "" {
				entry.Expected++
			}
			if hasModel {
				entry.ModelOutput++
			}
			if expected != "" && hasModel {
				entry.Compared++
				if row[dataset.AnswerColumn(field)] == Pass {
					entry.Correct++
				}
			}
		}

		entry.Precision = ratio(entry.Correct, entry.ModelOutput)
		entry.Recall = ratio(entry.Correct, entry.Expected)
		if entry.Precision+entry.Recall > 0 {
			entry.F1 = 2 * entry.Precision * entry.Recall / (entry.Precision + entry.Recall)
		}
		entry.ItemAccuracy = ratio(entry.Correct, entry.Compared)
		stats = append(stats, entry)
	}
	return stats
}

// Summarize folds the per-row stats into run totals. Averages divide by the
// scored record count.
func Summarize(scored []map[string]string, stats []FileStats) Summary {
	summary := Summary{TotalRecords: len(scored)}
	for _, row := range scored {
		if row[dataset.ColVerdict] == Pass {
			summary.Perfect++
		}
	}
	if summary.TotalRecords == 0 {
		return summary
	}
	summary.PerfectRate = float64(summary.Perfect) / float64(summary.TotalRecords) * 100

	var precision, recall, f1, itemAccuracy float64
	for _, entry := range stats {
		precision += entry.Precision
		recall += entry.Recall
		f1 += entry.F1
		itemAccuracy += entry.ItemAccuracy
	}
	total := float64(summary.TotalRecords)
	summary.AvgPrecision = precision / total
	summary.AvgRecall = recall / total
	summary.AvgF1 = f1 / total
	summary.AvgItemAccuracy = itemAccuracy / total
	return summary
}

// AnalyzeFields breaks the scored rows down per field. Wrong counts every
// failed verdict, while correct, missing and extra are judged against the
// answer rows. Fields without any expected value are left out.
func AnalyzeFields(scored, answers []map[string]string, doc config.DocType) []FieldAnalysis {
	answerDict := answersByFile(answers)

	var analyses []FieldAnalysis
	for _, field := range statFields(doc) {
		total := 0
		for _, answer := range answers {
			if strings.TrimSpace(answer[field]) != "" {
				total++
			}
		}
		if total == 0 {
			continue
		}

		analysis := FieldAnalysis{Field: field, Total: total, Mode: AnalysisMode}
		for _, row := range scored {
			if row[dataset.AnswerColumn(field)] == Fail {
				analysis.Wrong++
			}

			fileName := strings.TrimSpace(row[dataset.ColFileName])
			answerRow, ok := answerDict[fileName]
			if !ok {
				continue
			}

			expected := strings.TrimSpace(answerRow[field])
			model := strippedValue(row[field])
			hasModel := isModelValue(model)

			if expected != "" && row[dataset.AnswerColumn(field)] == Pass {
				analysis.Correct++
			}
			if expected != "" && !hasModel {
				analysis.Missing++
			}
			if expected == "" && hasModel {
				analysis.Extra++
			}
		}

		analysis.Accuracy = ratio(analysis.Correct, analysis.Total) * 100
		analysis.ErrorRate = ratio(analysis.Wrong, analysis.Total) * 100
		analyses = append(analyses, analysis)
	}
	return analyses
}

func answersByFile(answers []map[string]string) map[string]map[string]string {
	dict := make(map[string]map[string]string, len(answers))
	for _, answer := range answers {
		if name := strings.TrimSpace(answer[dataset.ColFileName]); name != "" {
			dict[name] = answer
		}
	}
	return dict
}

func ratio(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}
