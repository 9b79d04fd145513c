package scoring

import (
	"strings"

	"github.com/Howie-0721/ICR-Identification-tool/pkg/config"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/dataset"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/log"
)

// Score compares merged recognition rows against the answer rows and rewrites
// each row in place: field cells get the compared display value, the per-field
// answer columns get a PASS or FAIL verdict, and the row gets an overall
// verdict. Rows that carry embedded answers use those; other rows are matched
// to an answer row by file name and are dropped when no answer exists.
func Score(rows, answers []map[string]string, doc config.DocType) []map[string]string {
	answerDict := make(map[string]map[string]string, len(answers))
	for _, answer := range answers {
		name := strings.TrimSpace(answer[dataset.ColFileName])
		if name != "" {
			answerDict[name] = answer
		}
	}

	typeField := typeFieldName(doc)

	scored := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		fileName := strings.TrimSpace(row[dataset.ColFileName])

		hasEmbedded := false
		for _, field := range doc.Fields {
			if _, ok := row[dataset.AnswerColumn(field)]; ok {
				hasEmbedded = true
				break
			}
		}

		answerRow, hasAnswer := answerDict[fileName]
		if !hasEmbedded && !hasAnswer {
			log.Entry().Warnf("no answer found for file %s, skipping row", fileName)
			continue
		}

		pass := true
		for _, field := range doc.Fields {
			expected := ""
			if hasEmbedded {
				expected = row[dataset.AnswerColumn(field)]
			} else {
				expected = answerRow[field]
			}

			cmp := CompareField(row[field], expected, field == typeField, doc.TypeValue)
			row[field] = cmp.Display
			row[dataset.AnswerColumn(field)] = cmp.Verdict
			if !cmp.Match {
				pass = false
			}
		}

		if pass {
			row[dataset.ColVerdict] = Pass
		} else {
			row[dataset.ColVerdict] = Fail
		}
		scored = append(scored, row)
	}
	return scored
}

func typeFieldName(doc config.DocType) string {
	for _, field := range doc.Fields {
		if field == dataset.ColARCType {
			return dataset.ColARCType
		}
	}
	return dataset.ColDocType
}
