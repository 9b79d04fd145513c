//go:build unit
// +build unit

package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Howie-0721/ICR-Identification-tool/pkg/config"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/dataset"
)

func healthDoc(t *testing.T) config.DocType {
	t.Helper()
	doc, err := config.DocTypeByKey("health")
	require.NoError(t, err)
	return doc
}

func TestCompareField(t *testing.T) {
	tt := []struct {
		name     string
		actual   string
		expected string
		typeF    bool
		result   FieldComparison
	}{
		{"both empty", "", "", false, FieldComparison{Match: true, Display: "N/A", Verdict: Pass}},
		{"equal", "P1234567", "P1234567", false, FieldComparison{Match: true, Display: "P1234567", Verdict: Pass}},
		{"mismatch", "P1234567", "P7654321", false, FieldComparison{Match: false, Display: "P1234567(P7654321)", Verdict: Fail}},
		{"missing actual", "", "P7654321", false, FieldComparison{Match: false, Display: "N/A(P7654321)", Verdict: Fail}},
		{"type match", "HEALTH_REPORT", "anything", true, FieldComparison{Match: true, Display: "HEALTH_REPORT", Verdict: Pass}},
		{"type mismatch keeps cell", "ARC", "anything", true, FieldComparison{Match: false, Display: "ARC", Verdict: Fail}},
		{"trims whitespace", " P1234567 ", "P1234567", false, FieldComparison{Match: true, Display: "P1234567", Verdict: Pass}},
	}
	for _, test := range tt {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.result, CompareField(test.actual, test.expected, test.typeF, "HEALTH_REPORT"))
		})
	}
}

func TestStrippedValue(t *testing.T) {
	assert.Equal(t, "P1234567", strippedValue("P1234567(P7654321)"))
	assert.Equal(t, "N/A", strippedValue("N/A(P7654321)"))
	assert.Equal(t, "P1234567", strippedValue("P1234567"))
	assert.False(t, isModelValue("N/A"))
	assert.False(t, isModelValue(""))
	assert.True(t, isModelValue("P1234567"))
}

func TestScore(t *testing.T) {
	doc := healthDoc(t)

	t.Run("matches rows against answer rows", func(t *testing.T) {
		rows := []map[string]string{{
			dataset.ColFileName: "h.jpg",
			dataset.ColDocType:  "HEALTH_REPORT",
			"護照號碼":              "P1234567",
			"體檢日期":              "112/03/01",
			"報告日期":              "",
			"是否合格":              "合格",
			"雇主名稱":              "",
		}}
		answers := []map[string]string{{
			dataset.ColFileName: "h.jpg",
			"護照號碼":              "P1234567",
			"體檢日期":              "112/03/02",
			"報告日期":              "112/03/05",
			"是否合格":              "合格",
		}}

		scored := Score(rows, answers, doc)
		require.Len(t, scored, 1)
		row := scored[0]

		assert.Equal(t, "P1234567", row["護照號碼"])
		assert.Equal(t, Pass, row[dataset.AnswerColumn("護照號碼")])
		assert.Equal(t, "112/03/01(112/03/02)", row["體檢日期"])
		assert.Equal(t, Fail, row[dataset.AnswerColumn("體檢日期")])
		assert.Equal(t, "N/A(112/03/05)", row["報告日期"])
		assert.Equal(t, "N/A", row["雇主名稱"])
		assert.Equal(t, Pass, row[dataset.AnswerColumn("雇主名稱")])
		assert.Equal(t, "HEALTH_REPORT", row[dataset.ColDocType])
		assert.Equal(t, Pass, row[dataset.AnswerColumn(dataset.ColDocType)])
		assert.Equal(t, Fail, row[dataset.ColVerdict])
	})

	t.Run("type field compares against the expected type value", func(t *testing.T) {
		rows := []map[string]string{{
			dataset.ColFileName: "h.jpg",
			dataset.ColDocType:  "ARC",
		}}
		answers := []map[string]string{{dataset.ColFileName: "h.jpg"}}

		scored := Score(rows, answers, doc)
		require.Len(t, scored, 1)
		assert.Equal(t, "ARC", scored[0][dataset.ColDocType])
		assert.Equal(t, Fail, scored[0][dataset.AnswerColumn(dataset.ColDocType)])
		assert.Equal(t, Fail, scored[0][dataset.ColVerdict])
	})

	t.Run("prefers embedded answers", func(t *testing.T) {
		rows := []map[string]string{{
			dataset.ColFileName:            "h.jpg",
			dataset.ColDocType:             "HEALTH_REPORT",
			"護照號碼":                         "P1234567",
			dataset.AnswerColumn("護照號碼"): "P7654321",
		}}
		answers := []map[string]string{{dataset.ColFileName: "h.jpg", "護照號碼": "P1234567"}}

		scored := Score(rows, answers, doc)
		require.Len(t, scored, 1)
		assert.Equal(t, "P1234567(P7654321)", scored[0]["護照號碼"])
		assert.Equal(t, Fail, scored[0][dataset.AnswerColumn("護照號碼")])
	})

	t.Run("drops rows without any answer", func(t *testing.T) {
		rows := []map[string]string{{dataset.ColFileName: "unknown.jpg", "護照號碼": "P1"}}

		scored := Score(rows, nil, doc)
		assert.Empty(t, scored)
	})

	t.Run("fully matching row passes", func(t *testing.T) {
		rows := []map[string]string{{
			dataset.ColFileName: "h.jpg",
			dataset.ColDocType:  "HEALTH_REPORT",
			"護照號碼":              "P1234567",
		}}
		answers := []map[string]string{{dataset.ColFileName: "h.jpg", "護照號碼": "P1234567"}}

		scored := Score(rows, answers, doc)
		require.Len(t, scored, 1)
		assert.Equal(t, Pass, scored[0][dataset.ColVerdict])
	})
}

func TestMatchFilenames(t *testing.T) {
	answers := []map[string]string{
		{dataset.ColFileName: "a.jpg"},
		{dataset.ColFileName: "b.jpg"},
	}

	t.Run("matching sets pass", func(t *testing.T) {
		err := MatchFilenames(answers, []string{"/tmp/stage/a.jpg", "/tmp/stage/b.jpg"})
		assert.NoError(t, err)
	})

	t.Run("mismatch is reported in both directions", func(t *testing.T) {
		err := MatchFilenames(answers, []string{"/tmp/stage/a.jpg", "/tmp/stage/c.jpg"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "files without answers: 1")
		assert.Contains(t, err.Error(), "answers without files: 1")
	})
}

func scoredHealthRows() ([]map[string]string, []map[string]string) {
	scored := []map[string]string{
		{
			dataset.ColFileName:                           "h1.jpg",
			dataset.ColDocType:                            "HEALTH_REPORT",
			"護照號碼":                                        "P1234567",
			dataset.AnswerColumn("護照號碼"):                "PASS",
			"體檢日期":                                        "112/03/01(112/03/02)",
			dataset.AnswerColumn("體檢日期"):                "FAIL",
			"報告日期":                                        "N/A(112/03/05)",
			dataset.AnswerColumn("報告日期"):                "FAIL",
			"是否合格":                                        "N/A",
			dataset.AnswerColumn("是否合格"):                "PASS",
			"雇主名稱":                                        "多出來的",
			dataset.AnswerColumn("雇主名稱"):                "FAIL",
			dataset.ColVerdict:                            "FAIL",
		},
		{
			dataset.ColFileName:                           "h2.jpg",
			dataset.ColDocType:                            "HEALTH_REPORT",
			"護照號碼":                                        "P7654321",
			dataset.AnswerColumn("護照號碼"):                "PASS",
			"體檢日期":                                        "N/A",
			dataset.AnswerColumn("體檢日期"):                "PASS",
			"報告日期":                                        "N/A",
			dataset.AnswerColumn("報告日期"):                "PASS",
			"是否合格":                                        "N/A",
			dataset.AnswerColumn("是否合格"):                "PASS",
			"雇主名稱":                                        "N/A",
			dataset.AnswerColumn("雇主名稱"):                "PASS",
			dataset.ColVerdict:                            "PASS",
		},
	}
	answers := []map[string]string{
		{dataset.ColFileName: "h1.jpg", "護照號碼": "P1234567", "體檢日期": "112/03/02", "報告日期": "112/03/05"},
		{dataset.ColFileName: "h2.jpg", "護照號碼": "P7654321"},
	}
	return scored, answers
}

func TestComputeFileStats(t *testing.T) {
	doc := healthDoc(t)
	scored, answers := scoredHealthRows()

	stats := ComputeFileStats(scored, answers, doc)
	require.Len(t, stats, 2)

	assert.Equal(t, "h1.jpg", stats[0].FileName)
	assert.Equal(t, 1, stats[0].Correct)
	assert.Equal(t, 3, stats[0].Expected)
	assert.Equal(t, 3, stats[0].ModelOutput)
	assert.Equal(t, 2, stats[0].Compared)
	assert.InDelta(t, 1.0/3.0, stats[0].Precision, 1e-9)
	assert.InDelta(t, 1.0/3.0, stats[0].Recall, 1e-9)
	assert.InDelta(t, 0.5, stats[0].ItemAccuracy, 1e-9)

	assert.Equal(t, "h2.jpg", stats[1].FileName)
	assert.Equal(t, 1, stats[1].Correct)
	assert.Equal(t, 1, stats[1].Expected)
	assert.Equal(t, 1, stats[1].ModelOutput)
	assert.InDelta(t, 1.0, stats[1].F1, 1e-9)
}

func TestSummarize(t *testing.T) {
	doc := healthDoc(t)
	scored, answers := scoredHealthRows()
	stats := ComputeFileStats(scored, answers, doc)

	summary := Summarize(scored, stats)
	assert.Equal(t, 2, summary.TotalRecords)
	assert.Equal(t, 1, summary.Perfect)
	assert.InDelta(t, 50.0, summary.PerfectRate, 1e-9)
	assert.InDelta(t, (1.0/3.0+1.0)/2, summary.AvgPrecision, 1e-9)
	assert.Zero(t, summary.AvgCharAccuracy)

	assert.Equal(t, Summary{}, Summarize(nil, nil))
}

func TestAnalyzeFields(t *testing.T) {
	doc := healthDoc(t)
	scored, answers := scoredHealthRows()

	analyses := AnalyzeFields(scored, answers, doc)
	byField := map[string]FieldAnalysis{}
	for _, analysis := range analyses {
		byField[analysis.Field] = analysis
	}

	passport := byField["護照號碼"]
	assert.Equal(t, 2, passport.Total)
	assert.Equal(t, 2, passport.Correct)
	assert.InDelta(t, 100.0, passport.Accuracy, 1e-9)
	assert.Equal(t, AnalysisMode, passport.Mode)

	exam := byField["體檢日期"]
	assert.Equal(t, 1, exam.Total)
	assert.Equal(t, 0, exam.Correct)
	assert.Equal(t, 1, exam.Wrong)
	assert.InDelta(t, 100.0, exam.ErrorRate, 1e-9)

	// a failed verdict counts as wrong even when the model produced nothing
	report := byField["報告日期"]
	assert.Equal(t, 1, report.Wrong)
	assert.Equal(t, 1, report.Missing)
	assert.InDelta(t, 100.0, report.ErrorRate, 1e-9)

	// no answer row has a value for 是否合格, the field is skipped
	_, ok := byField["是否合格"]
	assert.False(t, ok)

	// 雇主名稱 has no expected values either, extras alone do not surface it
	_, ok = byField["雇主名稱"]
	assert.False(t, ok)
}
