package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Howie-0721/ICR-Identification-tool/pkg/config"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/log"
)

// AnswerFormat controls how list-valued employment fields appear in the
// Result sheet.
type AnswerFormat string

const (
	// FormatMultiline expands every list element into its own row.
	FormatMultiline AnswerFormat = "multiline"
	// FormatList keeps one row per document with JSON-array cell values.
	FormatList AnswerFormat = "list"
)

// ParseAnswerFormat validates a CLI value; the empty string selects the
// multiline default.
func ParseAnswerFormat(value string) (AnswerFormat, error) {
	switch AnswerFormat(value) {
	case "", FormatMultiline:
		return FormatMultiline, nil
	case FormatList:
		return FormatList, nil
	}
	return "", fmt.Errorf("unknown answer format '%s', expected %s or %s", value, FormatMultiline, FormatList)
}

// Employment report columns, also the keys of the llm_output JSON.
const (
	fieldApprovalNo  = "聘可函號"
	fieldSendDate    = "聘可發文日"
	fieldReceiveDate = "聘可收文日"
	fieldEmployer    = "雇主名稱"
	fieldNumber      = "編號"
	fieldPassport    = "護照號碼"
	fieldWorkStart   = "工作起日"
	fieldWorkEnd     = "工作迄日"
)

var employmentListFields = []string{fieldNumber, fieldPassport, fieldWorkStart, fieldWorkEnd}

// llmResult is one document's recognition output parsed from
// document_master.llm_output.
type llmResult struct {
	approvalNo  string
	sendDate    string
	receiveDate string
	employer    string
	numbers     []string
	passports   []string
	workStarts  []string
	workEnds    []string
}

func (r llmResult) maxListLen() int {
	n := len(r.numbers)
	for _, l := range [][]string{r.passports, r.workStarts, r.workEnds} {
		if len(l) > n {
			n = len(l)
		}
	}
	return n
}

func parseLLMOutput(raw string) (*llmResult, error) {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, err
	}
	return &llmResult{
		approvalNo:  scalarValue(data[fieldApprovalNo]),
		sendDate:    scalarValue(data[fieldSendDate]),
		receiveDate: scalarValue(data[fieldReceiveDate]),
		employer:    scalarValue(data[fieldEmployer]),
		numbers:     listValue(data[fieldNumber]),
		passports:   listValue(data[fieldPassport]),
		workStarts:  listValue(data[fieldWorkStart]),
		workEnds:    listValue(data[fieldWorkEnd]),
	}, nil
}

// MergeEmployment builds scored-ready rows for the employment type. The
// recognition output comes from llm_output; the matching answer rows are
// embedded as verdict-input columns so the scorer compares index-aligned
// list elements. Documents without parseable output are skipped, mirroring
// the answer-driven row selection of the standard types.
func MergeEmployment(doc config.DocType, master, answers []map[string]string, format AnswerFormat) ([]map[string]string, error) {
	matching := newestRows(master, len(answers))
	if err := checkFilenames(matching, answers); err != nil {
		return nil, err
	}

	answersByFile := make(map[string][]map[string]string)
	for _, row := range answers {
		if name := row[ColFileName]; name != "" {
			answersByFile[name] = append(answersByFile[name], row)
		}
	}

	var output []map[string]string
	for _, row := range matching {
		raw := row[masterLLMOutput]
		if raw == "" {
			continue
		}
		result, err := parseLLMOutput(raw)
		if err != nil {
			log.Entry().WithError(err).Warnf("unparseable llm_output for %s, skipping", row[masterFileName])
			continue
		}

		fileName := row[masterFileName]
		answer := collectEmploymentAnswer(answersByFile[fileName])

		if dbLen, ansLen := result.maxListLen(), answer.maxListLen(); dbLen > 0 && ansLen > 0 && dbLen != ansLen {
			log.Entry().Warnf("list length mismatch for %s: recognition %d vs answer %d", fileName, dbLen, ansLen)
		}

		base := map[string]string{
			ColFileName: fileName,
			ColDocType:  row[masterDocType],
		}
		output = append(output, expandEmployment(base, result, &answer, format)...)
	}

	sortByFileNameAndNumber(output)
	return output, nil
}

// MergeEmploymentNoAnswer renders every exported master row; documents
// without usable llm_output become blank records instead of being dropped.
func MergeEmploymentNoAnswer(master []map[string]string, format AnswerFormat) []map[string]string {
	var output []map[string]string
	for _, row := range master {
		base := map[string]string{
			ColFileName: row[masterFileName],
			ColDocType:  row[masterDocType],
		}

		raw := row[masterLLMOutput]
		if raw == "" {
			output = append(output, blankEmploymentRow(base))
			continue
		}
		result, err := parseLLMOutput(raw)
		if err != nil {
			log.Entry().WithError(err).Warnf("unparseable llm_output for %s", row[masterFileName])
			output = append(output, blankEmploymentRow(base))
			continue
		}

		output = append(output, expandEmployment(base, result, nil, format)...)
	}

	sortByFileNameAndNumber(output)
	return output
}

// collectEmploymentAnswer normalizes the answer rows of one file into list
// form. Multiple rows mean the workbook is already expanded (one list element
// per row); a single row may carry JSON arrays in its list cells.
func collectEmploymentAnswer(rows []map[string]string) llmResult {
	answer := llmResult{}
	switch {
	case len(rows) > 1:
		for _, row := range rows {
			answer.numbers = append(answer.numbers, row[fieldNumber])
			answer.passports = append(answer.passports, row[fieldPassport])
			answer.workStarts = append(answer.workStarts, row[fieldWorkStart])
			answer.workEnds = append(answer.workEnds, row[fieldWorkEnd])
		}
		answer.approvalNo = rows[0][fieldApprovalNo]
		answer.sendDate = rows[0][fieldSendDate]
		answer.receiveDate = rows[0][fieldReceiveDate]
		answer.employer = rows[0][fieldEmployer]
	case len(rows) == 1:
		answer.numbers = stringList(rows[0][fieldNumber])
		answer.passports = stringList(rows[0][fieldPassport])
		answer.workStarts = stringList(rows[0][fieldWorkStart])
		answer.workEnds = stringList(rows[0][fieldWorkEnd])
		answer.approvalNo = rows[0][fieldApprovalNo]
		answer.sendDate = rows[0][fieldSendDate]
		answer.receiveDate = rows[0][fieldReceiveDate]
		answer.employer = rows[0][fieldEmployer]
	}
	return answer
}

// expandEmployment renders one document's result (and optionally its answer)
// into output rows according to the answer format.
func expandEmployment(base map[string]string, result *llmResult, answer *llmResult, format AnswerFormat) []map[string]string {
	if format == FormatList {
		row := cloneRow(base)
		row[fieldEmployer] = result.employer
		row[fieldApprovalNo] = result.approvalNo
		row[fieldSendDate] = result.sendDate
		row[fieldReceiveDate] = result.receiveDate
		row[fieldNumber] = marshalList(result.numbers)
		row[fieldPassport] = marshalList(result.passports)
		row[fieldWorkStart] = marshalList(result.workStarts)
		row[fieldWorkEnd] = marshalList(result.workEnds)
		if answer != nil {
			embedScalarAnswers(row, answer)
			row[AnswerColumn(fieldNumber)] = marshalList(answer.numbers)
			row[AnswerColumn(fieldPassport)] = marshalList(answer.passports)
			row[AnswerColumn(fieldWorkStart)] = marshalList(answer.workStarts)
			row[AnswerColumn(fieldWorkEnd)] = marshalList(answer.workEnds)
		}
		return []map[string]string{row}
	}

	maxLen := result.maxListLen()
	if answer != nil && answer.maxListLen() > maxLen {
		maxLen = answer.maxListLen()
	}
	if maxLen == 0 {
		row := cloneRow(base)
		row[fieldEmployer] = result.employer
		row[fieldApprovalNo] = result.approvalNo
		row[fieldSendDate] = result.sendDate
		row[fieldReceiveDate] = result.receiveDate
		for _, field := range employmentListFields {
			row[field] = ""
		}
		if answer != nil {
			embedScalarAnswers(row, answer)
			for _, field := range employmentListFields {
				row[AnswerColumn(field)] = ""
			}
		}
		return []map[string]string{row}
	}

	rows := make([]map[string]string, 0, maxLen)
	for i := 0; i < maxLen; i++ {
		row := cloneRow(base)
		row[fieldEmployer] = result.employer
		row[fieldApprovalNo] = result.approvalNo
		row[fieldSendDate] = result.sendDate
		row[fieldReceiveDate] = result.receiveDate
		row[fieldNumber] = listElement(result.numbers, i)
		row[fieldPassport] = listElement(result.passports, i)
		row[fieldWorkStart] = listElement(result.workStarts, i)
		row[fieldWorkEnd] = listElement(result.workEnds, i)
		if answer != nil {
			embedScalarAnswers(row, answer)
			row[AnswerColumn(fieldNumber)] = listElement(answer.numbers, i)
			row[AnswerColumn(fieldPassport)] = listElement(answer.passports, i)
			row[AnswerColumn(fieldWorkStart)] = listElement(answer.workStarts, i)
			row[AnswerColumn(fieldWorkEnd)] = listElement(answer.workEnds, i)
		}
		rows = append(rows, row)
	}
	return rows
}

func embedScalarAnswers(row map[string]string, answer *llmResult) {
	row[AnswerColumn(fieldEmployer)] = answer.employer
	row[AnswerColumn(fieldApprovalNo)] = answer.approvalNo
	row[AnswerColumn(fieldSendDate)] = answer.sendDate
	row[AnswerColumn(fieldReceiveDate)] = answer.receiveDate
}

func blankEmploymentRow(base map[string]string) map[string]string {
	row := cloneRow(base)
	for _, field := range []string{fieldEmployer, fieldApprovalNo, fieldSendDate, fieldReceiveDate} {
		row[field] = ""
	}
	for _, field := range employmentListFields {
		row[field] = ""
	}
	return row
}

func cloneRow(row map[string]string) map[string]string {
	clone := make(map[string]string, len(row)+12)
	for k, v := range row {
		clone[k] = v
	}
	return clone
}

func listElement(list []string, i int) string {
	if i < len(list) {
		return list[i]
	}
	return ""
}

func marshalList(list []string) string {
	if len(list) == 0 {
		return ""
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return strings.Join(list, ",")
	}
	return string(raw)
}

// scalarValue renders a decoded JSON value as a comparable string. Integral
// floats lose their trailing ".0" so they compare equal to workbook cells.
func scalarValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// listValue coerces a decoded JSON value into a string list: arrays map
// element-wise, strings may contain a JSON array, and any other non-empty
// scalar becomes a single-element list.
func listValue(value interface{}) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case []interface{}:
		list := make([]string, 0, len(v))
		for _, element := range v {
			list = append(list, scalarValue(element))
		}
		return list
	case string:
		return stringList(v)
	default:
		return []string{scalarValue(v)}
	}
}

// stringList parses a cell value that may hold a JSON array.
func stringList(value string) []string {
	if value == "" {
		return nil
	}
	var parsed []interface{}
	if err := json.Unmarshal([]byte(value), &parsed); err == nil {
		list := make([]string, 0, len(parsed))
		for _, element := range parsed {
			list = append(list, scalarValue(element))
		}
		return list
	}
	return []string{value}
}
