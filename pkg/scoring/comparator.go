// Package scoring compares recognition output against ground-truth answers
// and computes the accuracy metrics of a test run.
package scoring

import "strings"

// Verdict values written into the per-field answer columns.
const (
	Pass = "PASS"
	Fail = "FAIL"
)

// notAvailable marks cells where the model produced no value.
const notAvailable = "N/A"

// FieldComparison is the outcome of comparing one field of one document.
type FieldComparison struct {
	Match bool
	// Display is the cell value for the Result sheet; mismatches carry the
	// expected value in parentheses.
	Display string
	Verdict string
}

// CompareField applies the scoring rules to a single field value:
//   - both sides empty count as a pass and display N/A
//   - the document type field is compared against the expected type value
//     and never rewritten
//   - an empty actual value against a non-empty answer displays N/A(answer)
//   - a mismatch displays actual(answer)
func CompareField(actual, expected string, isTypeField bool, typeValue string) FieldComparison {
	actual = strings.TrimSpace(actual)
	expected = strings.TrimSpace(expected)

	if actual == "" && expected == "" {
		return FieldComparison{Match: true, Display: notAvailable, Verdict: Pass}
	}

	if isTypeField {
		if actual == typeValue {
			return FieldComparison{Match: true, Display: actual, Verdict: Pass}
		}
		return FieldComparison{Match: false, Display: actual, Verdict: Fail}
	}

	if actual == "" {
		return FieldComparison{Match: false, Display: notAvailable + "(" + expected + ")", Verdict: Fail}
	}
	if actual == expected {
		return FieldComparison{Match: true, Display: actual, Verdict: Pass}
	}
	return FieldComparison{Match: false, Display: actual + "(" + expected + ")", Verdict: Fail}
}

// strippedValue removes the appended expected value from a display cell,
// returning what the model actually produced.
func strippedValue(display string) string {
	if open := strings.Index(display, "("); open >= 0 && strings.Contains(display, ")") {
		return strings.TrimSpace(display[:open])
	}
	return strings.TrimSpace(display)
}

// isModelValue reports whether a stripped display cell carries an actual
// model output.
func isModelValue(value string) bool {
	return value != "" && !strings.EqualFold(value, notAvailable)
}
