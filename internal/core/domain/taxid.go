package domain

import (
	"regexp"
	"strings"
)

const taxIDDigits = 11

var canonicalTaxID = regexp.MustCompile(`^\d{2}-\d{8}-\d$`)

// NormalizeTaxID accepts a CUIT with or without separators and returns the
// canonical NN-NNNNNNNN-N form.
func NormalizeTaxID(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '-' || r == '.' || r == ' ' || r == '/':
		default:
			return "", &ValidationError{Field: "tax id", Value: raw, Reason: "unexpected character " + string(r)}
		}
	}
	d := digits.String()
	if len(d) != taxIDDigits {
		return "", &ValidationError{Field: "tax id", Value: raw, Reason: "must have 11 digits"}
	}
	return d[:2] + "-" + d[2:10] + "-" + d[10:], nil
}

// ParseTaxID accepts only the canonical NN-NNNNNNNN-N form. Extraction entry
// points use it so that a malformed id never reaches the registry.
func ParseTaxID(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if !canonicalTaxID.MatchString(s) {
		return "", &ValidationError{Field: "tax id", Value: raw, Reason: "expected format NN-NNNNNNNN-N"}
	}
	return s, nil
}
