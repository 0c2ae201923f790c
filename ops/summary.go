package ops

import "strings"

// EmailOnly is a ValidationResult projected to its address.
type EmailOnly struct {
	Email string `json:"email"`
}

// ValidationSummary aggregates the results for one batch of candidates.
//
// ValidEmails and InvalidEmails partition Results, each preserving the
// original candidate order. ValidEmailsList mirrors ValidEmails.
type ValidationSummary struct {
	Total           int                `json:"total"`
	Valid           int                `json:"valid"`
	Invalid         int                `json:"invalid"`
	ValidEmails     []ValidationResult `json:"validEmails"`
	InvalidEmails   []ValidationResult `json:"invalidEmails"`
	ValidEmailsList []EmailOnly        `json:"validEmailsList"`
	Results         []ValidationResult `json:"results"`
}

// Summarize counts and partitions results without modifying them.
func Summarize(results []ValidationResult) *ValidationSummary {
	s := &ValidationSummary{
		Total:           len(results),
		ValidEmails:     []ValidationResult{},
		InvalidEmails:   []ValidationResult{},
		ValidEmailsList: []EmailOnly{},
		Results:         make([]ValidationResult, len(results)),
	}
	copy(s.Results, results)

	for _, r := range s.Results {
		if r.Valid {
			s.ValidEmails = append(s.ValidEmails, r)
			s.ValidEmailsList = append(s.ValidEmailsList, EmailOnly{r.Email})
		} else {
			s.InvalidEmails = append(s.InvalidEmails, r)
		}
	}
	s.Valid = len(s.ValidEmails)
	s.Invalid = len(s.InvalidEmails)
	return s
}

// CountByReason tallies results by reason, using "valid" for valid results.
//
// All verification errors share one key regardless of their messages.
func (s *ValidationSummary) CountByReason() map[string]int {
	counts := map[string]int{}

	for _, r := range s.Results {
		reason := r.ReasonString()

		if r.Valid {
			reason = "valid"
		} else if strings.HasPrefix(reason, verificationErrorPrefix) {
			reason = strings.TrimSuffix(verificationErrorPrefix, ": ")
		}
		counts[reason]++
	}
	return counts
}
