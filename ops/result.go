package ops

// Reasons reported for addresses that fail validation.
const (
	ReasonInvalidFormat = "Invalid email format"
	ReasonLength        = "Email length validation failed"
	ReasonDisposable    = "Disposable email detected"
	ReasonSuppressed    = "Suppressed email address"
	ReasonNoMxRecords   = "No MX records found"

	verificationErrorPrefix = "Verification error: "
)

// ValidationResult is the verdict for a single candidate address.
//
// Reason is nil for valid addresses, which encodes as a JSON null.
type ValidationResult struct {
	Email  string  `json:"email"`
	Valid  bool    `json:"valid"`
	Reason *string `json:"reason"`
}

func Valid(email string) ValidationResult {
	return ValidationResult{Email: email, Valid: true}
}

func Invalid(email, reason string) ValidationResult {
	return ValidationResult{Email: email, Reason: &reason}
}

// VerificationError produces the result for an address whose checks failed
// unexpectedly, so that one bad candidate never fails the entire batch.
func VerificationError(email string, err error) ValidationResult {
	msg := "Unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Invalid(email, verificationErrorPrefix+msg)
}

// ReasonString returns the reason, or the empty string if there isn't one.
func (r ValidationResult) ReasonString() string {
	if r.Reason == nil {
		return ""
	}
	return *r.Reason
}
