package email

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/mbland/emailcheck/ops"
)

// Limits on address part lengths, in characters.
const (
	MaxLocalPartLength   = 64
	MaxDomainLength      = 255
	MaxDomainLabelLength = 63
)

var formatValidator = validator.New()

// Validator is the production implementation of ops.AddressVerifier.
//
// Disposable is required. Suppressor and MxChecker are optional; the
// corresponding checks are skipped when they're nil.
type Validator struct {
	Disposable DisposableDomains
	Suppressor Suppressor
	MxChecker  *MxChecker
	Log        *log.Logger
}

// Verify runs each check in order, returning the result from the first one
// that fails, or a valid result if all of them pass.
//
// The checks are:
//
//   - The address matches the email grammar of
//     [github.com/go-playground/validator/v10]
//   - The local part is at most 64 characters, the domain at most 255, and
//     every domain label at most 63
//   - The domain isn't in the disposable domain set
//   - The address isn't on the SES account-level suppression list, if a
//     Suppressor is configured
//   - The domain has at least one usable MX record, if an MxChecker is
//     configured
//
// Verify never panics. An unexpected failure in any check produces an invalid
// result with a "Verification error" reason instead.
func (v *Validator) Verify(
	ctx context.Context, address string,
) (result ops.ValidationResult) {
	stage := FormatCheck

	defer func() {
		if r := recover(); r != nil {
			result = v.verificationError(address, stage, fmt.Errorf("%v", r))
		}
	}()

	if !hasValidFormat(address) {
		return ops.Invalid(address, ops.ReasonInvalidFormat)
	}

	// The format check guarantees an "@", but a missing one must never reach
	// the domain checks below.
	local, domain, ok := splitAddress(address)
	if !ok {
		return ops.Invalid(address, ops.ReasonInvalidFormat)
	}

	if stage = LengthCheck; !hasValidLength(local, domain) {
		return ops.Invalid(address, ops.ReasonLength)
	}

	domain = strings.ToLower(domain)
	if stage = DisposableCheck; v.Disposable.Contains(domain) {
		return ops.Invalid(address, ops.ReasonDisposable)
	}

	if v.Suppressor != nil {
		stage = SuppressionCheck
		suppressed, err := v.Suppressor.IsSuppressed(ctx, address)
		if err != nil {
			return v.verificationError(address, stage, err)
		} else if suppressed {
			return ops.Invalid(address, ops.ReasonSuppressed)
		}
	}

	if v.MxChecker != nil {
		stage = MxCheck
		if ok, err := v.MxChecker.HasMailHosts(ctx, domain); err != nil {
			return v.verificationError(address, stage, err)
		} else if !ok {
			return ops.Invalid(address, ops.ReasonNoMxRecords)
		}
	}
	return ops.Valid(address)
}

func (v *Validator) verificationError(
	address string, stage Stage, err error,
) ops.ValidationResult {
	v.Log.Printf("ERROR: %s failed for %s: %s", stage, address, err)
	return ops.VerificationError(address, err)
}

func hasValidFormat(address string) bool {
	return formatValidator.Var(address, "email") == nil
}

// splitAddress splits on the last "@", since a quoted local part may itself
// contain one.
func splitAddress(address string) (local, domain string, ok bool) {
	i := strings.LastIndexByte(address, '@')
	if i < 0 {
		return "", "", false
	}
	return address[:i], address[i+1:], true
}

func hasValidLength(local, domain string) bool {
	if utf8.RuneCountInString(local) > MaxLocalPartLength ||
		utf8.RuneCountInString(domain) > MaxDomainLength {
		return false
	}
	for _, label := range strings.Split(domain, ".") {
		if utf8.RuneCountInString(label) > MaxDomainLabelLength {
			return false
		}
	}
	return true
}
