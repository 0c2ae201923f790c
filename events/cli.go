package events

import "github.com/mbland/emailcheck/ops"

type CommandLineEventType string

const CommandLineCheckEvent = CommandLineEventType("Check")

type CommandLineEvent struct {
	EmailCheckCommand CommandLineEventType `json:"emailcheckCommand"`
	Check             *CheckEvent          `json:"check,omitempty"`
}

// CheckEvent carries raw upload content, which is split into candidate
// addresses the same way as an uploaded file.
type CheckEvent struct {
	Content string `json:"content"`
}

type CheckResponse struct {
	Success bool                   `json:"success"`
	Summary *ops.ValidationSummary `json:"summary,omitempty"`
	Details string                 `json:"details,omitempty"`
}
