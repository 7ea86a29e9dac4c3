package session

import "regexp"

var (
	manualAuth1Pattern = regexp.MustCompile(`^\d{4,6}$`)
	manualAuth2Pattern = regexp.MustCompile(`^\d{4}$`)
)

// Policy lets an embedder decide whether terminal-driven prompts reach the
// user, and observe every routing decision after the fact. Every hook is
// optional; Coordinator falls back to the documented defaults when a
// hook is nil.
type Policy struct {
	// AllowManualAuthorization decides whether a manual-entry prompt
	// (result code 2003 or 2007) is presented to the user. Default: false.
	AllowManualAuthorization func(resultCode string) bool

	// AllowUserPrompt decides whether a confirmation-only prompt (2004,
	// 2005, 2006, 2012, 2022, or the synthetic retry code A000) is
	// presented to the user. Default: true.
	AllowUserPrompt func(resultCode string) bool

	// PostProcessUserPrompt is invoked after every prompt is routed,
	// whether or not it was shown, for logging/telemetry purposes.
	PostProcessUserPrompt func(resultCode string, shown bool)

	// ProvideManualAuthCode collects the operator-entered code for a
	// manual-entry prompt already approved by AllowManualAuthorization.
	// Returning ok=false (the default, when nil) aborts the transaction.
	ProvideManualAuthCode func(resultCode string) (code string, ok bool)

	// ConfirmPrompt collects the operator's yes/no answer to a
	// confirmation-only prompt already approved by AllowUserPrompt.
	// Returning false (the default, when nil) aborts the transaction, or
	// for result code 2022 rejects it.
	ConfirmPrompt func(resultCode, info string) bool
}

func (p Policy) allowManualAuthorization(resultCode string) bool {
	if p.AllowManualAuthorization == nil {
		return false
	}
	return p.AllowManualAuthorization(resultCode)
}

func (p Policy) allowUserPrompt(resultCode string) bool {
	if p.AllowUserPrompt == nil {
		return true
	}
	return p.AllowUserPrompt(resultCode)
}

func (p Policy) postProcessUserPrompt(resultCode string, shown bool) {
	if p.PostProcessUserPrompt != nil {
		p.PostProcessUserPrompt(resultCode, shown)
	}
}

func (p Policy) provideManualAuthCode(resultCode string) (string, bool) {
	if p.ProvideManualAuthCode == nil {
		return "", false
	}
	return p.ProvideManualAuthCode(resultCode)
}

func (p Policy) confirmPrompt(resultCode, info string) bool {
	if p.ConfirmPrompt == nil {
		return false
	}
	return p.ConfirmPrompt(resultCode, info)
}

// validateManualAuthCode reports whether code is well-formed for the given
// manual-entry result code.
func validateManualAuthCode(resultCode, code string) bool {
	switch resultCode {
	case "2003":
		return manualAuth1Pattern.MatchString(code)
	case "2007":
		return manualAuth2Pattern.MatchString(code)
	default:
		return false
	}
}
