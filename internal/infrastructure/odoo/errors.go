package odoo

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kolo/xmlrpc"
)

// Errors returned by the Odoo client. RPC faults are classified into one of
// these so callers can branch with errors.Is.
var (
	ErrAuthenticationFailed = errors.New("odoo: authentication failed")
	ErrRecordNotFound       = errors.New("odoo: record not found")
	ErrModelNotFound        = errors.New("odoo: model not found")
	ErrMethodNotFound       = errors.New("odoo: method not found")
	ErrAccessDenied         = errors.New("odoo: access denied")
	ErrValidation           = errors.New("odoo: validation error")
	ErrUserError            = errors.New("odoo: user error")
	ErrRPC                  = errors.New("odoo: rpc call failed")
	ErrInvalidResponse      = errors.New("odoo: invalid rpc response")
)

// FaultKind classifies an Odoo fault by the exception that raised it
type FaultKind string

const (
	FaultUnknown        FaultKind = "unknown"
	FaultAccess         FaultKind = "access"
	FaultValidation     FaultKind = "validation"
	FaultUser           FaultKind = "user"
	FaultMissing        FaultKind = "missing"
	FaultModelNotFound  FaultKind = "model_not_found"
	FaultMethodNotFound FaultKind = "method_not_found"
	FaultAccessDenied   FaultKind = "access_denied"
)

// RPCError is a structured XML-RPC fault returned by Odoo
type RPCError struct {
	Code    int
	Message string
	Kind    FaultKind
	Model   string
	Method  string
	Err     error
}

// Error implements the error interface
func (e *RPCError) Error() string {
	return fmt.Sprintf("odoo fault %d (%s) on %s.%s: %s", e.Code, e.Kind, e.Model, e.Method, e.Message)
}

// Unwrap maps the fault kind onto the package sentinels
func (e *RPCError) Unwrap() error {
	switch e.Kind {
	case FaultAccess, FaultAccessDenied:
		return ErrAccessDenied
	case FaultValidation:
		return ErrValidation
	case FaultUser:
		return ErrUserError
	case FaultMissing:
		return ErrRecordNotFound
	case FaultModelNotFound:
		return ErrModelNotFound
	case FaultMethodNotFound:
		return ErrMethodNotFound
	}
	if e.Err != nil {
		return e.Err
	}
	return ErrRPC
}

var (
	faultPattern      = regexp.MustCompile(`Fault\s*\(?(-?\d+)\)?:\s*'?([\s\S]*?)'?>?$`)
	exceptionPattern  = regexp.MustCompile(`odoo\.exceptions\.(\w+):\s*(.+)`)
	objectMissingExpr = regexp.MustCompile(`Object ([\w.]+) doesn't exist`)
)

// parseFault converts a transport error into a classified RPCError
func parseFault(model, method string, err error) error {
	if err == nil {
		return nil
	}

	code := 0
	message := err.Error()

	var fault xmlrpc.FaultError
	var faultPtr *xmlrpc.FaultError
	switch {
	case errors.As(err, &fault):
		code, message = fault.Code, fault.String
	case errors.As(err, &faultPtr):
		code, message = faultPtr.Code, faultPtr.String
	default:
		matches := faultPattern.FindStringSubmatch(message)
		if len(matches) == 3 {
			if c, cerr := strconv.Atoi(matches[1]); cerr == nil {
				code = c
			}
			message = matches[2]
		} else if !strings.Contains(message, "Fault") {
			return fmt.Errorf("%w: %s.%s: %v", ErrRPC, model, method, err)
		}
	}

	kind, clean := classifyFault(message)
	return &RPCError{
		Code:    code,
		Message: clean,
		Kind:    kind,
		Model:   model,
		Method:  method,
		Err:     err,
	}
}

// classifyFault inspects the faultString Odoo sends back. Odoo formats it as a
// Python traceback whose last line names the exception class.
func classifyFault(message string) (FaultKind, string) {
	if m := objectMissingExpr.FindStringSubmatch(message); m != nil {
		return FaultModelNotFound, fmt.Sprintf("Model %s not found", m[1])
	}
	if strings.Contains(message, "has no attribute") ||
		strings.Contains(message, "is not a valid action") ||
		strings.Contains(message, "does not exist on the model") {
		return FaultMethodNotFound, lastLine(message)
	}
	if strings.Contains(message, "Access Denied") {
		return FaultAccessDenied, "Access denied"
	}

	if m := exceptionPattern.FindStringSubmatch(message); m != nil {
		text := strings.TrimSpace(m[2])
		switch m[1] {
		case "AccessError":
			return FaultAccess, text
		case "ValidationError":
			return FaultValidation, text
		case "UserError", "RedirectWarning":
			return FaultUser, text
		case "MissingError":
			return FaultMissing, text
		}
		return FaultUnknown, text
	}
	// Plain faults (no traceback) come from the dispatcher itself, e.g. the
	// DB service raising on a bad master password.
	return FaultUnknown, lastLine(message)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

// IsRetryable reports whether err looks like a transient transport failure
func IsRetryable(err error) bool {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return false
	}
	return errors.Is(err, ErrRPC)
}
