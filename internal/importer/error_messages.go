package importer

// # Error Codes Reference
//
// Import failures are reported to users with a short message, a suggested
// action and a code they can quote to support.
//
// # CSV Errors (CSV001-CSV099)
//
//	CSV001 - Invalid column mapping: first row has no usable coordinates
//	         Action: Add a header row (name, lat, lon, ...) or put lat/lon in columns 2 and 3
//	CSV002 - Too many fields: a row has more columns than the header
//	         Action: Quote values that contain commas
//	CSV003 - Malformed CSV: the file could not be tokenized
//	         Action: Check for unbalanced quotes
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE004 - No file provided
//
// # Import Errors (UPL001-UPL099)
//
//	UPL002 - Too many imports in progress
//	UPL004 - Request cancelled
//	UPL005 - Request timed out
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the logs for the technical error.
//
// Sentinel errors are matched with errors.Is first. Remaining errors are
// matched case-insensitively against errorPatterns; the first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/tripimport/internal/tripcsv"
)

// ErrNoFile is returned by the HTTP layer when a request carries no CSV.
var ErrNoFile = errors.New("no file provided")

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgInvalidColumnMapping = UserMessage{
		Message: "The first row does not look like a trip header or a stop",
		Action:  "Add a header row (name, lat, lon, ...) or put latitude and longitude in columns 2 and 3",
		Code:    "CSV001",
	}
	msgTooManyFields = UserMessage{
		Message: "A row has more columns than the header",
		Action:  "Quote values that contain commas",
		Code:    "CSV002",
	}
	msgMalformed = UserMessage{
		Message: "The file is not valid CSV",
		Action:  "Check for unbalanced quotes",
		Code:    "CSV003",
	}
	msgFileTooLarge = UserMessage{
		Message: "File exceeds maximum size limit",
		Action:  "Split the trip into smaller files",
		Code:    "FILE001",
	}
	msgNoFile = UserMessage{
		Message: "No file was provided",
		Action:  "Please select a CSV file to import",
		Code:    "FILE004",
	}
	msgTooManyImports = UserMessage{
		Message: "System is busy processing other imports",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}
	msgTimeout = UserMessage{
		Message: "Request timed out",
		Action:  "Try importing a smaller file",
		Code:    "UPL005",
	}
)

// sentinels is checked in order with errors.Is.
var sentinels = []struct {
	err error
	msg UserMessage
}{
	{tripcsv.ErrInvalidColumnMapping, msgInvalidColumnMapping},
	{tripcsv.ErrTooManyFields, msgTooManyFields},
	{tripcsv.ErrSourceMalformed, msgMalformed},
	{ErrFileTooLarge, msgFileTooLarge},
	{ErrNoFile, msgNoFile},
	{ErrTooManyImports, msgTooManyImports},
	{context.DeadlineExceeded, msgTimeout},
	{context.Canceled, msgCancelled},
}

// errorPattern maps a substring of an error message to a user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns covers errors that lost their chain, such as those coming
// back from the multipart reader or http.MaxBytesReader.
var errorPatterns = []errorPattern{
	{pattern: "request body too large", msg: msgFileTooLarge},
	{pattern: "file too large", msg: msgFileTooLarge},
	{pattern: "no file provided", msg: msgNoFile},
	{pattern: "too many concurrent imports", msg: msgTooManyImports},
	{pattern: "context deadline exceeded", msg: msgTimeout},
	{pattern: "context canceled", msg: msgCancelled},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an import error to a user-friendly message. A nil error
// maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
