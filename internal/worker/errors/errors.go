package workererrors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/adcondev/ticket-bridge/internal/dispatch"
	"github.com/adcondev/ticket-bridge/internal/printer"
	"github.com/adcondev/ticket-bridge/internal/printjobs"
)

// ExtractUserFriendlyError creates a clean error message for the UI
func ExtractUserFriendlyError(err error) string {
	if err == nil {
		return ""
	}
	if msg, ok := classify(err); ok {
		return msg
	}

	errStr := err.Error()

	// Common error patterns and their friendly messages
	errorMappings := []struct {
		pattern string
		message string
	}{
		{"error conectando a impresora", "PRINTER: Cannot connect - check that the printer is on and in range"},
		{"bluetooth", "PRINTER: Bluetooth is not available on this system"},
		{"rfcomm", "PRINTER: No paired serial printer port found"},
		{"failed to open logo", "IMAGE: Logo file not found or unreadable"},
		{"failed to decode logo", "IMAGE: Logo is not a PNG, JPEG or GIF image"},
		{"logo image is empty", "IMAGE: Logo has no printable pixels"},
	}

	// Check for matching patterns
	for _, mapping := range errorMappings {
		if strings.Contains(strings.ToLower(errStr), strings.ToLower(mapping.pattern)) {
			return mapping.message
		}
	}

	// Categorize by error source
	if strings.Contains(errStr, "documento inválido") {
		return fmt.Sprintf("VALIDATION: %s", extractInnerError(errStr))
	}
	if strings.Contains(errStr, "error parseando") {
		return "JSON: Invalid document structure"
	}
	if strings.Contains(errStr, "error ejecutando") {
		return fmt.Sprintf("EXECUTION: %s", extractInnerError(errStr))
	}

	// Fallback:  return cleaned error
	return fmt.Sprintf("ERROR: %s", cleanErrorMessage(errStr))
}

// classify maps typed errors from the printer, dispatch and backend layers.
func classify(err error) (string, bool) {
	var (
		dispatchErr  *dispatch.DispatchError
		writeErr     *printer.WriteError
		transportErr *printer.UnsupportedTransportError
		apiErr       *printjobs.APIError
		invalid      validator.ValidationErrors
	)

	switch {
	case errors.As(err, &dispatchErr):
		if errors.Is(err, dispatch.ErrNoBackend) {
			return "QUEUE: Printer offline and no backend queue configured", true
		}
		return "QUEUE: Printer offline and backend queue unreachable - retry", true
	case errors.Is(err, dispatch.ErrNoBackend):
		return "BACKEND: Print queue backend not configured", true
	case errors.As(err, &transportErr):
		return "PRINTER: Bluetooth is not available on this system", true
	case errors.Is(err, printer.ErrNotConnected):
		return "PRINTER: Not connected - connect a printer and retry", true
	case errors.Is(err, printer.ErrAlreadyConnected):
		return "PRINTER: Already connected - disconnect first", true
	case errors.Is(err, printer.ErrConnectAborted):
		return "PRINTER: Connection cancelled", true
	case errors.Is(err, printer.ErrNoDevice):
		return "PRINTER: No compatible printer found nearby", true
	case errors.Is(err, printer.ErrNoService), errors.Is(err, printer.ErrNoWritableCharacteristic):
		return "PRINTER: Device is not a supported printer", true
	case errors.As(err, &writeErr):
		return "PRINTER: Transmission failed - reconnect and retry", true
	case errors.As(err, &apiErr):
		if apiErr.Temporary() {
			return fmt.Sprintf("BACKEND: Service unavailable (%d) - retry later", apiErr.Status), true
		}
		return fmt.Sprintf("BACKEND: Request rejected (%d)", apiErr.Status), true
	case errors.As(err, &invalid) && len(invalid) > 0:
		fe := invalid[0]
		return fmt.Sprintf("VALIDATION: Field '%s' failed '%s'", fe.Namespace(), fe.Tag()), true
	case errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT: Operation took too long", true
	}
	return "", false
}

// extractInnerError gets the innermost error message
func extractInnerError(errStr string) string {
	// Find the last colon-separated segment
	parts := strings.Split(errStr, ": ")
	if len(parts) > 0 {
		return parts[len(parts)-1]
	}
	return errStr
}

// cleanErrorMessage removes verbose prefixes
func cleanErrorMessage(errStr string) string {
	// Remove common prefixes
	prefixes := []string{
		"error parseando documento: ",
		"documento inválido: ",
		"error ejecutando documento: ",
		"error imprimiendo recibo: ",
	}
	result := errStr
	for _, prefix := range prefixes {
		result = strings.TrimPrefix(result, prefix)
	}
	return result
}
