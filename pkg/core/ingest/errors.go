package ingest

import (
	"context"
	"errors"
	"strings"

	"subsea_intel/pkg/core/llm"
	"subsea_intel/pkg/core/storage"
)

const maxErrorMessage = 500

// HumanError renders err as the single line stored in error_message.
func HumanError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, storage.ErrNotFound):
		return "The uploaded file could not be found in storage."
	case errors.Is(err, llm.ErrNoCredentials):
		return "AI extraction is not configured: no model API key is set."
	case errors.Is(err, ErrLegacyXLS):
		return "This workbook uses the old binary .xls format. Save it as .xlsx and upload again."
	case errors.Is(err, ErrUnsupportedFile):
		return "Unsupported file type. Upload .xlsx, .xls (HTML export) or .pdf files."
	case errors.Is(err, context.DeadlineExceeded):
		return "Processing took too long and was stopped."
	case errors.Is(err, context.Canceled):
		return "Processing was cancelled."
	}
	msg := strings.Join(strings.Fields(err.Error()), " ")
	if len(msg) > maxErrorMessage {
		msg = msg[:maxErrorMessage-3] + "..."
	}
	return msg
}
