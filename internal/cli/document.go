package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/phaseforge/internal/codec"
	"github.com/roach88/phaseforge/internal/template"
	"github.com/roach88/phaseforge/internal/visual"
)

// readDocument reads a structure document or record file. A missing or
// unreadable file is a command error.
func readDocument(formatter *OutputFormatter, path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("file not found: %s", path))
	}
	if err != nil {
		return "", formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("reading %s: %v", path, err))
	}
	return string(data), nil
}

func danglingPolicy(drop bool) codec.DanglingPolicy {
	if drop {
		return codec.DanglingDrop
	}
	return codec.DanglingReject
}

// failEdit reports an editor or repository error with its code. Problems
// with the document or the caller's rights exit 1; anything else is a
// command error.
func failEdit(formatter *OutputFormatter, err error) error {
	switch {
	case visual.IsMalformed(err):
		return formatter.Fail(ExitFailure, ErrCodeMalformed, err.Error())
	case visual.IsDangling(err):
		return formatter.Fail(ExitFailure, ErrCodeDangling, err.Error())
	case visual.IsValidation(err):
		return formatter.Fail(ExitFailure, ErrCodeMalformed, err.Error())
	case errors.Is(err, template.ErrForbidden):
		return formatter.Fail(ExitFailure, ErrCodeForbidden, err.Error())
	case errors.Is(err, template.ErrNotFound):
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, err.Error())
	}
	return formatter.Fail(ExitCommandError, ErrCodeRepository, err.Error())
}
