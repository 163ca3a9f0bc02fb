package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/phaseforge/internal/compiler"
	"github.com/roach88/phaseforge/internal/ir"
)

// LoadMode controls how errors are handled during seed loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// SeedResult holds the templates compiled from a seeds directory, in CUE
// field order.
type SeedResult struct {
	Templates []ir.TemplateRecord
	Labels    []string // CUE label of each template, parallel to Templates
	FileCount int
}

// LoadError represents an error that occurred during seed loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSeeds loads the CUE package in dir and compiles every entry under
// its top-level "template" struct.
// If mode is LoadModeFailFast, returns on first compile error.
// If mode is LoadModeCollectAll, collects all of them.
// A nil result means the directory itself could not be loaded.
func LoadSeeds(dir string, mode LoadMode) (*SeedResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("seeds directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing seeds directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &SeedResult{FileCount: len(cueFiles)}
	var errs []error

	templates := value.LookupPath(cue.ParsePath("template"))
	if !templates.Exists() {
		return result, []error{&LoadError{Code: ErrCodeNoSeeds, Message: "no templates found in seeds"}}
	}
	iter, err := templates.Fields()
	if err != nil {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating templates: %v", err)}}
	}

	names := map[string]string{}
	for iter.Next() {
		label := iter.Label()
		rec, compileErr := compiler.CompileTemplate(iter.Value())
		if compileErr == nil {
			if prev, dup := names[rec.Name]; dup {
				compileErr = &compiler.CompileError{
					Field:   "name",
					Message: fmt.Sprintf("name %q already used by template %s", rec.Name, prev),
					Pos:     iter.Value().Pos(),
				}
			}
		}
		if compileErr != nil {
			errs = append(errs, convertCompileError(compileErr, "template."+label))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		names[rec.Name] = label
		result.Templates = append(result.Templates, *rec)
		result.Labels = append(result.Labels, label)
	}

	if len(result.Templates) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoSeeds, Message: "no templates found in seeds"})
	}
	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", context, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeMalformed   = "E008" // Document is not valid JSON or breaks the grammar
	ErrCodeDangling    = "E009" // Rule references a missing phase
	ErrCodeScript      = "E010" // Edit script failed to load or apply
	ErrCodeRepository  = "E011" // Store or remote API failure
	ErrCodeForbidden   = "E012" // Ownership check failed
	ErrCodeNoSeeds     = "E013" // Seeds package has no templates

	// Seed compilation errors
	ErrCodeSeedName      = "E130" // Missing, empty or duplicate name
	ErrCodeSeedUnits     = "E131" // Unit bounds out of range
	ErrCodeSeedStructure = "E132" // Structure does not parse
	ErrCodeSeedField     = "E133" // Unknown or mistyped seed field
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "name":
		return ErrCodeSeedName
	case "minUnits", "maxUnits", "defaultUnits":
		return ErrCodeSeedUnits
	case "structure":
		return ErrCodeSeedStructure
	case "description", "category", "diagramText", "tags", "active":
		return ErrCodeSeedField
	default:
		return ErrCodeGeneric
	}
}
