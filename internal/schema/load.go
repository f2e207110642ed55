package schema

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// LoadMode controls how errors are handled during schema loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the store specs loaded from CUE.
type LoadResult struct {
	Stores    []StoreSpec // declaration order
	CUEValue  cue.Value
	FileCount int
}

// LoadError represents an error that occurred during schema loading.
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

// Error code constants, shared with the CLI.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed

	// Store declaration errors
	ErrCodeNoStores       = "E101" // No store declared
	ErrCodeInvalidStore   = "E102" // Store is not a struct or has no identifier
	ErrCodeInvalidKey     = "E103" // Malformed dependency key path
	ErrCodeMissingAttach  = "E104" // Dependency without attach field
	ErrCodeInvalidType    = "E105" // Unsupported value (e.g., float)
	ErrCodeInvalidDefault = "E106" // Malformed defaults
	ErrCodeInvalidList    = "E107" // expects/omit is not a list of strings
)

// Load compiles the stores of a CUE file or of every .cue file in a
// directory.
func Load(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema: %v", err)}}
	}
	if info.IsDir() {
		return LoadDir(path, mode)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading schema: %v", err)}}
	}
	return LoadSource(path, string(src), mode)
}

// LoadDir loads every .cue file of dir as one CUE instance and compiles the
// stores declared under the top-level "store" struct.
func LoadDir(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema directory: %v", err)}}
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

	result, errs := compileStores(value, mode)
	result.FileCount = len(cueFiles)
	return result, errs
}

// LoadSource compiles a single CUE document. filename is used in error
// positions.
func LoadSource(filename, src string, mode LoadMode) (*LoadResult, []error) {
	value := cuecontext.New().CompileString(src, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, []error{convertCompileError(formatCUEError(err), filename)}
	}
	result, errs := compileStores(value, mode)
	result.FileCount = 1
	return result, errs
}

func compileStores(value cue.Value, mode LoadMode) (*LoadResult, []error) {
	var errs []error
	result := &LoadResult{CUEValue: value}

	storesVal := value.LookupPath(cue.ParsePath("store"))
	if !storesVal.Exists() {
		return result, []error{&LoadError{Code: ErrCodeNoStores, Message: "no stores declared"}}
	}

	iter, err := storesVal.Fields()
	if err != nil {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating stores: %v", err)}}
	}
	for iter.Next() {
		spec, compileErr := CompileStore(iter.Value())
		if compileErr != nil {
			errs = append(errs, convertCompileError(compileErr, "store."+iter.Label()))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Stores = append(result.Stores, *spec)
	}

	if len(result.Stores) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoStores, Message: "no stores declared"})
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
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "store" || field == "identifier":
		return ErrCodeInvalidStore
	case field == "type":
		return ErrCodeInvalidType
	case field == "defaults":
		return ErrCodeInvalidDefault
	case field == "expects" || field == "omit":
		return ErrCodeInvalidList
	case strings.HasSuffix(field, ".key"):
		return ErrCodeInvalidKey
	case strings.HasSuffix(field, ".attach"):
		return ErrCodeMissingAttach
	default:
		return ErrCodeGeneric
	}
}
