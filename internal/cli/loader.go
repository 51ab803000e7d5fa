package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/filterspec/internal/filter"
)

// SpecExtensions lists the file types LoadSpec understands.
var SpecExtensions = []string{".yaml", ".yml", ".json", ".cue"}

// LoadError represents an error that occurred while loading a spec file.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
	Err     error
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadSpec reads a query spec from a YAML, JSON or CUE file. The format is
// chosen by extension.
//
// CUE files must evaluate to a concrete value of the same shape as the YAML
// and JSON forms; constraints and defaults are resolved before decoding.
func LoadSpec(path string) (filter.QuerySpec, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return filter.QuerySpec{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("spec file not found: %s", path), Err: err}
	}
	if err != nil {
		return filter.QuerySpec{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading spec file: %v", err), Err: err}
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return decodeYAML(data)
	case ".json":
		return decodeJSON(data)
	case ".cue":
		return decodeCUE(path, data)
	default:
		return filter.QuerySpec{}, &LoadError{
			Code:    ErrCodeParse,
			Message: fmt.Sprintf("unsupported spec extension %q: must be one of %v", ext, SpecExtensions),
		}
	}
}

func decodeYAML(data []byte) (filter.QuerySpec, error) {
	var spec filter.QuerySpec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return filter.QuerySpec{}, &LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("decoding YAML: %v", err), Err: err}
	}
	return spec, nil
}

func decodeJSON(data []byte) (filter.QuerySpec, error) {
	var spec filter.QuerySpec
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		return filter.QuerySpec{}, &LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("decoding JSON: %v", err), Err: err}
	}
	return spec, nil
}

func decodeCUE(path string, data []byte) (filter.QuerySpec, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return filter.QuerySpec{}, cueLoadError("building CUE value", err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return filter.QuerySpec{}, cueLoadError("CUE value is not concrete", err)
	}

	raw, err := value.MarshalJSON()
	if err != nil {
		return filter.QuerySpec{}, cueLoadError("exporting CUE value", err)
	}
	spec, err := decodeJSON(raw)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			loadErr.Message = strings.Replace(loadErr.Message, "decoding JSON", "decoding CUE", 1)
		}
		return filter.QuerySpec{}, err
	}
	return spec, nil
}

// cueLoadError keeps the first position CUE reports for err.
func cueLoadError(context string, err error) *LoadError {
	loadErr := &LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("%s: %v", context, err), Err: err}
	if positions := cueerrors.Positions(err); len(positions) > 0 {
		loadErr.Pos = positions[0]
	}
	return loadErr
}
