package compiler

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

	"github.com/roach88/statefuzz/internal/ir"
)

// ErrModelNotFound is returned when the model source does not exist.
// Callers report it as a failed run, not a crash.
var ErrModelNotFound = errors.New("state model not found")

// LoadError wraps a failure to read or decode a model source.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load model %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// IsLoadError reports whether err came from loading a model source.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// Supported model file extensions.
const (
	FormatJSON = ".json"
	FormatYAML = ".yaml"
	FormatYML  = ".yml"
	FormatCUE  = ".cue"
)

// LoadModelFile reads and decodes a model description. The decoder is
// picked by file extension; unknown extensions are tried as JSON.
func LoadModelFile(path string) (*ir.ModelSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{Path: path, Err: ErrModelNotFound}
		}
		return nil, &LoadError{Path: path, Err: err}
	}

	doc, err := DecodeDocument(path, data)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	spec, err := DecodeModel(doc)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	spec.Source = path
	return spec, nil
}

// DecodeDocument turns raw model bytes into a generic document.
func DecodeDocument(path string, data []byte) (map[string]any, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case FormatYAML, FormatYML:
		return decodeYAML(data)
	case FormatCUE:
		return decodeCUE(path, data)
	default:
		return decodeJSON(data)
	}
}

func decodeJSON(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	if doc == nil {
		return nil, errors.New("model document is empty")
	}
	return doc, nil
}

func decodeYAML(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if doc == nil {
		return nil, errors.New("model document is empty")
	}
	return doc, nil
}

// decodeCUE compiles a CUE model. The document may sit at the top level or
// under a "model" field, which lets a file carry helper definitions next to
// the model itself.
func decodeCUE(path string, data []byte) (map[string]any, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	if inner := v.LookupPath(cue.ParsePath("model")); inner.Exists() {
		v = inner
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	raw, err := cueToAny(v)
	if err != nil {
		return nil, err
	}
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, &CompileError{Field: "model", Message: "model must be a struct", Pos: v.Pos()}
	}
	return doc, nil
}

// cueToAny walks a concrete CUE value into plain Go values. Definitions and
// hidden fields are skipped by Fields().
func cueToAny(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := map[string]any{}
		for iter.Next() {
			elem, err := cueToAny(iter.Value())
			if err != nil {
				return nil, err
			}
			out[iter.Label()] = elem
		}
		return out, nil

	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var out []any
		for iter.Next() {
			elem, err := cueToAny(iter.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil

	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return n, nil

	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return f, nil

	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return s, nil

	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return b, nil

	case cue.NullKind:
		return nil, nil

	default:
		return nil, &CompileError{
			Field:   v.Path().String(),
			Message: fmt.Sprintf("unsupported CUE kind %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a decode error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
