package loader

import (
	"errors"
	"fmt"
	"io"

	pkgerrors "github.com/pkg/errors"
)

// Category classifies an import failure.
type Category int

const (
	// CategoryUnknown is reported for errors that did not originate in the import pipeline.
	CategoryUnknown Category = iota
	// CategoryStructural covers malformed containers and documents: bad indices, cycles, conflicting transforms.
	CategoryStructural
	// CategoryResource covers byte sources that could not be produced.
	CategoryResource
	// CategoryCodec covers images that could not be decoded.
	CategoryCodec
	// CategorySemantic covers data that is well-formed but unusable: accessor overruns, missing positions.
	CategorySemantic
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryStructural:
		return "structural"
	case CategoryResource:
		return "resource"
	case CategoryCodec:
		return "codec"
	case CategorySemantic:
		return "semantic"
	default:
		return "unknown"
	}
}

// Structural errors.
var (
	ErrMalformedContainer   = errors.New("malformed container")
	ErrUnsupportedVersion   = errors.New("unsupported asset version")
	ErrIndexOutOfRange      = errors.New("index out of range")
	ErrCyclicNodeGraph      = errors.New("cyclic node graph")
	ErrConflictingTransform = errors.New("node declares both matrix and TRS")
)

// Resource errors.
var (
	ErrResourceNotFound   = errors.New("resource not found")
	ErrResourceIO         = errors.New("resource read failed")
	ErrNetwork            = errors.New("network failure")
	ErrDisallowedScheme   = errors.New("scheme not allowed in this execution context")
	ErrUnsupportedScheme  = errors.New("unsupported URI scheme")
	ErrMalformedBase64    = errors.New("malformed base64 payload")
	ErrMalformedDataURI   = errors.New("malformed data URI")
	ErrChunkOutOfBounds   = errors.New("binary chunk out of bounds")
	ErrMissingBinaryChunk = errors.New("missing binary chunk")
	ErrBufferLength       = errors.New("buffer shorter than declared byteLength")
)

// Codec errors.
var (
	ErrUnsupportedImageFormat = errors.New("unsupported image format")
	ErrCorruptImage           = errors.New("corrupt image data")
)

// Semantic errors.
var (
	ErrAccessorBounds      = errors.New("accessor exceeds buffer view")
	ErrUnsupportedAccessor = errors.New("unsupported accessor layout")
	ErrMissingPosition     = errors.New("primitive has no positions")
)

var sentinelCategories = map[error]Category{
	ErrMalformedContainer:     CategoryStructural,
	ErrUnsupportedVersion:     CategoryStructural,
	ErrIndexOutOfRange:        CategoryStructural,
	ErrCyclicNodeGraph:        CategoryStructural,
	ErrConflictingTransform:   CategoryStructural,
	ErrResourceNotFound:       CategoryResource,
	ErrResourceIO:             CategoryResource,
	ErrNetwork:                CategoryResource,
	ErrDisallowedScheme:       CategoryResource,
	ErrUnsupportedScheme:      CategoryResource,
	ErrMalformedBase64:        CategoryResource,
	ErrMalformedDataURI:       CategoryResource,
	ErrChunkOutOfBounds:       CategoryResource,
	ErrMissingBinaryChunk:     CategoryResource,
	ErrBufferLength:           CategoryResource,
	ErrUnsupportedImageFormat: CategoryCodec,
	ErrCorruptImage:           CategoryCodec,
	ErrAccessorBounds:         CategorySemantic,
	ErrUnsupportedAccessor:    CategorySemantic,
	ErrMissingPosition:        CategorySemantic,
}

// Error is the error type returned by every import failure.
// Err wraps one of the package sentinels, or several of them joined when
// document validation finds more than one problem.
type Error struct {
	// Category classifies the failure.
	Category Category
	// Op is the pipeline phase that failed: parse, validate, resolve, decode or build.
	Op string
	// Ref names the offending element, e.g. "buffers[2]" or a URI.
	Ref string
	// Err is the wrapped cause.
	Err error
}

func (e *Error) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("gltf %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("gltf %s %s: %v", e.Op, e.Ref, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Format prints the stack recorded at construction with %+v.
func (e *Error) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "gltf %s %s [%s]: %+v", e.Op, e.Ref, e.Category, e.Err)
		return
	}
	io.WriteString(s, e.Error())
}

// CategoryOf classifies any error returned by the loader.
//
// Parameters:
//   - err: the error to classify
//
// Returns:
//   - Category: the category, or CategoryUnknown
func CategoryOf(err error) Category {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Category
	}
	for sentinel, c := range sentinelCategories {
		if errors.Is(err, sentinel) {
			return c
		}
	}
	return CategoryUnknown
}

// Issues flattens a validation error into its individual problems.
//
// Parameters:
//   - err: an error returned by the loader
//
// Returns:
//   - []*Error: every *Error found in the tree, outermost first
func Issues(err error) []*Error {
	var out []*Error
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if ie, ok := e.(*Error); ok {
			out = append(out, ie)
		}
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return out
}

// newError builds an *Error around a sentinel, recording the call stack.
// The category is derived from the sentinel.
func newError(op, ref string, sentinel error, format string, args ...any) *Error {
	cause := sentinel
	if format != "" {
		cause = fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
	}
	return &Error{
		Category: sentinelCategories[sentinel],
		Op:       op,
		Ref:      ref,
		Err:      pkgerrors.WithStack(cause),
	}
}

// wrapError attaches op and ref to an error that already wraps a sentinel.
// An *Error passes through unchanged so the innermost reference wins.
func wrapError(op, ref string, err error) error {
	if err == nil {
		return nil
	}
	var ie *Error
	if errors.As(err, &ie) {
		return err
	}
	return &Error{
		Category: CategoryOf(err),
		Op:       op,
		Ref:      ref,
		Err:      pkgerrors.WithStack(err),
	}
}
