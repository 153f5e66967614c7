package gtm

import (
	"bytes"
	"fmt"
	"io"

	gojson "github.com/goccy/go-json"

	"github.com/ajitpratap0/gtminspect/pkg/errors"
)

// DefaultMaxDocumentBytes bounds how much of an upload is read.
const DefaultMaxDocumentBytes int64 = 32 << 20

var (
	// ErrMalformedDocument is wrapped by every error caused by the document
	// itself: invalid JSON or, in strict mode, missing sections.
	ErrMalformedDocument = fmt.Errorf("malformed container export")

	// ErrDocumentTooLarge is returned when the input exceeds MaxBytes.
	ErrDocumentTooLarge = fmt.Errorf("container export too large")
)

// ParseOptions controls how a document is decoded.
type ParseOptions struct {
	// Strict rejects documents that lack containerVersion, its tag list or
	// its trigger list. When false those sections default to empty.
	Strict bool

	// MaxBytes limits Decode. Zero means DefaultMaxDocumentBytes and a
	// negative value disables the limit.
	MaxBytes int64
}

type document struct {
	ContainerVersion *containerVersion `json:"containerVersion"`
}

type containerVersion struct {
	Tag     *[]Tag     `json:"tag"`
	Trigger *[]Trigger `json:"trigger"`
}

// Parse decodes an export held in memory.
func Parse(data []byte, opts ParseOptions) (*Workspace, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, malformed(io.ErrUnexpectedEOF, "document is empty")
	}

	var doc document
	if err := gojson.Unmarshal(data, &doc); err != nil {
		return nil, malformed(err, "document is not valid JSON")
	}

	ws := &Workspace{}
	cv := doc.ContainerVersion
	if cv == nil {
		if opts.Strict {
			return nil, malformed(nil, "missing containerVersion")
		}
		return ws, nil
	}

	if cv.Tag != nil {
		ws.Tags = *cv.Tag
	} else if opts.Strict {
		return nil, malformed(nil, "missing containerVersion.tag")
	}

	if cv.Trigger != nil {
		ws.Triggers = *cv.Trigger
	} else if opts.Strict {
		return nil, malformed(nil, "missing containerVersion.trigger")
	}

	return ws, nil
}

// Decode reads r to completion and parses it.
func Decode(r io.Reader, opts ParseOptions) (*Workspace, error) {
	limit := opts.MaxBytes
	if limit == 0 {
		limit = DefaultMaxDocumentBytes
	}

	var data []byte
	var err error
	if limit < 0 {
		data, err = io.ReadAll(r)
	} else {
		data, err = io.ReadAll(io.LimitReader(r, limit+1))
		if err == nil && int64(len(data)) > limit {
			return nil, errors.Wrap(ErrDocumentTooLarge, errors.ErrorTypeValidation,
				fmt.Sprintf("document exceeds %d bytes", limit)).
				WithDetail("max_bytes", limit)
		}
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read document")
	}

	return Parse(data, opts)
}

func malformed(cause error, msg string) error {
	if cause == nil {
		return errors.Wrap(ErrMalformedDocument, errors.ErrorTypeValidation, msg)
	}
	return errors.Wrap(fmt.Errorf("%w: %w", ErrMalformedDocument, cause), errors.ErrorTypeValidation, msg)
}
