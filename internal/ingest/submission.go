package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

const (
	FieldOwner          = "owner"
	FieldCredits        = "credits"
	FieldTimestamp      = "timestamp"
	FieldDealOption     = "dealOption"
	FieldSecondCategory = "secondCategory"
)

// File is one uploaded part. Open may be called more than once.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// BytesFile wraps an in-memory payload as a File.
func BytesFile(name, contentType string, data []byte) File {
	return File{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

type Submission struct {
	Files  []File
	Fields Fields
}

// Fields holds the typed form values of a submission: strings, numbers
// (int64 or float64) and decoded JSON for the structured fields.
type Fields map[string]any

func (f Fields) Owner() string {
	s, _ := f[FieldOwner].(string)
	return s
}

func (f Fields) Credits() int64 {
	n, _ := f[FieldCredits].(int64)
	return n
}

// Metadata is every field except the ones stored as dedicated listing
// attributes.
func (f Fields) Metadata() map[string]any {
	out := make(map[string]any, len(f))
	for k, v := range f {
		if k == FieldOwner || k == FieldCredits {
			continue
		}
		out[k] = v
	}
	return out
}

// ParseFields types raw multipart values. Only the first value of a repeated
// field is kept.
func ParseFields(values map[string][]string) (Fields, error) {
	fields := make(Fields, len(values))
	for name, vals := range values {
		if len(vals) == 0 {
			continue
		}
		raw := strings.TrimSpace(vals[0])

		switch name {
		case FieldCredits:
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: %s must be a non-negative integer", ErrInvalidFormField, name)
			}
			fields[name] = n
		case FieldTimestamp:
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				fields[name] = n
				continue
			}
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("%w: %s must be numeric", ErrInvalidFormField, name)
			}
			fields[name] = f
		case FieldDealOption, FieldSecondCategory:
			var v any
			if err := json.Unmarshal([]byte(raw), &v); err != nil {
				return nil, fmt.Errorf("%w: %s must be valid JSON", ErrInvalidFormField, name)
			}
			fields[name] = v
		default:
			fields[name] = vals[0]
		}
	}
	return fields, nil
}
