// Package dataset loads the bundled accident-case reference dataset, a
// line-delimited JSON file with one AccidentCase per line.
package dataset

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/ragcon/safety-assistant/internal/types"
)

// maxLineBytes bounds a single record; case narratives can be long.
const maxLineBytes = 4 << 20

// Source opens the raw dataset.
type Source interface {
	// Open returns a reader over the JSONL content. The caller closes it.
	Open(ctx context.Context) (io.ReadCloser, error)
	// Name describes the source for logs and errors.
	Name() string
}

// LoadError represents a dataset that could not be read or parsed.
type LoadError struct {
	Source  string
	Line    int
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	loc := e.Source
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.Source, e.Line)
	}
	if e.Cause != nil {
		return fmt.Sprintf("dataset load error (%s): %s: %v", loc, e.Message, e.Cause)
	}
	return fmt.Sprintf("dataset load error (%s): %s", loc, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Load opens src and parses every record.
func Load(ctx context.Context, src Source) ([]types.AccidentCase, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, &LoadError{Source: src.Name(), Message: "failed to open dataset", Cause: err}
	}
	defer func() { _ = rc.Close() }()

	cases, err := Parse(rc)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Source = src.Name()
			return nil, le
		}
		return nil, &LoadError{Source: src.Name(), Message: "failed to parse dataset", Cause: err}
	}
	zerolog.Ctx(ctx).Debug().Str("source", src.Name()).Int("cases", len(cases)).Msg("dataset loaded")
	return cases, nil
}

// Parse reads JSONL records from r. Blank lines are skipped. A single
// malformed line fails the whole parse: a partial case set would misrepresent
// which accidents exist.
func Parse(r io.Reader) ([]types.AccidentCase, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	cases := []types.AccidentCase{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if lineNo == 1 {
			line = bytes.TrimPrefix(line, []byte("\xef\xbb\xbf"))
		}

		var c types.AccidentCase
		if err := json.Unmarshal(line, &c); err != nil {
			return nil, &LoadError{Line: lineNo, Message: "malformed record", Cause: err}
		}
		cases = append(cases, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, &LoadError{Line: lineNo + 1, Message: "failed to read dataset", Cause: err}
	}
	return cases, nil
}

// FilterByCaseNumbers keeps the cases whose case number is in ids, in dataset
// order. An empty ids yields an empty, non-nil slice.
func FilterByCaseNumbers(cases []types.AccidentCase, ids []types.CaseNumber) []types.AccidentCase {
	wanted := make(map[types.CaseNumber]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	out := []types.AccidentCase{}
	for _, c := range cases {
		if _, ok := wanted[c.Metadata.CaseNo]; ok {
			out = append(out, c.Clone())
		}
	}
	return out
}
