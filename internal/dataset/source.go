package dataset

import (
	"context"
	"io"
	"os"
)

// FileSource reads the dataset from a local file.
type FileSource struct {
	Path string
}

// Open implements Source.
func (s FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	return os.Open(s.Path)
}

// Name implements Source.
func (s FileSource) Name() string {
	return s.Path
}
