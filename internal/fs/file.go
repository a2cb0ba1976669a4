package fs

import (
	"io"
	"os"
)

// File is an input opened for classification.
type File interface {
	io.ReadCloser
	io.ReaderAt
	Stat() (os.FileInfo, error)
}
