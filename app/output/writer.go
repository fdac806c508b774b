package output

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Destination is either standard output or a file path.
type Destination struct {
	path string
}

func Stdout() Destination {
	return Destination{}
}

func File(path string) Destination {
	return Destination{path: path}
}

// ParseDestination maps an empty path or "-" to standard output.
func ParseDestination(path string) Destination {
	if path == "" || path == "-" {
		return Stdout()
	}
	return File(path)
}

func (d Destination) IsStdout() bool {
	return d.path == ""
}

func (d Destination) Path() string {
	return d.path
}

func (d Destination) String() string {
	if d.IsStdout() {
		return "stdout"
	}
	return d.path
}

type Result string

const (
	ResultPrinted Result = "printed"
	ResultWritten Result = "written"
	ResultSkipped Result = "skipped"
)

// IOError wraps a failed write to a destination.
type IOError struct {
	Destination string
	Err         error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error: writing %s: %v", e.Destination, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Writer writes feeds to their destination, leaving files alone when their
// content is already up to date.
type Writer struct {
	stdout   io.Writer
	fileMode os.FileMode
}

func NewWriter(stdout io.Writer) *Writer {
	if stdout == nil {
		stdout = os.Stdout
	}
	return &Writer{stdout: stdout, fileMode: 0644}
}

func (w *Writer) Write(content []byte, dst Destination, force bool) (Result, error) {
	if dst.IsStdout() {
		if _, err := w.stdout.Write(content); err != nil {
			return "", &IOError{Destination: dst.String(), Err: err}
		}
		return ResultPrinted, nil
	}

	if !force {
		// A failed read means there is nothing to compare against.
		if existing, err := os.ReadFile(dst.Path()); err == nil && bytes.Equal(existing, content) {
			return ResultSkipped, nil
		}
	}

	if err := os.WriteFile(dst.Path(), content, w.fileMode); err != nil {
		return "", &IOError{Destination: dst.String(), Err: err}
	}
	return ResultWritten, nil
}
