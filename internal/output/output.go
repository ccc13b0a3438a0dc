// Package output writes the single-file archive plus its JSON side files.
package output

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "html", "htm":
		return FormatHTML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Header opens the archive.
type Header struct {
	Title     string
	Subject   string
	Generated time.Time
	RunID     string
}

// Record is one archived page. Failed records carry the error summary in Err
// and no content.
type Record struct {
	Title      string
	Source     string
	Breadcrumb string
	Content    string
	Failed     bool
	Err        string
}

type formatter interface {
	header(w *bufio.Writer, h Header) error
	record(w *bufio.Writer, r Record) error
	footer(w *bufio.Writer, records int) error
}

var ErrClosed = errors.New("archive closed")

// footerLine closes both formats.
func footerLine(records int) string {
	return fmt.Sprintf("End of archive: %d pages", records)
}

// Archive is an append-only output document.
type Archive struct {
	path   string
	f      *os.File
	w      *bufio.Writer
	fmt    formatter
	closed bool
	count  int
}

// Open creates (or truncates) the archive file at path.
func Open(path string, format Format) (*Archive, error) {
	var f formatter
	switch format {
	case FormatHTML:
		f = htmlFormatter{}
	case FormatMarkdown:
		f = newMarkdownFormatter()
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Archive{path: path, f: file, w: bufio.NewWriter(file), fmt: f}, nil
}

func (a *Archive) Path() string { return a.path }

// Records reports how many records have been written.
func (a *Archive) Records() int { return a.count }

func (a *Archive) WriteHeader(h Header) error {
	if a.closed {
		return ErrClosed
	}
	if h.Generated.IsZero() {
		h.Generated = time.Now()
	}
	return a.fmt.header(a.w, h)
}

func (a *Archive) WriteRecord(r Record) error {
	if a.closed {
		return ErrClosed
	}
	if err := a.fmt.record(a.w, r); err != nil {
		return err
	}
	a.count++
	return nil
}

func (a *Archive) WriteFooter() error {
	if a.closed {
		return ErrClosed
	}
	return a.fmt.footer(a.w, a.count)
}

// Close flushes and closes the file. Calling it again is a no-op.
func (a *Archive) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	flushErr := a.w.Flush()
	closeErr := a.f.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
