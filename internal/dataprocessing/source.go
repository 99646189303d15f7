package dataprocessing

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// maxLineBytes bounds one text line. Longer lines are skipped and rejected
// as malformed rows.
const maxLineBytes = 1 << 20

// RowSource produces parsed rows, header included.
type RowSource interface {
	// Name identifies the source in logs, stats, and errors.
	Name() string
	Rows(ctx context.Context) (RowIterator, error)
}

// RowIterator yields rows in input order. Next returns io.EOF after the last row.
// Line numbers are 1-based and count the header.
type RowIterator interface {
	Next() (line int, fields []string, err error)
	Close() error
}

// OpenSource picks a source implementation by file extension.
func OpenSource(path string, delim rune) RowSource {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return &WorkbookSource{Path: path}
	default:
		return &CSVFileSource{Path: path, Delimiter: delim}
	}
}

// CSVFileSource streams a delimited text file line by line.
type CSVFileSource struct {
	Path      string
	Delimiter rune
}

func (s *CSVFileSource) Name() string { return s.Path }

func (s *CSVFileSource) Rows(ctx context.Context) (RowIterator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, &SourceError{Source: s.Path, Err: err}
	}
	return newLineIterator(s.Path, f, f, s.Delimiter), nil
}

// ReaderSource parses delimited text from an already open reader.
type ReaderSource struct {
	SourceName string
	Reader     io.Reader
	Delimiter  rune
}

func (s *ReaderSource) Name() string {
	if s.SourceName == "" {
		return "reader"
	}
	return s.SourceName
}

func (s *ReaderSource) Rows(ctx context.Context) (RowIterator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Reader == nil {
		return nil, &SourceError{Source: s.Name(), Err: fmt.Errorf("nil reader")}
	}
	return newLineIterator(s.Name(), s.Reader, nil, s.Delimiter), nil
}

type lineIterator struct {
	name   string
	reader *bufio.Reader
	closer io.Closer
	delim  rune
	line   int
	buf    []byte
}

func newLineIterator(name string, r io.Reader, c io.Closer, delim rune) *lineIterator {
	return &lineIterator{name: name, reader: bufio.NewReaderSize(r, 64*1024), closer: c, delim: delim}
}

// Next returns a *RowError wrapping ErrMalformedRow for a line over
// maxLineBytes; the iterator stays usable and continues with the next line.
func (it *lineIterator) Next() (int, []string, error) {
	text, tooLong, err := it.readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return it.line, nil, io.EOF
		}
		return it.line, nil, &SourceError{Source: it.name, Err: err}
	}
	it.line++
	if tooLong {
		return it.line, nil, &RowError{
			Line:   it.line,
			Column: -1,
			Err:    fmt.Errorf("%w: line exceeds %d bytes", ErrMalformedRow, maxLineBytes),
		}
	}
	if it.line == 1 {
		text = strings.TrimPrefix(text, "\ufeff")
	}
	return it.line, ParseLine(text, it.delim), nil
}

// readLine returns the next line without its terminator. io.EOF means no
// bytes were left. An over-long line is drained to its end and reported
// with tooLong set.
func (it *lineIterator) readLine() (string, bool, error) {
	it.buf = it.buf[:0]
	read, tooLong := false, false
	for {
		chunk, err := it.reader.ReadSlice('\n')
		if len(chunk) > 0 {
			read = true
		}
		if !tooLong {
			if len(it.buf)+len(chunk) > maxLineBytes+2 {
				tooLong = true
				it.buf = it.buf[:0]
			} else {
				it.buf = append(it.buf, chunk...)
			}
		}

		switch {
		case err == nil:
			return strings.TrimRight(string(it.buf), "\r\n"), tooLong, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if !read {
				return "", false, io.EOF
			}
			return strings.TrimRight(string(it.buf), "\r\n"), tooLong, nil
		default:
			return "", false, err
		}
	}
}

func (it *lineIterator) Close() error {
	if it.closer == nil {
		return nil
	}
	return it.closer.Close()
}

// WorkbookSource reads rows from one sheet of an .xlsx workbook.
// An empty Sheet selects the first sheet.
type WorkbookSource struct {
	Path  string
	Sheet string
}

func (s *WorkbookSource) Name() string {
	if s.Sheet == "" {
		return s.Path
	}
	return s.Path + "#" + s.Sheet
}

func (s *WorkbookSource) Rows(ctx context.Context) (RowIterator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, &SourceError{Source: s.Name(), Err: err}
	}

	sheet := s.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.Rows(sheet)
	if err != nil {
		f.Close()
		return nil, &SourceError{Source: s.Name(), Err: fmt.Errorf("sheet %q: %w", sheet, err)}
	}
	return &workbookIterator{name: s.Name(), file: f, rows: rows}, nil
}

type workbookIterator struct {
	name string
	file *excelize.File
	rows *excelize.Rows
	line int
}

func (it *workbookIterator) Next() (int, []string, error) {
	if !it.rows.Next() {
		if err := it.rows.Error(); err != nil {
			return it.line, nil, &SourceError{Source: it.name, Err: err}
		}
		return it.line, nil, io.EOF
	}
	it.line++
	cols, err := it.rows.Columns()
	if err != nil {
		return it.line, nil, &SourceError{Source: it.name, Err: err}
	}
	if len(cols) == 0 {
		return it.line, []string{""}, nil
	}
	for i, c := range cols {
		cols[i] = cleanField(c)
	}
	return it.line, cols, nil
}

func (it *workbookIterator) Close() error {
	rowsErr := it.rows.Close()
	fileErr := it.file.Close()
	if rowsErr != nil {
		return rowsErr
	}
	return fileErr
}
