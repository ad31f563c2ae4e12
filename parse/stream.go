package parse

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
)

// Record is one raw row keyed by header field.
type Record map[string]string

// Stream yields raw records of one dataset.
type Stream interface {
	// Source names the stream in error messages.
	Source() string
	// Header returns the field names. io.EOF means the stream is empty.
	Header() ([]string, error)
	// Next returns the next record or io.EOF.
	Next() (Record, error)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVStream reads comma separated records, the first row is the header.
type CSVStream struct {
	source string
	r      *csv.Reader

	header []string
	err    error
}

// NewCSVStream wraps r. A leading UTF-8 byte order mark is dropped.
func NewCSVStream(r io.Reader, source string) *CSVStream {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	// короткие и длинные строки допустимы, недостающие поля пустые
	cr.FieldsPerRecord = -1

	return &CSVStream{
		source: source,
		r:      cr,
	}
}

func (s *CSVStream) Source() string { return s.source }

func (s *CSVStream) Header() ([]string, error) {
	if s.header == nil && s.err == nil {
		s.header, s.err = s.r.Read()
	}
	return s.header, s.err
}

func (s *CSVStream) Next() (Record, error) {
	if _, err := s.Header(); err != nil {
		return nil, err
	}

	row, err := s.r.Read()
	if err != nil {
		return nil, err
	}

	rec := make(Record, len(s.header))
	for i, field := range s.header {
		if i < len(row) {
			rec[field] = row[i]
		} else {
			rec[field] = ""
		}
	}
	return rec, nil
}

// SliceStream serves records that are already in memory.
type SliceStream struct {
	source  string
	header  []string
	records []Record
	pos     int
}

func NewSliceStream(source string, header []string, records []Record) *SliceStream {
	return &SliceStream{
		source:  source,
		header:  header,
		records: records,
	}
}

func (s *SliceStream) Source() string { return s.source }

func (s *SliceStream) Header() ([]string, error) {
	if s.header == nil {
		return nil, io.EOF
	}
	return s.header, nil
}

func (s *SliceStream) Next() (Record, error) {
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, nil
}
