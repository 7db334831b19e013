package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Parse failure causes, wrapped by ParseError.
var (
	ErrColumnCount   = errors.New("wrong column count")
	ErrEmptyFile     = errors.New("empty file")
	ErrUnknownColumn = errors.New("unknown column")
)

// ExpectedFields is the positional shape of every ingestion row.
const ExpectedFields = 3

// ParseResult is the outcome of parsing an ingestion file.
type ParseResult struct {
	Header  []string
	Records []Record
	Bytes   int64 // Raw bytes consumed, before decoding
}

// ParseCSV reads a header row followed by (column1, column2, value) rows.
//
// The header is skipped. Rows that are entirely blank are ignored. Any other
// row must have exactly three fields and a numeric third field. The whole
// input is read before returning, so callers can reject a file before they
// modify the store.
func ParseCSV(r io.Reader) (*ParseResult, error) {
	counter := &countingReader{reader: r}
	cr := csv.NewReader(WrapForParsing(counter))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ParseError{Reason: "no header row", Err: ErrEmptyFile}
	}
	if err != nil {
		return nil, csvError(err)
	}
	if len(header) != ExpectedFields {
		return nil, &ParseError{
			Line:   1,
			Reason: fmt.Sprintf("header has %d columns, want %d", len(header), ExpectedFields),
			Err:    ErrColumnCount,
		}
	}

	result := &ParseResult{Header: header, Records: []Record{}}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}

		line, _ := cr.FieldPos(0)
		if isEmptyRow(row) {
			continue
		}
		if len(row) != ExpectedFields {
			return nil, &ParseError{
				Line:   line,
				Reason: fmt.Sprintf("row has %d columns, want %d", len(row), ExpectedFields),
				Err:    ErrColumnCount,
			}
		}

		value, err := ParseNumeric(row[2])
		if err != nil {
			return nil, &ParseError{
				Line:   line,
				Reason: fmt.Sprintf("value %q", row[2]),
				Err:    err,
			}
		}

		result.Records = append(result.Records, Record{
			Column1: row[0],
			Column2: row[1],
			Value:   value,
		})
	}

	result.Bytes = counter.n
	return result, nil
}

// WrapForParsing decodes the input to clean UTF-8: a UTF-8 or UTF-16 byte
// order mark selects the decoding and is dropped, and without one ill-formed
// UTF-8 sequences are replaced with U+FFFD.
func WrapForParsing(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(runes.ReplaceIllFormed()))
}

func csvError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Line: pe.Line, Reason: "invalid csv", Err: pe.Err}
	}
	return &ParseError{Reason: "read input", Err: err}
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// countingReader tracks raw bytes read for ingestion reporting.
type countingReader struct {
	reader io.Reader
	n      int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.reader.Read(p)
	c.n += int64(n)
	return n, err
}
