package core

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParseCSV_WellFormed(t *testing.T) {
	input := "coluna1,coluna2,valor\na,x,1\nb,y,2\na,y,3\n"

	res, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}

	want := []Record{
		{Column1: "a", Column2: "x", Value: 1},
		{Column1: "b", Column2: "y", Value: 2},
		{Column1: "a", Column2: "y", Value: 3},
	}
	if !reflect.DeepEqual(res.Records, want) {
		t.Errorf("Records = %+v, want %+v", res.Records, want)
	}
	if !reflect.DeepEqual(res.Header, []string{"coluna1", "coluna2", "valor"}) {
		t.Errorf("Header = %v", res.Header)
	}
	if res.Bytes != int64(len(input)) {
		t.Errorf("Bytes = %d, want %d", res.Bytes, len(input))
	}
}

func TestParseCSV_Encodings(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  Record
	}{
		{
			name:  "utf-8 BOM",
			input: append([]byte{0xEF, 0xBB, 0xBF}, []byte("h1,h2,h3\nsão,x,1\n")...),
			want:  Record{Column1: "são", Column2: "x", Value: 1},
		},
		{
			name:  "invalid byte replaced",
			input: []byte("h1,h2,h3\na\x80b,x,2\n"),
			want:  Record{Column1: "a�b", Column2: "x", Value: 2},
		},
		{
			name:  "quoted field with comma",
			input: []byte("h1,h2,h3\n\"a,b\",x,3\n"),
			want:  Record{Column1: "a,b", Column2: "x", Value: 3},
		},
		{
			name:  "crlf line endings",
			input: []byte("h1,h2,h3\r\na,x,4\r\n"),
			want:  Record{Column1: "a", Column2: "x", Value: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ParseCSV(strings.NewReader(string(tt.input)))
			if err != nil {
				t.Fatalf("ParseCSV() error = %v", err)
			}
			if len(res.Records) != 1 {
				t.Fatalf("got %d records, want 1", len(res.Records))
			}
			if res.Records[0] != tt.want {
				t.Errorf("record = %+v, want %+v", res.Records[0], tt.want)
			}
		})
	}
}

func TestParseCSV_HeaderOnly(t *testing.T) {
	res, err := ParseCSV(strings.NewReader("coluna1,coluna2,valor\n"))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if len(res.Records) != 0 {
		t.Errorf("got %d records, want 0", len(res.Records))
	}
}

func TestParseCSV_SkipsBlankRows(t *testing.T) {
	res, err := ParseCSV(strings.NewReader("h1,h2,h3\na,x,1\n\n , , \nb,y,2\n"))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if len(res.Records) != 2 {
		t.Errorf("got %d records, want 2", len(res.Records))
	}
}

func TestParseCSV_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  error
		wantLine int
	}{
		{
			name:    "empty input",
			input:   "",
			wantErr: ErrEmptyFile,
		},
		{
			name:     "header with two columns",
			input:    "h1,h2\na,b\n",
			wantErr:  ErrColumnCount,
			wantLine: 1,
		},
		{
			name:     "row with too few columns",
			input:    "h1,h2,h3\na,x,1\nb,2\n",
			wantErr:  ErrColumnCount,
			wantLine: 3,
		},
		{
			name:     "row with too many columns",
			input:    "h1,h2,h3\na,x,1,extra\n",
			wantErr:  ErrColumnCount,
			wantLine: 2,
		},
		{
			name:     "non numeric value",
			input:    "h1,h2,h3\na,x,1\nb,y,two\n",
			wantErr:  ErrInvalidNumber,
			wantLine: 3,
		},
		{
			name:     "empty value",
			input:    "h1,h2,h3\na,x,\n",
			wantErr:  ErrInvalidNumber,
			wantLine: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("ParseCSV() expected error, got nil")
			}

			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T is not *ParseError: %v", err, err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want wrapping %v", err, tt.wantErr)
			}
			if pe.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d", pe.Line, tt.wantLine)
			}
		})
	}
}
