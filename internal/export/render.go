// Package export renders a core.Table as a downloadable artifact.
//
// Two formats are supported: an XLSX workbook with a single sheet and a
// paginated PDF grid. Each call produces a complete artifact or an error,
// never a partial document.
package export

import (
	"strings"

	"github.com/JonMunkholm/dados/internal/core"
)

// Format names an export format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// Formats lists the supported formats.
var Formats = []Format{FormatXLSX, FormatPDF}

const (
	xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	pdfMIME  = "application/pdf"

	baseName = "dados"
)

// ParseFormat converts a format name to a Format. Matching ignores case.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", &core.RenderError{Format: s, Err: core.ErrUnknownFormat}
}

// Filename returns the artifact name for the format.
func (f Format) Filename() string {
	return baseName + "." + string(f)
}

// MIMEType returns the artifact content type for the format.
func (f Format) MIMEType() string {
	switch f {
	case FormatXLSX:
		return xlsxMIME
	case FormatPDF:
		return pdfMIME
	}
	return "application/octet-stream"
}

// Render produces the artifact for format from t.
func Render(format string, t core.Table) (core.ExportArtifact, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return core.ExportArtifact{}, err
	}

	var data []byte
	switch f {
	case FormatXLSX:
		data, err = RenderXLSX(t)
	case FormatPDF:
		data, err = RenderPDF(t)
	}
	if err != nil {
		return core.ExportArtifact{}, err
	}

	return core.ExportArtifact{
		Filename: f.Filename(),
		MIMEType: f.MIMEType(),
		Data:     data,
	}, nil
}

// cellText is the text form of a cell value shared by both renderers.
func cellText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return core.FormatValue(x)
	default:
		return ""
	}
}
