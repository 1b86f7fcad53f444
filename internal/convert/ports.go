package convert

import (
	"context"
	"strings"
)

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatXLSX Format = "xlsx"
	FormatPPTX Format = "pptx"
	FormatODT  Format = "odt"
	FormatTXT  Format = "txt"
	FormatPNG  Format = "png"
	FormatJPG  Format = "jpg"
)

func ParseFormat(s string) Format {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	if f == "jpeg" {
		return FormatJPG
	}
	return f
}

// Kind is one supported (source, target) pair.
type Kind int

const (
	KindUnknown Kind = iota
	KindWordToPDF
	KindODTToPDF
	KindExcelToPDF
	KindPowerPointToPDF
	KindPDFToWord
	KindPDFToPowerPoint
	KindWordToText
	KindPDFToText
	KindImageToText
)

type Backend int

const (
	BackendOffice Backend = iota
	BackendText
)

type kindInfo struct {
	from, to Format
	backend  Backend
	// infilter forces the office import filter for PDF sources
	infilter string
}

var kinds = map[Kind]kindInfo{
	KindWordToPDF:       {from: FormatDOCX, to: FormatPDF, backend: BackendOffice},
	KindODTToPDF:        {from: FormatODT, to: FormatPDF, backend: BackendOffice},
	KindExcelToPDF:      {from: FormatXLSX, to: FormatPDF, backend: BackendOffice},
	KindPowerPointToPDF: {from: FormatPPTX, to: FormatPDF, backend: BackendOffice},
	KindPDFToWord:       {from: FormatPDF, to: FormatDOCX, backend: BackendOffice, infilter: "writer_pdf_import"},
	KindPDFToPowerPoint: {from: FormatPDF, to: FormatPPTX, backend: BackendOffice, infilter: "impress_pdf_import"},
	KindWordToText:      {from: FormatDOCX, to: FormatTXT, backend: BackendText},
	KindPDFToText:       {from: FormatPDF, to: FormatTXT, backend: BackendText},
	KindImageToText:     {from: FormatPNG, to: FormatTXT, backend: BackendText},
}

// LookupKind finds the kind for a pair; jpg sources share the image OCR kind.
func LookupKind(from, to Format) Kind {
	if from == FormatJPG {
		from = FormatPNG
	}
	for k, info := range kinds {
		if info.from == from && info.to == to {
			return k
		}
	}
	return KindUnknown
}

func (k Kind) From() Format { return kinds[k].from }
func (k Kind) To() Format { return kinds[k].to }
func (k Kind) Backend() Backend { return kinds[k].backend }
func (k Kind) InFilter() string { return kinds[k].infilter }

func (k Kind) String() string {
	info, ok := kinds[k]
	if !ok {
		return "unknown"
	}
	return string(info.from) + "->" + string(info.to)
}

// Converter is the single capability every external collaborator exposes.
type Converter interface {
	Convert(ctx context.Context, data []byte, src Format, kind Kind) ([]byte, error)
}

type Result struct {
	Data        []byte
	Filename    string
	ContentType string
}

var contentTypes = map[Format]string{
	FormatPDF:  "application/pdf",
	FormatDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FormatPPTX: "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	FormatTXT:  "text/plain; charset=utf-8",
}

func ContentType(f Format) string {
	if ct, ok := contentTypes[f]; ok {
		return ct
	}
	return "application/octet-stream"
}
