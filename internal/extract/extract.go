package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"kb-engine/internal/domain/kbmodel"
	"kb-engine/pkg/logging"
)

type DocType string

const (
	PDF   DocType = "PDF"
	DOC   DocType = "DOC"
	SHEET DocType = "SHEET"
	ERR   DocType = "ERROR"
)

// Result is either flat text or, for spreadsheet catalogs carrying the
// configured name column, a list of structured records. Never both.
type Result struct {
	Text    string
	Records []kbmodel.StructuredRecord
}

// Extractor converts source files into Result values. Page and sheet failures
// are skipped so partial content survives a bad region of the file.
type Extractor struct {
	// NameColumn marks a spreadsheet as a named-entity catalog. Rows missing
	// the column are skipped, not failed.
	NameColumn string
	logger     *logging.Logger
}

func New(nameColumn string) *Extractor {
	return &Extractor{
		NameColumn: nameColumn,
		logger:     logging.New("Extractor"),
	}
}

func DocTypeOf(path string) DocType {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return PDF
	case ".docx", ".doc", ".odt", ".rtf", ".txt":
		return DOC
	case ".xlsx", ".xls":
		return SHEET
	default:
		return ERR
	}
}

// ExtractFile reads one source file. Unrecognized extensions fail with
// ErrUnsupportedFormat; parser errors wrap ErrExtractionFailed with the file
// name attached.
func (e *Extractor) ExtractFile(path string) (Result, error) {
	switch DocTypeOf(path) {
	case PDF:
		text, err := e.extractPDF(path)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %s: %v", kbmodel.ErrExtractionFailed, filepath.Base(path), err)
		}
		return Result{Text: text}, nil

	case DOC:
		text, err := e.extractDoc(path)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %s: %v", kbmodel.ErrExtractionFailed, filepath.Base(path), err)
		}
		return Result{Text: text}, nil

	case SHEET:
		res, err := e.extractSheet(path)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %s: %v", kbmodel.ErrExtractionFailed, filepath.Base(path), err)
		}
		return res, nil

	default:
		return Result{}, fmt.Errorf("%w: %s", kbmodel.ErrUnsupportedFormat, filepath.Base(path))
	}
}
