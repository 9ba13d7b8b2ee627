// Package csvimport reads bulk donor uploads.
package csvimport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lorrc/donor-display-backend/internal/core/domain"
	apperrors "github.com/lorrc/donor-display-backend/internal/core/errors"
)

const (
	columnName    = "name"
	columnAmount  = "amount"
	columnGrade   = "grade"
	columnMessage = "message"
)

var requiredColumns = []string{columnName, columnAmount, columnGrade}

var knownColumns = map[string]bool{
	columnName:    true,
	columnAmount:  true,
	columnGrade:   true,
	columnMessage: true,
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// IsCSVFilename reports whether an uploaded file name has a .csv extension.
func IsCSVFilename(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".csv")
}

// Parse reads a header row followed by donor rows. Columns are matched by
// header name, case-insensitively; message is optional and other columns are
// ignored. Values are returned raw; normalization happens during ingestion.
func Parse(r io.Reader) ([]domain.DonorRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: file is empty", apperrors.ErrMalformedCSV)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedCSV, err)
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var rows []domain.DonorRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedCSV, err)
		}

		row := domain.DonorRow{
			Name:   record[index[columnName]],
			Amount: record[index[columnAmount]],
			Grade:  record[index[columnGrade]],
		}
		if i, ok := index[columnMessage]; ok {
			row.Message = record[i]
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// columnIndex maps the donor columns to their positions. Blank and unknown
// header cells are ignored, even when repeated.
func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(knownColumns))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if !knownColumns[key] {
			continue
		}
		if _, dup := index[key]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", apperrors.ErrMalformedCSV, key)
		}
		index[key] = i
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing column(s) %s", apperrors.ErrMalformedCSV, strings.Join(missing, ", "))
	}

	return index, nil
}
