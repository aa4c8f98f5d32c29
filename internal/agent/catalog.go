package agent

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	pkgerrors "github.com/angelmondragon/catering-backend/pkg/errors"
)

// LoadCatalog reads a product catalog CSV. The header row supplies the keys;
// every value is trimmed.
func LoadCatalog(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, invalidFile(err, fmt.Sprintf("open catalog %s", path))
	}
	defer f.Close()
	return ParseCatalog(f)
}

// ParseCatalog decodes CSV rows into header keyed records.
func ParseCatalog(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []map[string]string{}, nil
		}
		return nil, invalidFile(err, "read catalog header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	rows := make([]map[string]string, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, invalidFile(err, "read catalog row")
		}
		row := make(map[string]string, len(header))
		for i, key := range header {
			if i < len(record) {
				row[key] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func invalidFile(err error, msg string) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, msg).WithReason(pkgerrors.ReasonInvalidFile)
}
