package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strings"

	"sales-dashboard/internal/present"
)

const DefaultFileName = "dados"

// WriteCSV writes the table as comma-delimited UTF-8 with a header row and no
// index column.
func WriteCSV(w io.Writer, table *present.Table) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(table.Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := cw.WriteAll(table.Rows); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return nil
}

// FileName turns a user supplied download name into "<name>.csv". Directory
// parts and quotes are dropped; an empty name falls back to DefaultFileName.
func FileName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(name, ".csv")
	name = strings.NewReplacer(`"`, "", "\\", "/", "\r", "", "\n", "").Replace(name)
	name = path.Base(name)
	if name == "" || name == "." || name == "/" {
		name = DefaultFileName
	}
	return name + ".csv"
}
