package dataprocessing

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// DefaultScalarHeader is written when no header is supplied.
var DefaultScalarHeader = []string{"Key", "Value"}

// ScalarRows renders a scalar table as key,value rows in key order.
// Values use the shortest representation that parses back exactly.
func ScalarRows(table *LookupTable[float64]) [][]string {
	entries := table.Entries()
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Key, strconv.FormatFloat(e.Value, 'f', -1, 64)})
	}
	return rows
}

// ScalarHeader returns header, or DefaultScalarHeader when it is empty.
// Anything but two columns is an error.
func ScalarHeader(header []string) ([]string, error) {
	if len(header) == 0 {
		return DefaultScalarHeader, nil
	}
	if len(header) != 2 {
		return nil, fmt.Errorf("scalar export needs a two-column header, got %d", len(header))
	}
	return header, nil
}

// WriteScalarCSV writes table in the two-column layout LoadScalarTable reads.
func WriteScalarCSV(w io.Writer, header []string, table *LookupTable[float64]) error {
	header, err := ScalarHeader(header)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(ScalarRows(table)); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}
