package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"costcompare/internal/dataprocessing"
)

// ExportScalarTable writes a key,value table that LoadScalarTable reads back.
func (w *CSVWriter) ExportScalarTable(filePath string, header []string, table *dataprocessing.LookupTable[float64]) (int, error) {
	if table == nil {
		return 0, fmt.Errorf("export %s: table not loaded", filePath)
	}
	header, err := dataprocessing.ScalarHeader(header)
	if err != nil {
		return 0, err
	}

	fullPath := w.resolvePath(filePath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(fullPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	if err := dataprocessing.WriteScalarCSV(file, header, table); err != nil {
		file.Close()
		return 0, fmt.Errorf("export %s: %w", table.Name(), err)
	}
	if err := file.Close(); err != nil {
		return 0, fmt.Errorf("export %s: %w", table.Name(), err)
	}

	w.logger.Info("Scalar table exported",
		slog.String("table", table.Name()),
		slog.String("file_path", filePath),
		slog.Int("rows", table.Len()))
	return table.Len(), nil
}

// ExportVectorTable writes one row per key with the mean of every labelled
// category, to cents, followed by the number of rows averaged.
func (w *CSVWriter) ExportVectorTable(filePath string, labels []string, table *dataprocessing.LookupTable[[]float64]) (int, error) {
	if table == nil {
		return 0, fmt.Errorf("export %s: table not loaded", filePath)
	}

	entries := table.Entries()
	width := len(labels)
	if len(entries) > 0 && len(entries[0].Value) != width {
		return 0, fmt.Errorf("export %s: %d labels for %d columns", table.Name(), width, len(entries[0].Value))
	}

	headers := make([]string, 0, width+2)
	headers = append(headers, "key")
	headers = append(headers, labels...)
	headers = append(headers, "rows")

	stream, err := w.CreateStreamWriter(filePath, headers, false)
	if err != nil {
		return 0, fmt.Errorf("export %s: %w", table.Name(), err)
	}

	for _, e := range entries {
		record := make([]string, 0, width+2)
		record = append(record, e.Key)
		for _, v := range e.Value {
			record = append(record, formatFloat(v))
		}
		record = append(record, formatInt(int64(e.Count)))
		if err := stream.WriteRecord(record); err != nil {
			stream.Close()
			return 0, fmt.Errorf("export %s: failed to write %s: %w", table.Name(), e.Key, err)
		}
	}

	if err := stream.Close(); err != nil {
		return 0, fmt.Errorf("export %s: %w", table.Name(), err)
	}

	w.logger.Info("Vector table exported",
		slog.String("table", table.Name()),
		slog.String("file_path", filePath),
		slog.Int("rows", stream.Rows()))
	return stream.Rows(), nil
}
