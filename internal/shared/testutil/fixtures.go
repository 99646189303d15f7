// Package testutil provides reference data fixtures and log capture for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Default file names, matching config.Default.
const (
	SalaryFile = "salaries.csv"
	CostFile   = "cost_of_living.csv"
	DetailFile = "cost_of_living_us.csv"
)

// Small reference tables. India averages to 600, CA has two detail rows.
const (
	SalaryCSV = "Country,Salary\nGermany,60000\nIndia,500\nIndia,700\n"
	CostCSV   = "State,Cost\nCA,1000\nTX,800\n"
	DetailCSV = "h\n" +
		"1,CA,x,x,x,x,1,2,3,4,5,6,7\n" +
		"2,CA,x,x,x,x,3,4,5,6,7,8,9\n"
)

// ReferenceFiles returns the default fixture contents keyed by file name.
func ReferenceFiles() map[string]string {
	return map[string]string{
		SalaryFile: SalaryCSV,
		CostFile:   CostCSV,
		DetailFile: DetailCSV,
	}
}

// WriteReferenceData writes the default fixtures into a fresh temp dir,
// applies overrides (an empty value removes the file) and returns the dir.
func WriteReferenceData(t testing.TB, overrides map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	files := ReferenceFiles()
	for name, content := range overrides {
		files[name] = content
	}
	for name, content := range files {
		if content == "" {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("write fixture %s: %v", name, err)
		}
	}
	return dir
}
