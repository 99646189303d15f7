package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costcompare/internal/shared/testutil"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestLookup(t *testing.T) {
	dir := testutil.WriteReferenceData(t, nil)

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr string
	}{
		{name: "cost", args: []string{"lookup", "--table", "cost", "ca"}, want: "CA\t1000.00\t(1 rows)\n"},
		{name: "salary mean", args: []string{"lookup", "--table", "salary", "India"}, want: "INDIA\t600.00\t(2 rows)\n"},
		{name: "detail", args: []string{"lookup", "--table", "detail", "CA"}, want: "housing_cost"},
		{name: "unknown key", args: []string{"lookup", "--table", "cost", "ZZ"}, wantErr: `cost "ZZ" not found`},
		{name: "unknown table", args: []string{"lookup", "--table", "rent", "CA"}, wantErr: "unknown table"},
		{name: "missing key", args: []string{"lookup"}, wantErr: "accepts 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, append(tt.args, "--data-dir", dir)...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestCompare(t *testing.T) {
	dir := testutil.WriteReferenceData(t, nil)

	out, err := run(t, "compare", "--state", "CA", "--nationality", "Germany", "--data-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "covers the cost of living")

	out, err = run(t, "compare", "--state", "TX", "--nationality", "India", "--json", "--data-dir", dir)
	require.NoError(t, err)
	var result map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 0.75, result["ratio"])
	assert.Equal(t, false, result["affordable"])
	assert.Equal(t, float64(200), result["shortfall"])

	_, err = run(t, "compare", "--state", "ZZ", "--nationality", "Germany", "--data-dir", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state not found")

	_, err = run(t, "compare", "--state", "CA", "--data-dir", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nationality")
}

func TestExport(t *testing.T) {
	dir := testutil.WriteReferenceData(t, nil)
	target := filepath.Join(t.TempDir(), "salaries_clean.csv")

	out, err := run(t, "export", "--table", "salary", "--out", target, "--data-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 2 rows")

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "Country,Salary\nGERMANY,60000\nINDIA,600\n", string(content))

	detail := filepath.Join(t.TempDir(), "details.csv")
	_, err = run(t, "export", "--table", "detail", "--out", detail, "--data-dir", dir)
	require.NoError(t, err)
	content, err = os.ReadFile(detail)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "CA,2.00,3.00,4.00,5.00,6.00,7.00,8.00,2", lines[1])
}

func TestExport_CostFromWideFile(t *testing.T) {
	dir := testutil.WriteReferenceData(t, map[string]string{
		testutil.DetailFile: "h\n" +
			"1,CA,x,x,x,x,1,2,3,4,5,6,7,1000\n" +
			"2,\"CA\" ,x,x,x,x,3,4,5,6,7,8,9,3000\n" +
			"3,TX,x,x,x,x,1,1,1,1,1,1,1\n",
	})
	t.Setenv("COSTCMP_DATA_COST_FILE", testutil.DetailFile)
	t.Setenv("COSTCMP_DATA_COST_KEY_COLUMN", "1")
	t.Setenv("COSTCMP_DATA_COST_VALUE_COLUMN", "13")
	t.Setenv("COSTCMP_DATA_COST_MIN_COLUMNS", "14")
	target := filepath.Join(t.TempDir(), "cost_clean.csv")

	out, err := run(t, "export", "--table", "cost", "--out", target, "--data-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 1 rows")

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "State,Cost\nCA,2000\n", string(content))
}

func TestMissingDataDir(t *testing.T) {
	_, err := run(t, "lookup", "CA", "--data-dir", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	dir := testutil.WriteReferenceData(t, map[string]string{testutil.SalaryFile: ""})
	_, err = run(t, "compare", "--state", "CA", "--nationality", "Germany", "--data-dir", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), testutil.SalaryFile)
}
