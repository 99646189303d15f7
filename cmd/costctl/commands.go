package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"costcompare/internal/comparison"
	apierrors "costcompare/internal/errors"
	"costcompare/internal/exporter"
	"costcompare/internal/validation"
)

func newLookupCmd(opts *rootOptions) *cobra.Command {
	var table string

	cmd := &cobra.Command{
		Use:   "lookup KEY",
		Short: "Print the aggregated value of a key",
		Long: `Prints the mean salary of a nationality (--table salary), the mean cost of
living of a state (--table cost) or the per-category mean costs of a state
(--table detail).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateTable(table); err != nil {
				return err
			}
			_, ds, _, err := opts.loadDataset(cmd)
			if err != nil {
				return err
			}

			key := args[0]
			out := cmd.OutOrStdout()

			switch table {
			case tableSalary, tableCost:
				t := ds.Salaries
				if table == tableCost {
					t = ds.Costs
				}
				res, ok := t.Result(key)
				if !ok {
					return apierrors.NewNotFoundError(fmt.Sprintf("%s %q", table, key))
				}
				fmt.Fprintf(out, "%s\t%s\t(%d rows)\n", res.Key, strconv.FormatFloat(res.Value, 'f', 2, 64), res.Count)
			case tableDetail:
				breakdown, err := comparison.NewService(ds, nil, nil).CostBreakdown(key)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, c := range breakdown {
					fmt.Fprintf(tw, "%s\t%.2f\n", c.Label, c.Amount)
				}
				return tw.Flush()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&table, "table", tableCost, "table to query: salary, cost or detail")
	return cmd
}

func newCompareCmd(opts *rootOptions) *cobra.Command {
	var (
		state       string
		nationality string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare a nationality's salary with a state's cost of living",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ds, logger, err := opts.loadDataset(cmd)
			if err != nil {
				return err
			}

			result, err := comparison.NewService(ds, nil, logger).Compare(cmd.Context(), state, nationality)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			fmt.Fprintln(out, result.Summary())
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "state code, e.g. CA")
	cmd.Flags().StringVar(&nationality, "nationality", "", "country name, e.g. Germany")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full comparison as JSON")
	_ = cmd.MarkFlagRequired("state")
	_ = cmd.MarkFlagRequired("nationality")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		table string
		out   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a loaded table to CSV",
		Long: `Writes the aggregated table. Salary and cost exports use the two-column
layout the loader reads, so a cleaned file can replace the raw one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateTable(table); err != nil {
				return err
			}
			cfg, ds, logger, err := opts.loadDataset(cmd)
			if err != nil {
				return err
			}

			path, err := filepath.Abs(out)
			if err != nil {
				return err
			}
			if err := validation.NewFileValidator(logger).ValidateOutputDirectory(filepath.Dir(path)); err != nil {
				return err
			}
			w := exporter.NewCSVWriter("", logger)

			var n int
			switch table {
			case tableSalary:
				n, err = w.ExportScalarTable(path, []string{"Country", "Salary"}, ds.Salaries)
			case tableCost:
				n, err = w.ExportScalarTable(path, []string{"State", "Cost"}, ds.Costs)
			case tableDetail:
				n, err = w.ExportVectorTable(path, cfg.Data.CategoryLabels, ds.CostDetails)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", n, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&table, "table", tableCost, "table to export: salary, cost or detail")
	cmd.Flags().StringVar(&out, "out", "", "output CSV file")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
