package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"hubchantier/internal/app"
	"hubchantier/internal/core/id"
	"hubchantier/internal/domain/quote/dpgf"
)

type importOptions struct {
	quoteID string
	file    string
	mapping dpgf.ColumnMapping
}

func importCmd(opts *globalOptions) *cobra.Command {
	o := &importOptions{mapping: dpgf.DefaultMapping()}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a DPGF file (CSV or Excel) into a quote",
		Example: `  quotectl import --quote 0190f0c4-... --file dpgf.csv
  quotectl import --quote 0190f0c4-... --file dpgf.xlsx --sheet 1 --data-row 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			quoteID, err := id.Parse(o.quoteID)
			if err != nil {
				return fmt.Errorf("invalid --quote: %w", err)
			}
			data, err := os.ReadFile(o.file)
			if err != nil {
				return fmt.Errorf("read %s: %w", o.file, err)
			}

			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				result, err := a.Import.Import(ctx, quoteID, filepath.Base(o.file), data, &o.mapping)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result.ToMap())
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.quoteID, "quote", "", "Target quote id")
	f.StringVar(&o.file, "file", "", "DPGF file (.csv, .xlsx, .xlsm)")
	f.IntVar(&o.mapping.Lot, "lot-col", o.mapping.Lot, "Column index of the lot code")
	f.IntVar(&o.mapping.Description, "description-col", o.mapping.Description, "Column index of the description")
	f.IntVar(&o.mapping.Unit, "unit-col", o.mapping.Unit, "Column index of the unit")
	f.IntVar(&o.mapping.Quantity, "quantity-col", o.mapping.Quantity, "Column index of the quantity")
	f.IntVar(&o.mapping.UnitPrice, "price-col", o.mapping.UnitPrice, "Column index of the unit price")
	f.IntVar(&o.mapping.DataRow, "data-row", o.mapping.DataRow, "Index of the first data row")
	f.IntVar(&o.mapping.Sheet, "sheet", o.mapping.Sheet, "Worksheet index for Excel files")
	_ = cmd.MarkFlagRequired("quote")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func templateCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write the empty DPGF Excel template",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := dpgf.GenerateTemplate()
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "template written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "modele_dpgf.xlsx", "Output file")
	return cmd
}
