package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/risk-cli/internal/columns"
	"github.com/sells-group/risk-cli/internal/model"
	"github.com/sells-group/risk-cli/internal/sheet"
)

// detectReport is what detect prints for a sheet.
type detectReport struct {
	Columns   []string            `json:"columns" yaml:"columns"`
	Roles     model.ColumnRoleMap `json:"roles" yaml:"roles"`
	Companies []string            `json:"companies" yaml:"companies"`
}

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Show the detected column roles and companies of a sheet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("detect"); err != nil {
			return err
		}
		file, _ := cmd.Flags().GetString("file")
		sheetName, _ := cmd.Flags().GetString("sheet")
		format, _ := cmd.Flags().GetString("format")
		if format == formatTable {
			return eris.New("detect supports json or yaml output")
		}
		if err := checkFormat(format); err != nil {
			return err
		}

		ds, err := sheet.Load(file, sheet.Options{SheetName: sheetName})
		if err != nil {
			return eris.Wrap(err, "detect: load sheet")
		}
		report, err := buildDetectReport(columns.NewDetector(cfg.Columns.Aliases), ds)
		if err != nil {
			return err
		}
		return writeValue(os.Stdout, format, report)
	},
}

func buildDetectReport(d *columns.Detector, ds *model.Dataset) (detectReport, error) {
	roles, err := d.Detect(ds.Columns, ds.Sample())
	if err != nil {
		return detectReport{}, err
	}
	names := []string{}
	for _, c := range ds.Companies(roles) {
		names = append(names, c.Name)
	}
	return detectReport{Columns: ds.Columns, Roles: roles, Companies: names}, nil
}

func init() {
	detectCmd.Flags().String("file", "", "path to the .xlsx, .xlsm, .csv or .tsv sheet")
	detectCmd.Flags().String("sheet", "", "worksheet name (default first sheet)")
	detectCmd.Flags().String("format", "json", "output format: json, yaml")
	_ = detectCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(detectCmd)
}
