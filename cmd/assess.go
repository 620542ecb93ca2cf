package main

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/risk-cli/internal/assess"
	"github.com/sells-group/risk-cli/internal/model"
	"github.com/sells-group/risk-cli/internal/sheet"
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Recommend risk ratings for companies in a spreadsheet",
	Long:  "Loads an .xlsx or .csv sheet, detects its columns, and assesses each selected company under each selected evidence mode.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		file, _ := cmd.Flags().GetString("file")
		sheetName, _ := cmd.Flags().GetString("sheet")
		companies, _ := cmd.Flags().GetStringSlice("company")
		modeNames, _ := cmd.Flags().GetStringSlice("mode")
		providerNames, _ := cmd.Flags().GetStringSlice("provider")
		topic, _ := cmd.Flags().GetString("topic")
		output, _ := cmd.Flags().GetString("output")
		format, _ := cmd.Flags().GetString("format")
		save, _ := cmd.Flags().GetBool("save")
		noPing, _ := cmd.Flags().GetBool("no-ping")

		if err := checkFormat(format); err != nil {
			return err
		}
		modes, err := model.ParseModes(modeNames)
		if err != nil {
			return err
		}
		providers, err := resolveProviders(providerNames)
		if err != nil {
			return err
		}

		ds, err := sheet.Load(file, sheet.Options{SheetName: sheetName})
		if err != nil {
			return eris.Wrap(err, "assess: load sheet")
		}

		env, err := initAssess(ctx, "assess", cfg.Assess.PingLLM && !noPing)
		if err != nil {
			return err
		}
		defer env.Close()

		results, err := env.Engine.Run(ctx, assess.Request{
			Dataset:   ds,
			Companies: companies,
			Modes:     modes,
			Providers: providers,
			TopicHint: topic,
		})
		if err != nil {
			return eris.Wrap(err, "assess")
		}

		if save {
			saveRun(cmd, env, file, modes, providerNames, results)
		}

		out := os.Stdout
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return eris.Wrap(err, "assess: create output")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}
		return writeResults(out, format, results)
	},
}

func saveRun(cmd *cobra.Command, env *assessEnv, file string, modes []model.Mode, providers []string, results []model.AssessmentResult) {
	if env.Store == nil {
		zap.L().Warn("run not saved: store unavailable")
		return
	}
	if len(providers) == 0 {
		providers = cfg.Search.Providers
	}
	run := &model.Run{
		Source:    filepath.Base(file),
		Modes:     modes,
		Providers: providers,
		Results:   results,
	}
	if err := env.Store.SaveRun(cmd.Context(), run); err != nil {
		zap.L().Error("failed to save run", zap.Error(err))
		return
	}
	zap.L().Info("run saved", zap.String("run_id", run.ID))
}

func init() {
	assessCmd.Flags().String("file", "", "path to the .xlsx, .xlsm, .csv or .tsv sheet")
	assessCmd.Flags().String("sheet", "", "worksheet name (default first sheet)")
	assessCmd.Flags().StringSlice("company", nil, "company to assess (repeatable; default all)")
	assessCmd.Flags().StringSlice("mode", nil, "evidence mode: questionnaire, comments, internet_search (repeatable; default all)")
	assessCmd.Flags().StringSlice("provider", nil, "search provider: ddg, google, searxng, browser, combined (default from config)")
	assessCmd.Flags().String("topic", "", "topic hint appended to web search queries")
	assessCmd.Flags().String("output", "", "write results to this file instead of stdout")
	assessCmd.Flags().String("format", "json", "output format: json, yaml, table")
	assessCmd.Flags().Bool("save", false, "save the run to the store")
	assessCmd.Flags().Bool("no-ping", false, "skip the LLM health check before the run")
	_ = assessCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(assessCmd)
}
