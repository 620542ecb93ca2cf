package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/risk-cli/internal/llm"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the configured LLM endpoint is reachable and serves the model",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("check"); err != nil {
			return err
		}
		client, err := llm.New(cfg.LLMClientConfig())
		if err != nil {
			return eris.Wrap(err, "check: init llm client")
		}
		if err := client.Ping(cmd.Context()); err != nil {
			return eris.Wrapf(err, "check: %s endpoint", cfg.LLM.Backend)
		}
		_, _ = fmt.Fprintf(os.Stdout, "ok: %s serves %s\n", cfg.LLM.Backend, cfg.LLM.Model)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
