package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"docqa/internal/app"
	"docqa/internal/bootstrap"
)

var (
	askTopK int
	askJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask QUESTION",
	Short: "Answer a question from the indexed documents",
	Example: `  docqa ask "What is the capital of France?"
  docqa ask --top-k 3 --json "Who signed the contract?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of passages to retrieve (0 uses the configured default)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full result as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, bootstrap.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.RAG.Ask(ctx, app.AskInput{
		Question: strings.Join(args, " "),
		TopK:     askTopK,
	})
	if err != nil {
		return err
	}

	if askJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(out))
		return nil
	}

	cmd.Println(result.Answer)
	if len(result.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for _, id := range result.Sources {
			cmd.Printf("  %s\n", id)
		}
	}
	return nil
}
