package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/use-agent/dodf/extractor"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file|-]",
	Short: "Extract the Nota de Empenho fields from a text file",
	Long: `Reads document text from a file, or from stdin when the argument is
"-" or missing, and prints the extracted record as JSON.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	var (
		text []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		text, err = io.ReadAll(cmd.InOrStdin())
	} else {
		text, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	rec := extractor.Extract(string(text))
	if rec == nil {
		cmd.Println("Not a nota de empenho.")
		return nil
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(rec)
}
