package commands

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// flag names
const (
	flagMaxPages = "max-pages"
)

// environment variable names
const (
	envMaxPages = "PDF_MAX_PAGES"
)

type options struct {
	maxPages int
}

// NewRootCmd builds the opctl command tree. Each call returns a fresh tree so
// flag state never leaks between runs.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "opctl",
		Short: "opctl - inspect OP documents offline",
		Long: `opctl runs the same field extraction and value coercion the server uses,
against local files, without a database or Supabase project.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()
			// Flag > env var > default
			if !cmd.Flags().Changed(flagMaxPages) {
				if raw := os.Getenv(envMaxPages); raw != "" {
					if n, err := strconv.Atoi(raw); err == nil {
						opts.maxPages = n
					}
				}
			}
			return nil
		},
	}

	root.PersistentFlags().IntVar(&opts.maxPages, flagMaxPages, 1, "PDF pages to read, 0 for all (env: PDF_MAX_PAGES)")

	root.AddCommand(newExtractCmd(opts))
	root.AddCommand(newQuantityCmd())
	root.AddCommand(newDateCmd())
	return root
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
