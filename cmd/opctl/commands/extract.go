package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"op-pipeline-backend/internal/coerce"
	"op-pipeline-backend/internal/extraction"
	"op-pipeline-backend/internal/pdftext"
)

type extractOutput struct {
	File       string             `json:"file"`
	Extraction *extraction.Result `json:"extraction"`
	// Storage-format dates, as they would be written to the jobs table.
	DueDateStorage   *string `json:"due_date_storage"`
	IssueDateStorage *string `json:"issue_date_storage"`
}

func newExtractCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract OP fields from a PDF or text file",
		Long: `Reads a .pdf through its text layer (any other extension is read as plain
text) and prints the extracted fields as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			var reader pdftext.TextReader = pdftext.Static(data)
			if strings.EqualFold(filepath.Ext(path), ".pdf") {
				reader = pdftext.NewReader(pdftext.Config{MaxPages: opts.maxPages})
			}

			text, err := reader.ExtractText(cmd.Context(), data)
			if err != nil {
				return fmt.Errorf("failed to read text from %s: %w", path, err)
			}

			res, err := extraction.ExtractFields(text)
			if err != nil {
				return err
			}

			out := extractOutput{File: filepath.Base(path), Extraction: res}
			if res.DueDate != nil {
				out.DueDateStorage = storageDate(*res.DueDate)
			}
			if res.IssueDate != nil {
				out.IssueDateStorage = storageDate(*res.IssueDate)
			}
			return printJSON(cmd, out)
		},
	}
}

func storageDate(raw string) *string {
	display, ok := coerce.NormalizeDocumentDate(raw)
	if !ok {
		return nil
	}
	s, ok := coerce.ToStorageDate(display)
	if !ok {
		return nil
	}
	return &s
}
