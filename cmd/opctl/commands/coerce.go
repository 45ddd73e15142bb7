package commands

import (
	"github.com/spf13/cobra"
	"op-pipeline-backend/internal/coerce"
)

type quantityOutput struct {
	Raw      string `json:"raw"`
	Quantity *int   `json:"quantity"`
	OK       bool   `json:"ok"`
}

func newQuantityCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "quantity <raw>",
		Short:   "Coerce a pt-BR quantity (1.234,5 -> 1235)",
		Args:    cobra.ExactArgs(1),
		Example: `  opctl quantity "1.500"` + "\n" + `  opctl quantity -- -3    # "--" stops flag parsing for negative values`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := quantityOutput{Raw: args[0]}
			if n, ok := coerce.CoerceQuantity(args[0]); ok {
				out.Quantity, out.OK = &n, true
			}
			return printJSON(cmd, out)
		},
	}
}

type dateOutput struct {
	Raw     string  `json:"raw"`
	Display *string `json:"display"`
	Storage *string `json:"storage"`
	OK      bool    `json:"ok"`
}

func newDateCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "date <raw>",
		Short:   "Normalize a date to display (d/m/yyyy) and storage (yyyy-mm-dd) form",
		Args:    cobra.ExactArgs(1),
		Example: `  opctl date 05.03.25` + "\n" + `  opctl date 2025-03-05`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := dateOutput{Raw: args[0]}

			display, ok := coerce.NormalizeDocumentDate(args[0])
			if !ok {
				if storage, isStorage := coerce.ToStorageDate(args[0]); isStorage {
					display, ok = coerce.ToDisplayDate(storage), true
				}
			}
			if ok {
				if storage, valid := coerce.ToStorageDate(display); valid {
					out.Display, out.Storage, out.OK = &display, &storage, true
				}
			}
			return printJSON(cmd, out)
		},
	}
}
