package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"notes-quiz-service/internal/normalize"

	"github.com/spf13/cobra"
)

// NewNormalizeCmd runs a raw generator payload through the normalizer, for debugging
// collaborator responses offline.
func NewNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [file]",
		Short: "Print the questions a raw generator payload normalizes to",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			raw, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read payload: %w", err)
			}
			out := struct {
				Meta      any `json:"meta"`
				Questions any `json:"questions"`
			}{
				Meta:      normalize.Meta(raw),
				Questions: normalize.Questions(raw),
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}
