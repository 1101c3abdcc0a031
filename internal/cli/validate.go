package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"saa-question-importer/internal/config"
	"saa-question-importer/internal/infra/filestore"
	"saa-question-importer/internal/schema"
)

// NewValidateCmd checks a written dataset directory against the JSON schemas.
func NewValidateCmd(cfg *config.Config) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a written dataset against the record and index schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = cfg.Output.Dir
			}
			v, err := schema.New()
			if err != nil {
				return err
			}
			problems, err := filestore.ValidateDir(dir, v)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, p := range problems {
				fmt.Fprintln(w, p)
			}
			if len(problems) > 0 {
				return fmt.Errorf("%s: %d problem(s) found", dir, len(problems))
			}
			fmt.Fprintf(w, "%s: ok\n", dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "dataset directory (default: output.dir)")
	return cmd
}
