package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Mica14-AgCode/VISU/internal/core/domain"
	"github.com/Mica14-AgCode/VISU/internal/core/usecases"
)

func newKmzCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "kmz <file>...",
		Short: "Extract the field polygons drawn in KMZ or KML files",
		Long: `Reads each file, a KMZ archive or a bare KML document, and prints the
polygons of every placemark. A file that cannot be read is reported on stderr
and the others are still processed; the command fails only if every file does.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uploads := make([]usecases.ArchiveUpload, 0, len(args))
			for _, p := range args {
				data, err := os.ReadFile(p)
				if err != nil {
					return fmt.Errorf("read %s: %w", p, err)
				}
				uploads = append(uploads, usecases.ArchiveUpload{Name: filepath.Base(p), Data: data})
			}

			outcomes := c.fields.ExtractArchives(cmd.Context(), uploads)

			var (
				results []*domain.ExtractionResult
				fields  []domain.Field
				errs    []error
			)
			for _, o := range outcomes {
				if o.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", o.Name, o.Err)
					errs = append(errs, o.Err)
					continue
				}
				results = append(results, o.Result)
				fields = append(fields, o.Result.Fields...)
			}
			if len(results) == 0 {
				return errors.Join(errs...)
			}

			if len(outcomes) == 1 {
				return c.print(cmd.OutOrStdout(), results[0], fields)
			}
			return c.print(cmd.OutOrStdout(), results, fields)
		},
	}
}
