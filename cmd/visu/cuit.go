package main

import (
	"github.com/spf13/cobra"

	"github.com/Mica14-AgCode/VISU/internal/core/domain"
	"github.com/Mica14-AgCode/VISU/internal/core/usecases"
)

func newCuitCmd(c *cli) *cobra.Command {
	var (
		all     bool
		lenient bool
	)
	cmd := &cobra.Command{
		Use:   "cuit <NN-NNNNNNNN-N>",
		Short: "Extract the fields registered to a CUIT in the RENSPA registry",
		Long: `Pages through the SENASA RENSPA registry for one CUIT and prints every
field whose polygon decodes. Deregistered establishments are skipped unless
--all is given. A registry failure mid-way still prints what was gathered;
the summary reports pagination "failed".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if lenient {
				normalized, err := domain.NormalizeTaxID(id)
				if err != nil {
					return err
				}
				id = normalized
			}
			if !cmd.Flags().Changed("all") {
				all = c.includeInactive
			}

			res, err := c.fields.FieldsByTaxID(cmd.Context(), id, usecases.RegistryOptions{IncludeInactive: all})
			if err != nil {
				return err
			}
			if res.Summary.Pagination == domain.PaginationFailed {
				c.logger.Warn("registry pagination stopped early, output is partial",
					"tax_id", id, "pages", res.Summary.Pages)
			}
			return c.print(cmd.OutOrStdout(), res, res.Fields)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include deregistered establishments")
	cmd.Flags().BoolVar(&lenient, "lenient", false, "accept a CUIT without separators, e.g. 30123456789")
	return cmd
}
