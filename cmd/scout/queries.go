package main

import (
	"fmt"

	"github.com/FranksOps/scout/internal/query"
	"github.com/spf13/cobra"
)

func newQueriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queries",
		Short: "Print the search queries a scan would run, without searching",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			labels, _ := cmd.Flags().GetBool("labels")

			catalog := cfg.Catalog()
			b := cfg.Builder()
			out := cmd.OutOrStdout()
			for _, sector := range catalog.Sectors() {
				for _, pt := range catalog.PlacementTypes() {
					qs, err := b.Build(sector, pt, cfg.Region)
					if err != nil {
						logger.Warn("skipping pair", "sector", sector, "placement_type", pt, "err", err)
						continue
					}
					for i, q := range qs {
						line := q
						if labels && i < len(query.VariantLabels) {
							line = fmt.Sprintf("[%s | %s] %s: %s", sector, pt, query.VariantLabels[i], q)
						}
						if _, err := fmt.Fprintln(out, line); err != nil {
							return err
						}
					}
				}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringSlice("sector", nil, "sector to build queries for (repeatable; default all)")
	f.String("region", "", "region or city appended to the first four query variants")
	f.Bool("labels", false, "prefix each query with its sector, placement type and variant label")
	return cmd
}
