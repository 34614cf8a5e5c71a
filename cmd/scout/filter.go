package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/FranksOps/scout/internal/filter"
	"github.com/spf13/cobra"
)

func newFilterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter [URL...]",
		Short: "Apply the exclusion and stale-year rules to URLs from args or stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			links := args
			if len(links) == 0 {
				sc := bufio.NewScanner(cmd.InOrStdin())
				for sc.Scan() {
					if line := strings.TrimSpace(sc.Text()); line != "" {
						links = append(links, line)
					}
				}
				if err := sc.Err(); err != nil {
					return fmt.Errorf("failed to read urls: %w", err)
				}
			}

			lf := filter.New(cfg.FilterRules())
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				for _, l := range links {
					if reason, rejected := lf.Reason(l); rejected {
						fmt.Fprintf(cmd.ErrOrStderr(), "excluded %s (%s)\n", l, reason)
					}
				}
			}

			out := cmd.OutOrStdout()
			for _, l := range lf.Clean(links) {
				if _, err := fmt.Fprintln(out, l); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolP("verbose", "v", false, "print rejected URLs and the matching pattern to stderr")
	return cmd
}
