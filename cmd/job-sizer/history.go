package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opscart/job-sizer/pkg/reporter"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <category>",
		Short: "View saved recommendations of a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category := args[0]

			store, err := a.openStore(true)
			if err != nil {
				return err
			}
			defer store.Close()

			results, err := store.ListResults(cmd.Context(), category, limit)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintf(a.out, "No recommendations found for category: %s\n", category)
				return nil
			}

			return reporter.Write(a.out, reporter.New("history of "+category, results), a.format)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Number of results to show")
	return cmd
}
