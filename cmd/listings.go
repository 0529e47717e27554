package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/propguard/propguard/internal/model"
	"github.com/propguard/propguard/internal/store"
)

var listingsCmd = &cobra.Command{
	Use:   "listings",
	Short: "List stored listings and their dispositions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		status, _ := cmd.Flags().GetString("status")
		lister, _ := cmd.Flags().GetString("lister")
		limit, _ := cmd.Flags().GetInt("limit")

		e, err := initEnv(ctx, true)
		if err != nil {
			return err
		}
		defer e.Close()

		records, err := e.Store.ListListings(ctx, store.ListingFilter{
			Status: model.ListingStatus(status),
			Lister: lister,
			Limit:  limit,
		})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPROPERTY\tLISTER\tSCORE\tSTATUS\tCREATED")
		for _, rec := range records {
			score, disposition := "-", "-"
			if rec.Evaluation != nil {
				score = fmt.Sprintf("%.2f", rec.Evaluation.TotalScore)
				disposition = string(rec.Evaluation.Status)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				rec.ID, rec.Listing.PropertyName, rec.Listing.ListerName,
				score, disposition, rec.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

func init() {
	f := listingsCmd.Flags()
	f.String("status", "", "filter by status (AUTO_APPROVE, MANUAL_CHECK, AUTO_REJECT)")
	f.String("lister", "", "filter by lister name")
	f.Int("limit", 50, "maximum rows to return")

	rootCmd.AddCommand(listingsCmd)
}
