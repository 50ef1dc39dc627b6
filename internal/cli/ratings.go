package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

const questionColumnWidth = 48

func newRatingsCommand(a *app) *cobra.Command {
	var (
		userID string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "ratings",
		Short: "List recent ratings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.api.Ratings(cmd.Context(), userID, limit)
			if err != nil {
				return err
			}

			t := newTable(cmd.OutOrStdout(), "TIME", "USER", "RATING", "COMPLETENESS", "RELEVANCE", "QUESTION")
			for _, r := range records {
				t.addRow(
					r.Timestamp.Format("2006-01-02 15:04"),
					r.UserID,
					string(r.Rating),
					string(r.Completeness),
					fmt.Sprintf("%.2f", r.MaxRelevanceScore),
					truncate(r.Question, questionColumnWidth),
				)
			}
			return t.render()
		},
	}

	cmd.Flags().StringVar(&userID, "by", "", "only ratings from this user id")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of ratings")
	return cmd
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
