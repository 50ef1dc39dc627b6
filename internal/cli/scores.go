package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"knowledge-rag/internal/domain"
)

func newScoresCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scores",
		Short: "Show document quality scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.api.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Recent ratings: %d\n\n", stats.TotalRatings)
			return renderScores(cmd, stats.DocumentScores)
		},
	}
}

func renderScores(cmd *cobra.Command, scores []domain.QualityScore) error {
	t := newTable(cmd.OutOrStdout(), "DOCUMENT", "UP", "DOWN", "VOTES", "SCORE", "FACTOR", "UPDATED")
	for _, s := range scores {
		t.addRow(
			s.DocumentID,
			strconv.FormatUint(uint64(s.Upvotes), 10),
			strconv.FormatUint(uint64(s.Downvotes), 10),
			strconv.FormatUint(uint64(s.TotalVotes), 10),
			fmt.Sprintf("%+.2f", s.Score),
			fmt.Sprintf("%.3f", domain.QualityFactor(&s)),
			s.LastUpdated.Format("2006-01-02 15:04"),
		)
	}
	return t.render()
}
