package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	rag_http "knowledge-rag/internal/adapter/rag_http"
	"knowledge-rag/internal/domain"
)

func newVoteCommand(a *app) *cobra.Command {
	var (
		relevance    float64
		completeness string
		question     string
		comment      string
	)

	cmd := &cobra.Command{
		Use:   "vote DOC_ID up|down",
		Short: "Submit a rating for one document",
		Long: `Vote posts a rating to /v1/feedback. The server only moves the document's
quality score when --relevance is at least 0.4 and --completeness is "complete";
otherwise the rating is stored and the reason is printed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			docID := args[0]
			direction, err := domain.ParseVoteDirection(args[1])
			if err != nil {
				return err
			}
			label, err := domain.ParseCompletenessLabel(completeness)
			if err != nil {
				return err
			}

			res, err := a.api.Feedback(cmd.Context(), rag_http.FeedbackRequest{
				Question:      question,
				Rating:        string(direction),
				DocumentsUsed: []string{docID},
				RetrievedDocs: []domain.RatedPassage{{ID: docID, DocumentID: docID, RawSimilarity: relevance}},
				Completeness:  string(label),
				FeedbackText:  comment,
			})
			if err != nil {
				return err
			}

			a.logger.Debug("vote submitted", "document_id", docID, "rating_id", res.RatingID)
			status := "not scored"
			if res.ScoresUpdated {
				status = "scored"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n%s\n", docID, direction, status, res.Message)
			return err
		},
	}

	cmd.Flags().Float64Var(&relevance, "relevance", 0, "retrieval similarity the document had for the rated answer")
	cmd.Flags().StringVar(&completeness, "completeness", string(domain.LabelComplete), "completeness label shown with the answer (complete|incomplete)")
	cmd.Flags().StringVar(&question, "question", "", "question the rating refers to")
	cmd.Flags().StringVar(&comment, "comment", "", "free-text feedback")
	_ = cmd.MarkFlagRequired("relevance")
	return cmd
}
