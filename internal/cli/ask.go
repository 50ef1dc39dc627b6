package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	rag_http "knowledge-rag/internal/adapter/rag_http"
)

func newAskCommand(a *app) *cobra.Command {
	var (
		docIDs     []string
		noEnrich   bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Ask a question against the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			autoEnrich := !noEnrich
			resp, err := a.api.Ask(cmd.Context(), rag_http.AskRequest{
				Question:   strings.Join(args, " "),
				DocIDs:     docIDs,
				AutoEnrich: &autoEnrich,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}

			fmt.Fprintf(out, "%s\n\n", resp.Answer)
			if len(resp.Citations) > 0 {
				t := newTable(out, "#", "SOURCE", "PAGE", "SCORE")
				for _, c := range resp.Citations {
					page := "-"
					if c.Page != nil {
						page = strconv.Itoa(*c.Page)
					}
					t.addRow(strconv.Itoa(c.Index), c.Source, page, fmt.Sprintf("%.3f", c.Score))
				}
				if err := t.render(); err != nil {
					return err
				}
				fmt.Fprintln(out)
			}

			status := "incomplete"
			if resp.IsComplete {
				status = "complete"
			}
			fmt.Fprintf(out, "completeness %.2f (%s, %s)  confidence %.2f  latency %.0fms  query %s\n",
				resp.Completeness, status, resp.Evaluation, resp.Confidence, resp.LatencyMS, resp.QueryID)
			if resp.MissingInformation != "" {
				fmt.Fprintf(out, "missing: %s\n", resp.MissingInformation)
			}
			if resp.Enrichment != nil {
				fmt.Fprintf(out, "\n%s\n", resp.Enrichment.Message)
				for _, s := range resp.Enrichment.Sources {
					fmt.Fprintf(out, "  - %s (%s) %s\n", s.Title, s.ProviderName, s.URL)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&docIDs, "doc", nil, "restrict retrieval to these document ids")
	cmd.Flags().BoolVar(&noEnrich, "no-enrich", false, "skip external enrichment")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output the raw response as JSON")
	return cmd
}
