package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	rag_http "knowledge-rag/internal/adapter/rag_http"
)

func newIndexCommand(a *app) *cobra.Command {
	var (
		file  string
		title string
	)

	cmd := &cobra.Command{
		Use:   "index DOC_ID --file CHUNKS.json",
		Short: "Index pre-chunked document text, replacing any previous version",
		Long: `Index reads a JSON file shaped like

  {"title": "Operator Guide", "source_url": "https://...",
   "chunks": [{"text": "...", "page": 1}, ...]}

and replaces every chunk of DOC_ID in the caller's namespace.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readChunksFile(file)
			if err != nil {
				return err
			}
			if title != "" {
				req.Title = title
			}

			resp, err := a.api.IndexChunks(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d chunks for %s (replaced %d)\n",
				resp.ChunksIndexed, resp.DocumentID, resp.ChunksReplaced)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with the chunks to index")
	cmd.Flags().StringVar(&title, "title", "", "override the document title")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readChunksFile(path string) (rag_http.IndexChunksRequest, error) {
	var req rag_http.IndexChunksRequest
	raw, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("reading chunks file: %w", err)
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, fmt.Errorf("parsing chunks file %s: %w", path, err)
	}
	if len(req.Chunks) == 0 {
		return req, fmt.Errorf("chunks file %s has no chunks", path)
	}
	return req, nil
}
