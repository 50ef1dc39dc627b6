package rag_http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/infra/logger"
	"knowledge-rag/internal/usecase"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100

	userIDHeader     = "X-User-ID"
	feedbackThanks   = "Thank you for your feedback!"
	feedbackAccepted = " Your rating helps improve document quality."
)

type Handler struct {
	askUsecase       usecase.AskQuestionUsecase
	feedback         usecase.FeedbackIngestor
	statsUsecase     usecase.QualityStatsUsecase
	kbUsecase        usecase.KnowledgeBaseUsecase
	defaultNamespace string
	logger           *slog.Logger
}

func NewHandler(
	askUsecase usecase.AskQuestionUsecase,
	feedback usecase.FeedbackIngestor,
	statsUsecase usecase.QualityStatsUsecase,
	kbUsecase usecase.KnowledgeBaseUsecase,
	defaultNamespace string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		askUsecase:       askUsecase,
		feedback:         feedback,
		statsUsecase:     statsUsecase,
		kbUsecase:        kbUsecase,
		defaultNamespace: defaultNamespace,
		logger:           logger,
	}
}

// RegisterRoutes mounts the API under /v1.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	v1 := e.Group("/v1")
	v1.POST("/ask", h.Ask)
	v1.POST("/feedback", h.Feedback)
	v1.GET("/stats", h.Stats)
	v1.GET("/ratings", h.Ratings)
	v1.GET("/analytics/users/:id", h.UserAnalytics)
	v1.GET("/analytics/documents", h.DocumentUsage)
	v1.GET("/documents", h.ListDocuments)
	v1.DELETE("/documents/:id", h.DeleteDocument)
	v1.POST("/documents/check-url", h.CheckURL)
	v1.POST("/documents/:id/chunks", h.IndexChunks)
}

// namespace maps X-User-ID to a per-user namespace and tags the request
// context for logging.
func (h *Handler) namespace(c echo.Context) (string, string) {
	userID := strings.TrimSpace(c.Request().Header.Get(userIDHeader))
	ns := h.defaultNamespace
	if userID != "" {
		ns = "user-" + userID
	}

	ctx := logger.WithNamespace(c.Request().Context(), ns)
	if userID != "" {
		ctx = logger.WithUserID(ctx, userID)
	}
	c.SetRequest(c.Request().WithContext(ctx))
	return ns, userID
}

func (h *Handler) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrEmptyQuestion),
		errors.Is(err, domain.ErrInvalidRating),
		errors.Is(err, domain.ErrInvalidChunk):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	h.logger.ErrorContext(c.Request().Context(), "request_failed",
		slog.String("path", c.Path()),
		slog.String("error", err.Error()))
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

// Ask answers a question from the caller's namespace.
// (POST /v1/ask)
func (h *Handler) Ask(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	ns, userID := h.namespace(c)

	autoEnrich := true
	if req.AutoEnrich != nil {
		autoEnrich = *req.AutoEnrich
	}

	out, err := h.askUsecase.Execute(c.Request().Context(), usecase.AskInput{
		Question:   req.Question,
		UserID:     userID,
		Namespace:  ns,
		DocFilter:  req.DocIDs,
		AutoEnrich: autoEnrich,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, toAskResponse(out))
}

func toAskResponse(out *usecase.AskOutput) AskResponse {
	citations := make([]CitationResponse, len(out.Answer.Citations))
	for i, cite := range out.Answer.Citations {
		citations[i] = CitationResponse{
			Index:      cite.Index,
			DocumentID: cite.DocumentID,
			Source:     cite.Title,
			Page:       cite.Page,
			ChunkText:  cite.ChunkText,
			Score:      cite.Score,
			Metadata:   cite.Metadata,
		}
	}

	docs := make([]RetrievedDoc, len(out.Passages))
	for i, p := range out.Passages {
		docs[i] = RetrievedDoc{
			ID:            p.ID,
			DocumentID:    p.DocumentID,
			Score:         p.SimilarityScore,
			AdjustedScore: p.AdjustedScore,
			QualityFactor: p.QualityFactor,
		}
	}

	v := out.Evaluation.Verdict
	return AskResponse{
		QueryID:            out.QueryID,
		Question:           out.Question,
		Answer:             out.Answer.Text,
		Fallback:           out.Answer.Fallback,
		Citations:          citations,
		Confidence:         v.Confidence,
		Completeness:       v.Completeness,
		IsComplete:         v.IsComplete,
		Evaluation:         out.Evaluation.Kind.String(),
		MissingInformation: v.MissingInformation,
		SuggestedDocuments: v.SuggestedDocuments,
		SuggestedActions:   v.SuggestedActions,
		SearchQueries:      v.SuggestedSearchQueries,
		Enrichment:         out.Enrichment,
		DocumentsUsed:      out.DocumentsUsed,
		RetrievedDocs:      docs,
		LatencyMS:          out.LatencyMS,
	}
}

// Feedback records a rating and possibly votes on document quality.
// (POST /v1/feedback)
func (h *Handler) Feedback(c echo.Context) error {
	var req FeedbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	_, userID := h.namespace(c)

	res, err := h.feedback.Ingest(c.Request().Context(), domain.RatingEvent{
		Question:          req.Question,
		Answer:            req.Answer,
		Direction:         domain.VoteDirection(req.Rating),
		DocumentsUsed:     req.DocumentsUsed,
		RetrievedPassages: req.RetrievedDocs,
		CompletenessLabel: domain.CompletenessLabel(req.Completeness),
		UserID:            userID,
		FeedbackText:      req.FeedbackText,
	})
	if err != nil {
		return h.fail(c, err)
	}

	message := feedbackThanks + feedbackAccepted
	if !res.Accepted {
		message = feedbackThanks + " (" + res.Reason + ")"
	}
	return c.JSON(http.StatusOK, FeedbackResponse{
		Status:        "success",
		Message:       message,
		RatingID:      res.RatingID,
		ScoresUpdated: res.Accepted,
	})
}

// Stats reports document quality scores and recent rating volume.
// (GET /v1/stats)
func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.statsUsecase.Stats(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	scores := stats.DocumentScores
	if scores == nil {
		scores = []domain.QualityScore{}
	}
	return c.JSON(http.StatusOK, StatsResponse{TotalRatings: stats.TotalRatings, DocumentScores: scores})
}

// Ratings lists the newest ratings, optionally for one user.
// (GET /v1/ratings?user_id=&limit=)
func (h *Handler) Ratings(c echo.Context) error {
	limit, ok := parseLimit(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
	}

	var (
		records []domain.RatingRecord
		err     error
	)
	if userID := c.QueryParam("user_id"); userID != "" {
		records, err = h.statsUsecase.RatingsByUser(c.Request().Context(), userID, limit)
	} else {
		records, err = h.statsUsecase.RecentRatings(c.Request().Context(), limit)
	}
	if err != nil {
		return h.fail(c, err)
	}
	if records == nil {
		records = []domain.RatingRecord{}
	}
	return c.JSON(http.StatusOK, map[string]any{"ratings": records})
}

// UserAnalytics reports query volume and answer quality for one user.
// (GET /v1/analytics/users/:id)
func (h *Handler) UserAnalytics(c echo.Context) error {
	stats, found, err := h.statsUsecase.UserAnalytics(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	if !found {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no analytics for user"})
	}
	return c.JSON(http.StatusOK, stats)
}

// DocumentUsage lists the documents most often used in answers.
// (GET /v1/analytics/documents)
func (h *Handler) DocumentUsage(c echo.Context) error {
	limit, ok := parseLimit(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
	}
	usage, err := h.statsUsecase.DocumentUsage(c.Request().Context(), limit)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"documents": usage})
}

// parseLimit reads ?limit, defaulting and capping it.
func parseLimit(c echo.Context) (int, bool) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return min(n, maxListLimit), true
}

// (GET /v1/documents)
func (h *Handler) ListDocuments(c echo.Context) error {
	ns, _ := h.namespace(c)
	docs, err := h.kbUsecase.ListDocuments(c.Request().Context(), ns)
	if err != nil {
		return h.fail(c, err)
	}

	out := make([]DocumentResponse, len(docs))
	for i, d := range docs {
		out[i] = DocumentResponse{
			DocumentID:  d.DocumentID,
			Title:       d.Title,
			SourceType:  d.SourceType,
			SourceURL:   d.SourceURL,
			StorageType: d.StorageType,
			AddedAt:     d.AddedAt,
			ChunkCount:  d.ChunkCount,
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"documents": out, "total": len(out)})
}

// (DELETE /v1/documents/:id)
func (h *Handler) DeleteDocument(c echo.Context) error {
	ns, _ := h.namespace(c)
	docID := c.Param("id")

	n, err := h.kbUsecase.DeleteDocument(c.Request().Context(), ns, docID)
	if err != nil {
		return h.fail(c, err)
	}
	if n == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "document not found"})
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "deleted", "doc_id": docID, "chunks_deleted": n})
}

// (POST /v1/documents/check-url)
func (h *Handler) CheckURL(c echo.Context) error {
	var req CheckURLRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "url is required"})
	}
	ns, _ := h.namespace(c)

	docID, ok, err := h.kbUsecase.URLExists(c.Request().Context(), ns, req.URL)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, CheckURLResponse{Exists: ok, DocumentID: docID})
}

// IndexChunks replaces a document's chunks with the posted ones.
// (POST /v1/documents/:id/chunks)
func (h *Handler) IndexChunks(c echo.Context) error {
	var req IndexChunksRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	ns, _ := h.namespace(c)

	chunks := make([]usecase.ChunkInput, len(req.Chunks))
	for i, ch := range req.Chunks {
		chunks[i] = usecase.ChunkInput{Text: ch.Text, Page: ch.Page, Metadata: ch.Metadata}
	}

	out, err := h.kbUsecase.IndexChunks(c.Request().Context(), usecase.IndexChunksInput{
		Namespace:   ns,
		DocumentID:  c.Param("id"),
		Title:       req.Title,
		SourceURL:   req.SourceURL,
		SourceType:  req.SourceType,
		StorageType: req.StorageType,
		Chunks:      chunks,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, IndexChunksResponse{
		DocumentID:     out.DocumentID,
		ChunksIndexed:  out.ChunksIndexed,
		ChunksReplaced: out.ChunksReplaced,
	})
}
