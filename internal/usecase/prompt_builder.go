package usecase

import (
	"fmt"
	"strings"

	"knowledge-rag/internal/domain"
)

const paraphraseTemplate = `Given this question, generate 1 alternative phrasing that preserves the core intent but uses different words.

Original question: %s

Return ONLY a JSON array with one string, like: ["variation 1"]`

const answerTemplate = `You are a helpful assistant that answers questions based strictly on the provided documents.

**Instructions:**
1. Answer the question using ONLY information from the context below
2. Include citation markers [1], [2], etc. in your answer
3. If the context doesn't contain enough information, acknowledge what's missing
4. Be concise but complete

**Context:**
%s

**Question:** %s

**Answer:**`

const completenessTemplate = `You are an AI quality checker. Evaluate this Q&A pair for completeness and confidence.

**Question:** %s

**Answer:** %s

**Task:** Return a JSON object with:
{
  "confidence": 0.0-1.0,
  "completeness": 0.0-1.0,
  "is_complete": true/false,
  "missing_information": "what's missing or unclear (null if complete)",
  "suggested_documents": ["list of document types that would help"],
  "suggested_actions": ["actions to improve the knowledge base"],
  "search_queries": ["2-3 short search terms (2-4 words each, empty if complete)"]
}

For search_queries: Generate SHORT, SIMPLE search terms optimized for web/knowledge base search. Use proper nouns and technical terms, but keep them concise (2-4 words max). Focus on KEY CONCEPTS that need more information. Examples: "CUDA programming", "neural networks basics", "PyTorch tensors" - NOT "detailed explanation of CUDA programming concepts".

Be strict but fair. Mark is_complete=true ONLY if completeness >= 0.85 (85%% threshold). The answer must fully address the question.`

func buildParaphrasePrompt(question string) string {
	return fmt.Sprintf(paraphraseTemplate, question)
}

func buildAnswerPrompt(question, contextBlock string) string {
	return fmt.Sprintf(answerTemplate, contextBlock, question)
}

func buildCompletenessPrompt(question, answer string) string {
	return fmt.Sprintf(completenessTemplate, question, answer)
}

// contextEntry renders one numbered passage: "[n] (Source: title, p.page)\ntext\n".
func contextEntry(n int, p domain.Passage) string {
	page := "?"
	if p.Page != nil {
		page = fmt.Sprint(*p.Page)
	}
	return fmt.Sprintf("[%d] (Source: %s, p.%s)\n%s\n", n, p.SourceTitle, page, p.Text)
}

// buildContextBlock joins numbered entries for passages in order.
func buildContextBlock(passages []domain.Passage) string {
	parts := make([]string, len(passages))
	for i, p := range passages {
		parts[i] = contextEntry(i+1, p)
	}
	return strings.Join(parts, "\n")
}
