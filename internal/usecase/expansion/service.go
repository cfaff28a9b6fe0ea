// Package expansion turns a user utterance into ranked search-box queries
// via the LLM.
package expansion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/luminehq/lumine/internal/domain"
	"github.com/luminehq/lumine/internal/metrics"
)

const maxQueries = 3

const systemPromptTemplate = `You are an expert at using the search box of a social network. Generate a JSON array (string[]) of related search queries, ranked from most to least effective, that you would enter directly into the search box. Provide ONLY the JSON array, without explanations or backticks. Optimize your queries by:

*   Using synonyms and related terms if the term is not popular.
*   Considering the original query's context.
*   Avoiding irrelevant or duplicate terms.
*   Prioritizing high-quality results.
*   Keeping queries concise and understandable.
*   Avoiding overly broad or vague terms.
*   Using quotes for exact phrases (do not use this unless exact phrases are required).
*   Using the 'lang:' keyword with a two-letter language code to specify language.
*   Using '-' before a word, term, or hashtag to exclude it from the search results. For example, '-"apple park"' will exclude posts containing the phrase 'apple park'.

Examples:
* 'lumine genshin -cosplay -"created by" -illustration -art -#aiart -draw -drawing' - Exclude obvious irrelevant terms from search results. Genshin is an anime game with a lot of fan art and cosplay, which usually isn't relevant.
* 'severance latest episode spoilers -"no spoilers" -"season 1"' - to find plot points for the latest episode of Severance

Strategically use the above rules to generate queries that are likely to yield high-quality results.
The first query will be used for searching the web as well.
If you deem searching not necessary (e.g. when the query is too broad or vague, or is conversational and not requesting information) return an empty array.
The date is %s.

IMPORTANT: Always provide your answer in a JSON array of strings (string[]).`

// Service asks the LLM for related search queries.
type Service struct {
	llm    Completer
	model  string
	logger *zap.Logger
	now    func() time.Time
}

// New creates a query expansion service.
func New(llm Completer, model string, logger *zap.Logger) *Service {
	return &Service{llm: llm, model: model, logger: logger, now: time.Now}
}

// ExpandQuery returns up to 3 ranked search queries for a single query.
// Expansion never fails the request: provider errors and malformed
// output both degrade to an empty list.
func (s *Service) ExpandQuery(ctx context.Context, query string) []string {
	payload, err := json.Marshal(query)
	if err != nil {
		return nil
	}
	return s.expand(ctx, string(payload))
}

// ExpandConversation returns up to 3 ranked search queries for a full
// conversation, serialized so the LLM sees the dialogue context.
func (s *Service) ExpandConversation(ctx context.Context, messages []domain.Message) []string {
	payload, err := json.Marshal(messages)
	if err != nil {
		return nil
	}
	return s.expand(ctx, string(payload))
}

func (s *Service) expand(ctx context.Context, serialized string) []string {
	prompt := fmt.Sprintf(systemPromptTemplate, s.now().UTC().Format("2006-01-02"))

	out, err := s.llm.Complete(ctx, s.model, []domain.Message{
		{Role: domain.RoleSystem, Content: prompt},
		{Role: domain.RoleUser, Content: "Original query: " + serialized},
	})
	if err != nil {
		s.logger.Warn("Query expansion failed, continuing without expansions", zap.Error(err))
		return nil
	}

	queries, err := parseQueries(out)
	if err != nil {
		s.logger.Warn("Query expansion returned unparsable output",
			zap.String("output", out),
			zap.Error(err),
		)
		return nil
	}

	if len(queries) > maxQueries {
		queries = queries[:maxQueries]
	}
	metrics.ExpansionQueriesTotal.Add(float64(len(queries)))
	return queries
}

// parseQueries extracts a JSON string array from LLM output, tolerating
// code fences and surrounding prose.
func parseQueries(out string) ([]string, error) {
	out = strings.TrimSpace(out)
	out = strings.TrimPrefix(out, "```json")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")
	out = strings.TrimSpace(out)

	start := strings.Index(out, "[")
	end := strings.LastIndex(out, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in output")
	}

	var queries []string
	if err := json.Unmarshal([]byte(out[start:end+1]), &queries); err != nil {
		return nil, fmt.Errorf("parse query array: %w", err)
	}

	kept := queries[:0]
	for _, q := range queries {
		if strings.TrimSpace(q) != "" {
			kept = append(kept, q)
		}
	}
	return kept, nil
}
