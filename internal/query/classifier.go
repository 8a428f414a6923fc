package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"kb-engine/internal/config"
	"kb-engine/internal/data/cache"
	"kb-engine/internal/domain/kbmodel"
	"kb-engine/internal/metrics"
	"kb-engine/internal/provider/llm"
	"kb-engine/pkg/logging"
)

// Classifier asks a generation provider to propose a narrowing filter for a
// query. Classification is an optimization: any provider or parse failure
// yields the no-filter result, never an error to the caller.
type Classifier struct {
	generator llm.Generator
	docs      kbmodel.DocumentStore
	cache     *cache.Store // optional catalog cache
	logger    *logging.Logger
}

func NewClassifier(generator llm.Generator, docs kbmodel.DocumentStore, cacheStore *cache.Store) *Classifier {
	return &Classifier{
		generator: generator,
		docs:      docs,
		cache:     cacheStore,
		logger:    logging.New("Metadata Classifier"),
	}
}

// Classify proposes a (category, file names) filter from the corpus catalog.
func (c *Classifier) Classify(ctx context.Context, queryText, provider, apiKey string) kbmodel.ClassifierResult {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("classify", time.Since(start)) }()

	catalog, err := c.catalog(ctx)
	if err != nil || len(catalog.Categories) == 0 {
		if err != nil {
			c.logger.Warn("catalog unavailable, skipping classification", "error", err)
		}
		return kbmodel.ClassifierResult{}
	}

	raw, err := c.generator.Generate(ctx, catalogPrompt(catalog, queryText), provider, apiKey)
	if err != nil {
		c.logger.Warn("classification call failed, falling back to unfiltered search", "error", err)
		return kbmodel.ClassifierResult{}
	}

	var parsed struct {
		CategoryID json.RawMessage `json:"category_id"`
		FileNames  []string        `json:"file_names"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &parsed); err != nil {
		c.logger.Warn("classifier returned malformed JSON, falling back to unfiltered search", "error", err)
		return kbmodel.ClassifierResult{}
	}

	return kbmodel.ClassifierResult{
		CategoryID: rawScalarString(parsed.CategoryID),
		FileNames:  parsed.FileNames,
	}
}

// MatchRecords shortlists candidate record names by exact intent match. An
// empty shortlist means "keep the vector-search candidates".
func (c *Classifier) MatchRecords(ctx context.Context, queryText string, candidates []string, provider, apiKey string) []string {
	if len(candidates) == 0 {
		return nil
	}

	raw, err := c.generator.Generate(ctx, recordsPrompt(candidates, queryText), provider, apiKey)
	if err != nil {
		c.logger.Warn("record match call failed, keeping vector candidates", "error", err)
		return nil
	}

	var names []string
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &names); err != nil {
		c.logger.Warn("record matcher returned malformed JSON, keeping vector candidates", "error", err)
		return nil
	}

	// only names that were actually offered; the model sometimes invents
	allowed := make(map[string]bool, len(candidates))
	for _, cand := range candidates {
		allowed[cand] = true
	}
	var matched []string
	for _, name := range names {
		if allowed[name] {
			matched = append(matched, name)
		}
	}
	return matched
}

func (c *Classifier) catalog(ctx context.Context) (kbmodel.Catalog, error) {
	const cacheKey = "catalog:files"

	if c.cache != nil {
		if raw, err := c.cache.Get(ctx, cacheKey); err == nil {
			var catalog kbmodel.Catalog
			if json.Unmarshal([]byte(raw), &catalog) == nil {
				return catalog, nil
			}
		}
	}

	catalog, err := c.docs.Catalog(ctx)
	if err != nil {
		return kbmodel.Catalog{}, err
	}

	if c.cache != nil {
		if data, err := json.Marshal(catalog); err == nil {
			if err := c.cache.Set(ctx, cacheKey, data, config.CatalogCacheTTL); err != nil {
				c.logger.Warn("could not cache catalog", "error", err)
			}
		}
	}
	return catalog, nil
}

func catalogPrompt(catalog kbmodel.Catalog, queryText string) string {
	var b strings.Builder
	for _, cat := range catalog.Categories {
		fmt.Fprintf(&b, "- Category %s - %s:\n", cat.ID, cat.Name)
		for _, f := range cat.Files {
			fmt.Fprintf(&b, "    • %s\n", f)
		}
	}

	return fmt.Sprintf(`You are a classifier for a retrieval system.

Given the user question and the list of categories and files below, decide
which category the question belongs to and which files contain the relevant
information.

### Categories:
%s
### User Question:
%s

### Output requirements:
Return ONLY JSON with exactly two fields:
- category_id: the id of the most relevant category
- file_names: a list of one or more matching files in that category

### Example:
{
  "category_id": "2",
  "file_names": ["thutuc_cap_giay_chung_nhan.pdf"]
}

Return ONLY JSON, no explanation.`, b.String(), queryText)
}

func recordsPrompt(candidates []string, queryText string) string {
	var b strings.Builder
	for _, name := range candidates {
		b.WriteString("- " + name + "\n")
	}

	return fmt.Sprintf(`You match a customer request against a list of named catalog entries.

Entries:
%s
Customer question: %q

Return the entries that match the question, names only, as a JSON array, for
example: ["Thủ tục đăng ký khai sinh"]. Return ONLY the JSON array.`, b.String(), queryText)
}

// stripCodeFence tolerates models that wrap JSON in a markdown fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

// rawScalarString accepts both "2" and 2; the model is not consistent about
// quoting ids. null and absent both mean no category.
func rawScalarString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}
