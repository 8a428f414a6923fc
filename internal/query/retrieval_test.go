package query

import (
	"context"
	"errors"
	"testing"

	"kb-engine/internal/domain/kbmodel"
	"kb-engine/internal/vectorstore"
)

type mockEmbedder struct {
	err error
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string, _, _ string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = []float32{0.5, 0.5}
	}
	return vectors, nil
}

type mockAssigner struct {
	errByPurpose map[kbmodel.KeyPurpose]error
}

func (m *mockAssigner) Assign(_ context.Context, _, _ string, purpose kbmodel.KeyPurpose) (kbmodel.APIKey, error) {
	if err := m.errByPurpose[purpose]; err != nil {
		return kbmodel.APIKey{}, err
	}
	return kbmodel.APIKey{Name: "key", Value: "sk"}, nil
}

// mockStore replays canned results per filter shape and records the queries.
type mockStore struct {
	unfiltered []kbmodel.ScoredChunk
	filtered   []kbmodel.ScoredChunk
	queries    []*vectorstore.Filter
	queryErr   error
}

func (m *mockStore) Upsert(context.Context, []kbmodel.Chunk) error { return nil }
func (m *mockStore) DeleteByFilter(context.Context, vectorstore.Filter) error { return nil }

func (m *mockStore) Query(_ context.Context, _ []float32, _ int, filter *vectorstore.Filter) ([]kbmodel.ScoredChunk, error) {
	m.queries = append(m.queries, filter)
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if filter == nil {
		return m.unfiltered, nil
	}
	return m.filtered, nil
}

type mockMatcher struct {
	classifyResult kbmodel.ClassifierResult
	matchResult    []string
	offered        []string
}

func (m *mockMatcher) Classify(context.Context, string, string, string) kbmodel.ClassifierResult {
	return m.classifyResult
}

func (m *mockMatcher) MatchRecords(_ context.Context, _ string, candidates []string, _, _ string) []string {
	m.offered = candidates
	return m.matchResult
}

func scoredChunk(id, procedure string, score float32) kbmodel.ScoredChunk {
	return kbmodel.ScoredChunk{
		Chunk: kbmodel.Chunk{
			ID:       id,
			Content:  procedure,
			Metadata: kbmodel.ChunkMetadata{ProcedureName: procedure},
		},
		Score: score,
	}
}

func TestRetrieve_UnfilteredWhenClassifierYieldsNothing(t *testing.T) {
	store := &mockStore{unfiltered: []kbmodel.ScoredChunk{scoredChunk("c1", "", 0.9)}}
	r := NewRetriever(&mockEmbedder{}, &mockAssigner{}, store, &mockMatcher{})

	results, err := r.Retrieve(context.Background(), Request{Text: "câu hỏi", EmbedProvider: "gemini"})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected the unfiltered results, got %d", len(results))
	}
	if len(store.queries) != 1 || store.queries[0] != nil {
		t.Errorf("expected one unfiltered query, got %+v", store.queries)
	}
}

func TestRetrieve_ClassifierNarrowsSearch(t *testing.T) {
	store := &mockStore{filtered: []kbmodel.ScoredChunk{scoredChunk("c1", "", 0.9)}}
	matcher := &mockMatcher{classifyResult: kbmodel.ClassifierResult{CategoryID: "2", FileNames: []string{"a.pdf"}}}
	r := NewRetriever(&mockEmbedder{}, &mockAssigner{}, store, matcher)

	results, err := r.Retrieve(context.Background(), Request{Text: "q", EmbedProvider: "gemini", GenProvider: "gemini"})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected filtered results, got %d", len(results))
	}
	if len(store.queries) != 1 || store.queries[0] == nil {
		t.Fatalf("expected one filtered query, got %+v", store.queries)
	}
	if store.queries[0].CategoryID != "2" || len(store.queries[0].FileNames) != 1 {
		t.Errorf("filter mismatch: %+v", store.queries[0])
	}
}

func TestRetrieve_EmptyFilteredRetriesUnfiltered(t *testing.T) {
	store := &mockStore{
		filtered:   nil,
		unfiltered: []kbmodel.ScoredChunk{scoredChunk("c1", "", 0.8)},
	}
	matcher := &mockMatcher{classifyResult: kbmodel.ClassifierResult{CategoryID: "9"}}
	r := NewRetriever(&mockEmbedder{}, &mockAssigner{}, store, matcher)

	results, err := r.Retrieve(context.Background(), Request{Text: "q", EmbedProvider: "gemini"})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected fallback results, got %d", len(results))
	}
	if len(store.queries) != 2 || store.queries[0] == nil || store.queries[1] != nil {
		t.Errorf("expected filtered then unfiltered query, got %+v", store.queries)
	}
}

func TestRetrieve_MissingGenerationKeyStillSearches(t *testing.T) {
	store := &mockStore{unfiltered: []kbmodel.ScoredChunk{scoredChunk("c1", "", 0.7)}}
	assigner := &mockAssigner{errByPurpose: map[kbmodel.KeyPurpose]error{
		kbmodel.PurposeGeneration: kbmodel.ErrNoKeysConfigured,
	}}
	r := NewRetriever(&mockEmbedder{}, assigner, store, &mockMatcher{})

	results, err := r.Retrieve(context.Background(), Request{Text: "q", EmbedProvider: "gemini", GenProvider: "gpt"})
	if err != nil {
		t.Fatalf("a missing generation pool must not fail retrieval: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected unfiltered results, got %d", len(results))
	}
}

func TestRetrieve_MissingEmbeddingKeyFails(t *testing.T) {
	assigner := &mockAssigner{errByPurpose: map[kbmodel.KeyPurpose]error{
		kbmodel.PurposeEmbedding: kbmodel.ErrNoKeysConfigured,
	}}
	r := NewRetriever(&mockEmbedder{}, assigner, &mockStore{}, &mockMatcher{})

	_, err := r.Retrieve(context.Background(), Request{Text: "q", EmbedProvider: "gemini"})
	if !errors.Is(err, kbmodel.ErrNoKeysConfigured) {
		t.Errorf("err = %v; want ErrNoKeysConfigured", err)
	}
}

func TestRetrieve_EmbedFailureFails(t *testing.T) {
	r := NewRetriever(&mockEmbedder{err: kbmodel.ErrEmbeddingFailed}, &mockAssigner{}, &mockStore{}, &mockMatcher{})

	_, err := r.Retrieve(context.Background(), Request{Text: "q", EmbedProvider: "gemini"})
	if !errors.Is(err, kbmodel.ErrEmbeddingFailed) {
		t.Errorf("err = %v; want ErrEmbeddingFailed", err)
	}
}

func TestRetrieveStructured_SecondPassScopesToMatches(t *testing.T) {
	store := &mockStore{
		unfiltered: []kbmodel.ScoredChunk{
			scoredChunk("c1", "Cấp hộ chiếu", 0.9),
			scoredChunk("c2", "Đăng ký kết hôn", 0.6),
		},
		filtered: []kbmodel.ScoredChunk{scoredChunk("c1", "Cấp hộ chiếu", 0.9)},
	}
	matcher := &mockMatcher{matchResult: []string{"Cấp hộ chiếu"}}
	r := NewRetriever(&mockEmbedder{}, &mockAssigner{}, store, matcher)

	results, err := r.Retrieve(context.Background(), Request{Text: "làm hộ chiếu", EmbedProvider: "gemini", Structured: true})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 1 || results[0].Metadata.ProcedureName != "Cấp hộ chiếu" {
		t.Fatalf("expected the matched record only, got %+v", results)
	}

	if len(matcher.offered) != 2 {
		t.Errorf("matcher should see every candidate name, saw %v", matcher.offered)
	}
	last := store.queries[len(store.queries)-1]
	if last == nil || len(last.ProcedureNames) != 1 || last.ProcedureNames[0] != "Cấp hộ chiếu" {
		t.Errorf("re-query should scope to matched names, got %+v", last)
	}
}

func TestRetrieveStructured_NoMatchKeepsShortlist(t *testing.T) {
	store := &mockStore{
		unfiltered: []kbmodel.ScoredChunk{
			scoredChunk("c1", "Cấp hộ chiếu", 0.9),
			scoredChunk("c2", "Đăng ký kết hôn", 0.6),
		},
	}
	r := NewRetriever(&mockEmbedder{}, &mockAssigner{}, store, &mockMatcher{})

	results, err := r.Retrieve(context.Background(), Request{Text: "q", EmbedProvider: "gemini", Structured: true})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("empty match must keep the vector shortlist, got %d", len(results))
	}
	if len(store.queries) != 1 {
		t.Errorf("no second query without matches, got %d", len(store.queries))
	}
}

func TestRetrieveStructured_EmptySecondPassKeepsShortlist(t *testing.T) {
	store := &mockStore{
		unfiltered: []kbmodel.ScoredChunk{scoredChunk("c1", "Cấp hộ chiếu", 0.9)},
		filtered:   nil,
	}
	matcher := &mockMatcher{matchResult: []string{"Cấp hộ chiếu"}}
	r := NewRetriever(&mockEmbedder{}, &mockAssigner{}, store, matcher)

	results, err := r.Retrieve(context.Background(), Request{Text: "q", EmbedProvider: "gemini", Structured: true})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != "c1" {
		t.Errorf("empty scoped re-query must fall back to the shortlist, got %+v", results)
	}
}
