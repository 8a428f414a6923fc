package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"kb-engine/internal/domain/kbmodel"
)

type mockGenerator struct {
	response string
	err      error
	prompts  []string
}

func (m *mockGenerator) Generate(_ context.Context, prompt, _, _ string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

type mockCatalogDocs struct {
	catalog kbmodel.Catalog
	err     error
}

func (m *mockCatalogDocs) Create(context.Context, kbmodel.SourceDocument) error { return nil }
func (m *mockCatalogDocs) Get(context.Context, string) (kbmodel.SourceDocument, bool, error) {
	return kbmodel.SourceDocument{}, false, nil
}
func (m *mockCatalogDocs) Delete(context.Context, string) error { return nil }
func (m *mockCatalogDocs) ListByCategory(context.Context, string) ([]kbmodel.SourceDocument, error) {
	return nil, nil
}
func (m *mockCatalogDocs) Catalog(context.Context) (kbmodel.Catalog, error) {
	return m.catalog, m.err
}

func testCatalog() kbmodel.Catalog {
	return kbmodel.Catalog{Categories: []kbmodel.CatalogCategory{
		{ID: "1", Name: "Hộ tịch", Files: []string{"khai_sinh.pdf"}},
		{ID: "2", Name: "Xuất nhập cảnh", Files: []string{"ho_chieu.pdf", "visa.docx"}},
	}}
}

func TestClassify_ParsesFilter(t *testing.T) {
	gen := &mockGenerator{response: `{"category_id": "2", "file_names": ["ho_chieu.pdf"]}`}
	c := NewClassifier(gen, &mockCatalogDocs{catalog: testCatalog()}, nil)

	res := c.Classify(context.Background(), "làm hộ chiếu ở đâu", "gemini", "sk")

	if res.CategoryID != "2" {
		t.Errorf("category = %q; want 2", res.CategoryID)
	}
	if len(res.FileNames) != 1 || res.FileNames[0] != "ho_chieu.pdf" {
		t.Errorf("file names = %v", res.FileNames)
	}
	if len(gen.prompts) != 1 || !strings.Contains(gen.prompts[0], "ho_chieu.pdf") {
		t.Error("prompt should list the catalog files")
	}
}

func TestClassify_NumericCategoryID(t *testing.T) {
	gen := &mockGenerator{response: `{"category_id": 2, "file_names": ["visa.docx"]}`}
	c := NewClassifier(gen, &mockCatalogDocs{catalog: testCatalog()}, nil)

	res := c.Classify(context.Background(), "xin visa", "gemini", "sk")
	if res.CategoryID != "2" {
		t.Errorf("unquoted id should still parse, got %q", res.CategoryID)
	}
}

func TestClassify_CodeFenceTolerated(t *testing.T) {
	gen := &mockGenerator{response: "```json\n{\"category_id\": \"1\", \"file_names\": [\"khai_sinh.pdf\"]}\n```"}
	c := NewClassifier(gen, &mockCatalogDocs{catalog: testCatalog()}, nil)

	res := c.Classify(context.Background(), "đăng ký khai sinh", "gemini", "sk")
	if res.CategoryID != "1" {
		t.Errorf("fenced JSON should parse, got %+v", res)
	}
}

func TestClassify_MalformedJSONFallsBack(t *testing.T) {
	for _, response := range []string{
		"I think category 2 fits best.",
		`{"category_id": `,
		"",
	} {
		gen := &mockGenerator{response: response}
		c := NewClassifier(gen, &mockCatalogDocs{catalog: testCatalog()}, nil)

		res := c.Classify(context.Background(), "câu hỏi", "gemini", "sk")
		if !res.IsZero() {
			t.Errorf("response %q should yield the zero result, got %+v", response, res)
		}
	}
}

func TestClassify_ProviderFailureFallsBack(t *testing.T) {
	gen := &mockGenerator{err: errors.New("quota exceeded")}
	c := NewClassifier(gen, &mockCatalogDocs{catalog: testCatalog()}, nil)

	res := c.Classify(context.Background(), "câu hỏi", "gemini", "sk")
	if !res.IsZero() {
		t.Errorf("provider failure must not surface, got %+v", res)
	}
}

func TestClassify_EmptyCatalogSkipsProvider(t *testing.T) {
	gen := &mockGenerator{response: `{"category_id": "1"}`}
	c := NewClassifier(gen, &mockCatalogDocs{}, nil)

	res := c.Classify(context.Background(), "câu hỏi", "gemini", "sk")
	if !res.IsZero() {
		t.Errorf("empty catalog should classify to nothing, got %+v", res)
	}
	if len(gen.prompts) != 0 {
		t.Error("no catalog, no provider call")
	}
}

func TestMatchRecords_FiltersToOfferedCandidates(t *testing.T) {
	gen := &mockGenerator{response: `["Cấp hộ chiếu", "Thủ tục bịa đặt"]`}
	c := NewClassifier(gen, &mockCatalogDocs{}, nil)

	matched := c.MatchRecords(context.Background(), "làm hộ chiếu",
		[]string{"Cấp hộ chiếu", "Đăng ký kết hôn"}, "gemini", "sk")

	if len(matched) != 1 || matched[0] != "Cấp hộ chiếu" {
		t.Errorf("invented names must be dropped, got %v", matched)
	}
}

func TestMatchRecords_EmptyCandidates(t *testing.T) {
	gen := &mockGenerator{response: `["anything"]`}
	c := NewClassifier(gen, &mockCatalogDocs{}, nil)

	if got := c.MatchRecords(context.Background(), "q", nil, "gemini", "sk"); got != nil {
		t.Errorf("no candidates, no call, got %v", got)
	}
	if len(gen.prompts) != 0 {
		t.Error("provider should not be called without candidates")
	}
}

func TestMatchRecords_MalformedJSONKeepsCandidates(t *testing.T) {
	gen := &mockGenerator{response: "these two look right"}
	c := NewClassifier(gen, &mockCatalogDocs{}, nil)

	if got := c.MatchRecords(context.Background(), "q", []string{"A"}, "gemini", "sk"); got != nil {
		t.Errorf("malformed response should yield nil (keep shortlist), got %v", got)
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct{ in, want string }{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n[]\n```", `[]`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := stripCodeFence(tt.in); got != tt.want {
			t.Errorf("stripCodeFence(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}
