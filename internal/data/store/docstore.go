package store

import (
	"context"
	"sort"
	"sync"

	"kb-engine/internal/domain/kbmodel"
)

// InMemoryDocumentStore implements the narrow relational-collaborator
// interface for tests and single-process deployments. Category names double
// as ids here; the real store maps them properly.
type InMemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]kbmodel.SourceDocument
}

func NewInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{docs: make(map[string]kbmodel.SourceDocument)}
}

func (s *InMemoryDocumentStore) Create(_ context.Context, doc kbmodel.SourceDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	return nil
}

func (s *InMemoryDocumentStore) Get(_ context.Context, id string) (kbmodel.SourceDocument, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	return doc, ok, nil
}

func (s *InMemoryDocumentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

func (s *InMemoryDocumentStore) ListByCategory(_ context.Context, categoryID string) ([]kbmodel.SourceDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var docs []kbmodel.SourceDocument
	for _, doc := range s.docs {
		if doc.CategoryID == categoryID {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (s *InMemoryDocumentStore) Catalog(_ context.Context) (kbmodel.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCategory := make(map[string][]string)
	for _, doc := range s.docs {
		if doc.Active && doc.FileName != "" {
			byCategory[doc.CategoryID] = append(byCategory[doc.CategoryID], doc.FileName)
		}
	}

	var catalog kbmodel.Catalog
	for id, files := range byCategory {
		sort.Strings(files)
		catalog.Categories = append(catalog.Categories, kbmodel.CatalogCategory{
			ID:    id,
			Name:  id,
			Files: files,
		})
	}
	sort.Slice(catalog.Categories, func(i, j int) bool {
		return catalog.Categories[i].ID < catalog.Categories[j].ID
	})
	return catalog, nil
}
