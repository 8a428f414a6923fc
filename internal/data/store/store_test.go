package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"kb-engine/internal/data/cache"
	"kb-engine/internal/domain/jobmodel"
	"kb-engine/internal/domain/kbmodel"
)

func TestRedisJobStore_Lifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	jobStore := NewRedisJobStore(cache.New(client))

	ctx := context.Background()
	testJob := jobmodel.Job{
		Id:      "job_abc_123",
		JobType: jobmodel.JobTypeRetrieve,
		Status:  jobmodel.JobStatusRunning,
		Payload: jobmodel.Payload{Question: "Thủ tục làm hộ chiếu?"},
	}

	t.Run("Save and Get Roundtrip", func(t *testing.T) {
		if err := jobStore.SaveJob(ctx, testJob); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}

		got, found := jobStore.GetJob(ctx, testJob.Id)
		if !found {
			t.Fatal("Job was saved but not found in Redis")
		}
		if got.Payload.Question != testJob.Payload.Question || got.Status != jobmodel.JobStatusRunning {
			t.Errorf("data mismatch: %+v", got)
		}
	})

	t.Run("Get Non-Existent Job", func(t *testing.T) {
		if _, found := jobStore.GetJob(ctx, "ghost-id"); found {
			t.Error("Expected found=false for non-existent key")
		}
	})

	t.Run("Delete Job", func(t *testing.T) {
		jobStore.DeleteJob(ctx, testJob.Id)
		if mr.Exists("job:" + testJob.Id) {
			t.Error("Job still exists in Redis after DeleteJob call")
		}
	})
}

func TestInMemoryJobStore(t *testing.T) {
	s := NewInMemoryJobStore()
	ctx := context.Background()

	j := jobmodel.Job{Id: "j1", Status: jobmodel.JobStatusQueued}
	if err := s.SaveJob(ctx, j); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}
	if got, ok := s.GetJob(ctx, "j1"); !ok || got.Status != jobmodel.JobStatusQueued {
		t.Errorf("GetJob = %+v, %v", got, ok)
	}
	s.DeleteJob(ctx, "j1")
	if _, ok := s.GetJob(ctx, "j1"); ok {
		t.Error("job survived delete")
	}
}

func TestInMemoryDocumentStore_Catalog(t *testing.T) {
	s := NewInMemoryDocumentStore()
	ctx := context.Background()

	for _, doc := range []kbmodel.SourceDocument{
		{ID: "d1", CategoryID: "2", FileName: "visa.docx", Active: true},
		{ID: "d2", CategoryID: "2", FileName: "ho_chieu.pdf", Active: true},
		{ID: "d3", CategoryID: "1", FileName: "khai_sinh.pdf", Active: true},
		{ID: "d4", CategoryID: "1", FileName: "inactive.pdf", Active: false},
	} {
		if err := s.Create(ctx, doc); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	catalog, err := s.Catalog(ctx)
	if err != nil {
		t.Fatalf("Catalog failed: %v", err)
	}

	if len(catalog.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(catalog.Categories))
	}
	if catalog.Categories[0].ID != "1" || catalog.Categories[1].ID != "2" {
		t.Errorf("categories should come back sorted: %+v", catalog.Categories)
	}
	if len(catalog.Categories[0].Files) != 1 {
		t.Errorf("inactive documents must stay out of the catalog: %v", catalog.Categories[0].Files)
	}
	if got := catalog.Categories[1].Files; len(got) != 2 || got[0] != "ho_chieu.pdf" {
		t.Errorf("files should be sorted within a category: %v", got)
	}
}

func TestEnvKeySource(t *testing.T) {
	t.Setenv("KEYS_GEMINI_EMBEDDING", "sk-a, sk-b,,sk-c")

	keys, err := EnvKeySource{}.Keys(context.Background(), "gemini", kbmodel.PurposeEmbedding)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 3 {
		t.Fatalf("expected 3 keys (blank entry skipped), got %d", len(keys))
	}
	if keys[0].Value != "sk-a" || keys[2].Value != "sk-c" {
		t.Errorf("values mismatch: %+v", keys)
	}
	if keys[0].Name == keys[1].Name {
		t.Error("key names must be distinct")
	}
}

func TestEnvKeySource_Missing(t *testing.T) {
	keys, err := EnvKeySource{}.Keys(context.Background(), "nobody", kbmodel.PurposeGeneration)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if keys != nil {
		t.Errorf("missing env var should yield no keys, got %+v", keys)
	}
}
