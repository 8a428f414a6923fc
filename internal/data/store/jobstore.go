package store

import (
	"context"
	"encoding/json"
	"sync"

	"kb-engine/internal/config"
	"kb-engine/internal/data/cache"
	"kb-engine/internal/domain/jobmodel"
	"kb-engine/pkg/logging"
)

// RedisJobStore persists job state so callers can poll long-running ingestion
// and retrieval work across instances.
type RedisJobStore struct {
	store  *cache.Store
	logger *logging.Logger
}

func NewRedisJobStore(store *cache.Store) *RedisJobStore {
	return &RedisJobStore{
		store:  store,
		logger: logging.New("JobStore"),
	}
}

func (s *RedisJobStore) SaveJob(ctx context.Context, job jobmodel.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, "job:"+job.Id, data, config.JobStoreTTL)
}

func (s *RedisJobStore) GetJob(ctx context.Context, jobId string) (jobmodel.Job, bool) {
	var job jobmodel.Job
	val, err := s.store.Get(ctx, "job:"+jobId)
	if err != nil {
		if !s.store.IsNil(err) {
			s.logger.Error("job lookup failed", "jobId", jobId, "error", err)
		}
		return job, false
	}
	if err := json.Unmarshal([]byte(val), &job); err != nil {
		return job, false
	}
	return job, true
}

func (s *RedisJobStore) DeleteJob(ctx context.Context, jobID string) {
	if err := s.store.Del(ctx, "job:"+jobID); err != nil {
		s.logger.Error("error deleting job", "jobId", jobID, "error", err)
	}
}

// InMemoryJobStore keeps the process useful when redis is offline at startup;
// job state then does not survive a restart.
type InMemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]jobmodel.Job
}

func NewInMemoryJobStore() *InMemoryJobStore {
	return &InMemoryJobStore{jobs: make(map[string]jobmodel.Job)}
}

func (s *InMemoryJobStore) SaveJob(_ context.Context, job jobmodel.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.Id] = job
	return nil
}

func (s *InMemoryJobStore) GetJob(_ context.Context, jobId string) (jobmodel.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobId]
	return job, ok
}

func (s *InMemoryJobStore) DeleteJob(_ context.Context, jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
}
