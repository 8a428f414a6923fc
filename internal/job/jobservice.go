package job

import (
	"context"
	"time"

	"github.com/google/uuid"

	"kb-engine/internal/domain/jobmodel"
	"kb-engine/internal/metrics"
)

// Service owns the job channel the worker pool drains and the store callers
// poll. Each inbound ingestion or retrieval request becomes one queued job.
type Service struct {
	JobChannel        chan jobmodel.Job
	DispatcherChannel chan bool
	JobStore          jobmodel.JobStore
}

type ServiceConfig struct {
	JobChannel        chan jobmodel.Job
	DispatcherChannel chan bool
	JobStore          jobmodel.JobStore
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		JobChannel:        cfg.JobChannel,
		DispatcherChannel: cfg.DispatcherChannel,
		JobStore:          cfg.JobStore,
	}
}

// Enqueue stamps, persists and queues a job, nudging the dispatcher in case
// the pool wants another worker.
func (s *Service) Enqueue(ctx context.Context, jobType jobmodel.JobType, sessionID string, payload jobmodel.Payload) (jobmodel.Job, error) {
	j := jobmodel.Job{
		Id:          uuid.New().String(),
		SessionId:   sessionID,
		TraceId:     uuid.New().String(),
		JobType:     jobType,
		Payload:     payload,
		CreatedTime: time.Now(),
		Status:      jobmodel.JobStatusQueued,
		CurrentStep: jobmodel.StepInit,
	}

	if err := s.JobStore.SaveJob(ctx, j); err != nil {
		return jobmodel.Job{}, err
	}

	s.JobChannel <- j
	metrics.IncrementJobsInQueue()

	select {
	case s.DispatcherChannel <- true:
		metrics.StartDispatcherSignalCount()
	default:
	}
	return j, nil
}
