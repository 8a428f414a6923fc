package worker

import (
	"context"
	"net/http"
	"time"

	"kb-engine/internal/domain/jobmodel"
	"kb-engine/internal/domain/kbmodel"
	"kb-engine/internal/ingest"
	"kb-engine/internal/metrics"
	"kb-engine/internal/query"
)

// Engine is what a worker drives: the two orchestrators behind the job types.
type Engine interface {
	Ingest(ctx context.Context, req ingest.Request) ingest.Outcome
	Reingest(ctx context.Context, req ingest.Request) ingest.Outcome
	Retrieve(ctx context.Context, req query.Request) ([]kbmodel.ScoredChunk, error)
}

func (p *Pool) executeJob(j jobmodel.Job) {
	start := time.Now()
	defer func() { metrics.CaptureJobMetrics(string(j.JobType), time.Since(start)) }()

	// the worker owns the job's lifetime, not the request that queued it
	ctx := context.Background()

	j.Status = jobmodel.JobStatusRunning
	_ = p.jobService.JobStore.SaveJob(ctx, j)

	switch j.JobType {
	case jobmodel.JobTypeIngest, jobmodel.JobTypeReingest:
		j = p.runIngest(ctx, j)
	case jobmodel.JobTypeRetrieve:
		j = p.runRetrieve(ctx, j)
	default:
		j = jobError(j, "unknown job type", false)
	}

	j.EndTime = time.Now()
	if err := p.jobService.JobStore.SaveJob(ctx, j); err != nil {
		p.logger.Error("could not persist job result", "jobId", j.Id, "error", err)
	}
}

func (p *Pool) runIngest(ctx context.Context, j jobmodel.Job) jobmodel.Job {
	j.CurrentStep = jobmodel.StepIngesting

	req := ingest.Request{
		Doc:       j.Payload.Document,
		FilePath:  j.Payload.FilePath,
		RichText:  j.Payload.RichText,
		Provider:  j.Payload.EmbedProvider,
		SessionID: j.SessionId,
	}

	var outcome ingest.Outcome
	if j.JobType == jobmodel.JobTypeReingest {
		outcome = p.engine.Reingest(ctx, req)
	} else {
		outcome = p.engine.Ingest(ctx, req)
	}

	if outcome.Err != nil {
		p.logger.Error("ingest job failed", "jobId", j.Id, "file", outcome.FileName, "error", outcome.Err)
		return jobError(j, outcome.Err.Error(), true)
	}

	j.Payload.Document.ID = outcome.DocID
	j.Payload.ChunkCount = outcome.Chunks
	j.Status = jobmodel.JobStatusComplete
	j.CurrentStep = jobmodel.StepComplete
	return j
}

func (p *Pool) runRetrieve(ctx context.Context, j jobmodel.Job) jobmodel.Job {
	j.CurrentStep = jobmodel.StepRetrieval

	results, err := p.engine.Retrieve(ctx, query.Request{
		Text:          j.Payload.Question,
		SessionID:     j.SessionId,
		EmbedProvider: j.Payload.EmbedProvider,
		GenProvider:   j.Payload.GenProvider,
		TopK:          j.Payload.TopK,
		Structured:    j.Payload.Structured,
	})
	if err != nil {
		p.logger.Error("retrieve job failed", "jobId", j.Id, "error", err)
		return jobError(j, "retrieval failed", true)
	}

	j.Payload.Results = results
	j.Status = jobmodel.JobStatusComplete
	j.CurrentStep = jobmodel.StepComplete
	return j
}

func jobError(j jobmodel.Job, message string, canRetry bool) jobmodel.Job {
	j.Error = jobmodel.JobError{
		Code:    http.StatusInternalServerError,
		Message: message,
		Retry:   canRetry,
	}
	j.Status = jobmodel.JobStatusError
	j.CurrentStep = jobmodel.StepError
	return j
}
