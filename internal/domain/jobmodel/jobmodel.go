package jobmodel

import (
	"context"
	"time"

	"kb-engine/internal/domain/kbmodel"
)

type JobStatus string
type JobType string
type InternalStatus string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "ERROR"

	JobTypeIngest   JobType = "Ingest"
	JobTypeReingest JobType = "Reingest"
	JobTypeRetrieve JobType = "Retrieve"

	StepInit      InternalStatus = "Init"
	StepIngesting InternalStatus = "Ingesting"
	StepRetrieval InternalStatus = "Retrieval"
	StepComplete  InternalStatus = "Complete"
	StepError     InternalStatus = "Error"
)

type Job struct {
	Id          string         `json:"id"`
	SessionId   string         `json:"session_id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	Payload     Payload        `json:"payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

type Payload struct {
	// ingestion
	Document kbmodel.SourceDocument `json:"document,omitempty"`
	FilePath string                 `json:"file_path,omitempty"`
	RichText string                 `json:"rich_text,omitempty"`

	// retrieval
	Question   string `json:"question,omitempty"`
	TopK       int    `json:"top_k,omitempty"`
	Structured bool   `json:"structured,omitempty"`

	EmbedProvider string `json:"embed_provider,omitempty"`
	GenProvider   string `json:"gen_provider,omitempty"`

	// results
	ChunkCount int                   `json:"chunk_count,omitempty"`
	Results    []kbmodel.ScoredChunk `json:"results,omitempty"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}
