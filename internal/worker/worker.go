package worker

import (
	"sync"
	"sync/atomic"
	"time"

	"kb-engine/internal/config"
	"kb-engine/internal/job"
	"kb-engine/internal/metrics"
	"kb-engine/pkg/logging"
)

// Pool grows up to MaxWorkerCount workers on dispatcher signals and retires
// idle ones back down to the minimum. One worker executes one job at a time;
// stages inside a job run sequentially.
type Pool struct {
	jobService  *job.Service
	engine      Engine
	stopChannel chan bool
	waitGroup   *sync.WaitGroup
	workerCount atomic.Int64
	logger      *logging.Logger
}

func NewPool(jobService *job.Service, engine Engine, stop chan bool, wg *sync.WaitGroup) *Pool {
	return &Pool{
		jobService:  jobService,
		engine:      engine,
		stopChannel: stop,
		waitGroup:   wg,
		logger:      logging.New("WorkerPool"),
	}
}

func (p *Pool) Start() {
	p.logger.Info("Initializing worker pool")
	go p.dispatcher()
}

func (p *Pool) dispatcher() {
	p.createWorker()
	p.logger.Info("Dispatcher started")
	for range p.jobService.DispatcherChannel {
		if p.workerCount.Load() < config.MaxWorkerCount {
			p.logger.Info("Creating new worker", "workerCount", p.workerCount.Load())
			p.createWorker()
		}
	}
}

func (p *Pool) createWorker() {
	p.waitGroup.Add(1)
	go p.worker()
	p.workerCount.Add(1)
	metrics.IncrementActiveWorkerCount()
}

func (p *Pool) worker() {
	for {
		select {
		case currentJob := <-p.jobService.JobChannel:
			p.executeJob(currentJob)
			metrics.DecrementJobsInQueue()

		case <-p.stopChannel:
			p.removeWorker("stop signal received")
			return

		case <-time.After(config.IdleWorkerTimeout):
			if p.workerCount.Load() > config.MinWorkerCount {
				p.removeWorker("idle timeout")
				return
			}
		}
	}
}

func (p *Pool) removeWorker(reason string) {
	p.workerCount.Add(-1)
	metrics.DecrementActiveWorkerCount()
	p.waitGroup.Done()
	p.logger.Info("Worker retired", "reason", reason)
}
