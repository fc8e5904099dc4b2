package queue

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time view of the queue for clients
type Snapshot struct {
	Jobs           []DownloadJob `json:"jobs"`
	ActiveCount    int           `json:"active_count"`
	QueuedCount    int           `json:"queued_count"`
	CompletedCount int           `json:"completed_count"`
	ErrorCount     int           `json:"error_count"`
	IsProcessing   bool          `json:"is_processing"`
}

// Queue is an in-memory ordered job list guarded by a single mutex.
// All methods are safe for concurrent use; none hold the lock across
// I/O.
type Queue struct {
	mu         sync.Mutex
	jobs       []*DownloadJob
	processing bool
}

// New creates an empty queue
func New() *Queue {
	return &Queue{}
}

// Add creates a job for the URL and appends it to the queue
func (q *Queue) Add(url string) *DownloadJob {
	job := NewJob(url)
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()
	copied := *job
	return &copied
}

// AddJob appends an already-constructed job, used for bulk enqueue
// where metadata and context are pre-populated.
func (q *Queue) AddJob(job *DownloadJob) {
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()
}

// AddAll creates and appends one job per URL, preserving order
func (q *Queue) AddAll(urls []string) []DownloadJob {
	jobs := make([]*DownloadJob, 0, len(urls))
	for _, url := range urls {
		jobs = append(jobs, NewJob(url))
	}

	q.mu.Lock()
	q.jobs = append(q.jobs, jobs...)
	q.mu.Unlock()

	out := make([]DownloadJob, len(jobs))
	for i, j := range jobs {
		out[i] = *j
	}
	return out
}

// Snapshot returns a copy of all jobs plus aggregate counts
func (q *Queue) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	snap := Snapshot{
		Jobs:         make([]DownloadJob, len(q.jobs)),
		IsProcessing: q.processing,
	}
	for i, job := range q.jobs {
		snap.Jobs[i] = *job
		switch job.Status {
		case StatusDownloading, StatusConverting:
			snap.ActiveCount++
		case StatusQueued:
			snap.QueuedCount++
		case StatusComplete:
			snap.CompletedCount++
		case StatusError:
			snap.ErrorCount++
		}
	}
	return snap
}

// UpdateStatus sets status, progress and message for a job.
// Unknown ids are ignored so late updates from finished work
// cannot corrupt the queue.
func (q *Queue) UpdateStatus(jobID string, status Status, progress float64, message string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job := q.find(jobID)
	if job == nil {
		return
	}
	job.Status = status
	job.Progress = progress
	job.Message = message

	now := time.Now().Unix()
	switch status {
	case StatusDownloading:
		if job.StartedAt == nil {
			job.StartedAt = &now
		}
	case StatusComplete:
		job.CompletedAt = &now
	case StatusError:
		job.CompletedAt = &now
		job.Error = message
	}
}

// SetOutputPath records where a completed job's file was written
func (q *Queue) SetOutputPath(jobID, path string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if job := q.find(jobID); job != nil {
		job.OutputPath = path
	}
}

// UpdateMetadata applies a mutator to a job under the lock.
// Unknown ids are ignored.
func (q *Queue) UpdateMetadata(jobID string, fn func(*DownloadJob)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if job := q.find(jobID); job != nil {
		fn(job)
	}
}

// Get returns a copy of a job, or false if it does not exist
func (q *Queue) Get(jobID string) (DownloadJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if job := q.find(jobID); job != nil {
		return *job, true
	}
	return DownloadJob{}, false
}

// Remove deletes a job and reports whether it existed
func (q *Queue) Remove(jobID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, job := range q.jobs {
		if job.ID == jobID {
			q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
			return true
		}
	}
	return false
}

// ClearCompleted removes Complete and Error jobs, returning how many
func (q *Queue) ClearCompleted() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.jobs[:0]
	removed := 0
	for _, job := range q.jobs {
		if job.Status.IsTerminal() {
			removed++
			continue
		}
		kept = append(kept, job)
	}
	q.jobs = kept
	return removed
}

// ClearAll removes every job regardless of status
func (q *Queue) ClearAll() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.jobs)
	q.jobs = nil
	return n
}

// NextQueued returns the id of the first job still in Queued state
func (q *Queue) NextQueued() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, job := range q.jobs {
		if job.Status == StatusQueued {
			return job.ID, true
		}
	}
	return "", false
}

// QueuedCount returns the number of jobs waiting to be processed
func (q *Queue) QueuedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, job := range q.jobs {
		if job.Status == StatusQueued {
			n++
		}
	}
	return n
}

// Len returns the total number of jobs in the queue
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// TryBeginProcessing atomically claims the processing flag. It
// returns false if a processing loop is already running.
func (q *Queue) TryBeginProcessing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.processing {
		return false
	}
	q.processing = true
	return true
}

// EndProcessing releases the processing flag
func (q *Queue) EndProcessing() {
	q.mu.Lock()
	q.processing = false
	q.mu.Unlock()
}

// IsProcessing reports whether a processing loop is running
func (q *Queue) IsProcessing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.processing
}

// find returns the job with the given id. Caller must hold the lock.
func (q *Queue) find(jobID string) *DownloadJob {
	for _, job := range q.jobs {
		if job.ID == jobID {
			return job
		}
	}
	return nil
}
