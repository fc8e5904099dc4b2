package queue

import (
	"sync"
	"testing"
)

func TestQueueAddAndSnapshot(t *testing.T) {
	q := New()

	job := q.Add("https://youtu.be/abc123")
	if job.ID == "" {
		t.Fatal("Expected job id")
	}

	snap := q.Snapshot()
	if len(snap.Jobs) != 1 {
		t.Fatalf("Expected 1 job, got %d", len(snap.Jobs))
	}
	if snap.QueuedCount != 1 {
		t.Errorf("QueuedCount = %d, want 1", snap.QueuedCount)
	}
	if snap.ActiveCount != 0 || snap.CompletedCount != 0 || snap.ErrorCount != 0 {
		t.Error("Expected other counts to be zero")
	}
	if snap.IsProcessing {
		t.Error("Expected IsProcessing false")
	}
}

func TestQueueAddAllPreservesOrder(t *testing.T) {
	q := New()
	urls := []string{
		"https://youtu.be/first",
		"https://youtu.be/second",
		"https://youtu.be/third",
	}
	jobs := q.AddAll(urls)
	if len(jobs) != 3 {
		t.Fatalf("Expected 3 jobs, got %d", len(jobs))
	}

	snap := q.Snapshot()
	for i, url := range urls {
		if snap.Jobs[i].URL != url {
			t.Errorf("Job %d URL = %q, want %q", i, snap.Jobs[i].URL, url)
		}
	}
}

func TestQueueUpdateStatus(t *testing.T) {
	q := New()
	job := q.Add("https://youtu.be/abc")

	q.UpdateStatus(job.ID, StatusDownloading, 42.5, "Downloading...")

	got, ok := q.Get(job.ID)
	if !ok {
		t.Fatal("Job not found")
	}
	if got.Status != StatusDownloading {
		t.Errorf("Status = %v, want %v", got.Status, StatusDownloading)
	}
	if got.Progress != 42.5 {
		t.Errorf("Progress = %v, want 42.5", got.Progress)
	}
	if got.Message != "Downloading..." {
		t.Errorf("Message = %q", got.Message)
	}
	if got.StartedAt == nil {
		t.Error("Expected StartedAt to be set on Downloading transition")
	}
}

func TestQueueUpdateStatusUnknownIDIsNoop(t *testing.T) {
	q := New()
	q.Add("https://youtu.be/abc")

	// Must not panic or alter existing jobs.
	q.UpdateStatus("no-such-id", StatusComplete, 100, "done")

	snap := q.Snapshot()
	if snap.CompletedCount != 0 {
		t.Error("Unknown id update must not affect any job")
	}
}

func TestQueueTerminalTransitions(t *testing.T) {
	q := New()
	a := q.Add("https://youtu.be/a")
	b := q.Add("https://youtu.be/b")

	q.UpdateStatus(a.ID, StatusComplete, 100, "Download complete")
	q.UpdateStatus(b.ID, StatusError, 0, "yt-dlp exited with status 1")

	gotA, _ := q.Get(a.ID)
	if gotA.CompletedAt == nil {
		t.Error("Expected CompletedAt on Complete")
	}
	if gotA.Error != "" {
		t.Error("Complete job must not carry an error")
	}

	gotB, _ := q.Get(b.ID)
	if gotB.CompletedAt == nil {
		t.Error("Expected CompletedAt on Error")
	}
	if gotB.Error != "yt-dlp exited with status 1" {
		t.Errorf("Error = %q", gotB.Error)
	}

	snap := q.Snapshot()
	if snap.CompletedCount != 1 || snap.ErrorCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1", snap.CompletedCount, snap.ErrorCount)
	}
}

func TestQueueUpdateMetadata(t *testing.T) {
	q := New()
	job := q.Add("https://open.spotify.com/track/abc")

	q.UpdateMetadata(job.ID, func(j *DownloadJob) {
		j.Metadata.Title = "Bohemian Rhapsody"
		j.Metadata.Artist = "Queen"
		j.Metadata.Album = "A Night at the Opera"
	})

	got, _ := q.Get(job.ID)
	if got.Metadata.Artist != "Queen" {
		t.Errorf("Artist = %q, want Queen", got.Metadata.Artist)
	}

	// Unknown id is a silent no-op.
	q.UpdateMetadata("missing", func(j *DownloadJob) {
		t.Error("mutator must not run for unknown id")
	})
}

func TestQueueRemove(t *testing.T) {
	q := New()
	a := q.Add("https://youtu.be/a")
	b := q.Add("https://youtu.be/b")

	if !q.Remove(a.ID) {
		t.Error("Expected Remove to report true for existing job")
	}
	if q.Remove(a.ID) {
		t.Error("Expected Remove to report false for missing job")
	}

	snap := q.Snapshot()
	if len(snap.Jobs) != 1 || snap.Jobs[0].ID != b.ID {
		t.Error("Expected only second job to remain")
	}
}

func TestQueueClearCompleted(t *testing.T) {
	q := New()
	a := q.Add("https://youtu.be/a")
	b := q.Add("https://youtu.be/b")
	c := q.Add("https://youtu.be/c")

	q.UpdateStatus(a.ID, StatusComplete, 100, "done")
	q.UpdateStatus(b.ID, StatusError, 0, "failed")

	removed := q.ClearCompleted()
	if removed != 2 {
		t.Errorf("ClearCompleted() = %d, want 2", removed)
	}

	snap := q.Snapshot()
	if len(snap.Jobs) != 1 || snap.Jobs[0].ID != c.ID {
		t.Error("Expected only queued job to remain")
	}
}

func TestQueueClearAll(t *testing.T) {
	q := New()
	q.AddAll([]string{"https://youtu.be/a", "https://youtu.be/b"})

	if n := q.ClearAll(); n != 2 {
		t.Errorf("ClearAll() = %d, want 2", n)
	}
	if q.Len() != 0 {
		t.Error("Expected empty queue")
	}
}

func TestQueueNextQueued(t *testing.T) {
	q := New()

	if _, ok := q.NextQueued(); ok {
		t.Error("Expected no queued job in empty queue")
	}

	a := q.Add("https://youtu.be/a")
	b := q.Add("https://youtu.be/b")

	id, ok := q.NextQueued()
	if !ok || id != a.ID {
		t.Errorf("NextQueued() = %q, want first job %q", id, a.ID)
	}

	q.UpdateStatus(a.ID, StatusComplete, 100, "done")

	id, ok = q.NextQueued()
	if !ok || id != b.ID {
		t.Errorf("NextQueued() = %q, want %q after first completes", id, b.ID)
	}

	q.UpdateStatus(b.ID, StatusError, 0, "failed")

	if _, ok := q.NextQueued(); ok {
		t.Error("Expected no queued jobs after all finished")
	}
}

func TestQueueProcessingFlag(t *testing.T) {
	q := New()

	if !q.TryBeginProcessing() {
		t.Fatal("Expected first claim to succeed")
	}
	if q.TryBeginProcessing() {
		t.Error("Expected second claim to fail while processing")
	}
	if !q.IsProcessing() {
		t.Error("Expected IsProcessing true")
	}

	q.EndProcessing()

	if q.IsProcessing() {
		t.Error("Expected IsProcessing false after EndProcessing")
	}
	if !q.TryBeginProcessing() {
		t.Error("Expected claim to succeed after release")
	}
}

func TestQueueSnapshotIsCopy(t *testing.T) {
	q := New()
	job := q.Add("https://youtu.be/abc")

	snap := q.Snapshot()
	snap.Jobs[0].Metadata.Title = "mutated"

	got, _ := q.Get(job.ID)
	if got.Metadata.Title == "mutated" {
		t.Error("Snapshot must not share state with the queue")
	}
}

func TestQueueConcurrentAccess(t *testing.T) {
	q := New()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job := q.Add("https://youtu.be/abc")
			q.UpdateStatus(job.ID, StatusDownloading, 10, "working")
			q.Snapshot()
			q.UpdateStatus(job.ID, StatusComplete, 100, "done")
		}()
	}
	wg.Wait()

	snap := q.Snapshot()
	if snap.CompletedCount != 20 {
		t.Errorf("CompletedCount = %d, want 20", snap.CompletedCount)
	}
}
