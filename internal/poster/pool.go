package poster

import (
	"context"
	"sync"

	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/pkg/models"
	"github.com/rs/zerolog/log"
)

// WorkerPool downloads posters concurrently
type WorkerPool struct {
	downloader  *Downloader
	concurrency int
}

type task struct {
	detailURL string
	imageURL  string
}

// NewWorkerPool creates a pool of concurrency workers sharing d
func NewWorkerPool(d *Downloader, concurrency int) *WorkerPool {
	if concurrency <= 0 {
		concurrency = 4
	}
	if concurrency > 16 {
		concurrency = 16
	}
	return &WorkerPool{downloader: d, concurrency: concurrency}
}

// DownloadAll downloads the image of every record that has one. Results come
// back in completion order; records without an image are skipped.
func (wp *WorkerPool) DownloadAll(ctx context.Context, records []*models.ActivityRecord) []*Result {
	tasks := make([]task, 0, len(records))
	for _, rec := range records {
		if rec == nil || rec.ImageURL == nil {
			continue
		}
		tasks = append(tasks, task{detailURL: rec.DetailURL, imageURL: *rec.ImageURL})
	}
	if len(tasks) == 0 {
		return []*Result{}
	}

	jobs := make(chan task, len(tasks))
	results := make(chan *Result, len(tasks))

	var wg sync.WaitGroup
	for w := 1; w <= wp.concurrency; w++ {
		wg.Add(1)
		go wp.worker(ctx, w, jobs, results, &wg)
	}

	for _, t := range tasks {
		jobs <- t
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	all := make([]*Result, 0, len(tasks))
	for r := range results {
		all = append(all, r)
	}
	return all
}

func (wp *WorkerPool) worker(ctx context.Context, id int, jobs <-chan task, results chan<- *Result, wg *sync.WaitGroup) {
	defer wg.Done()

	for t := range jobs {
		select {
		case <-ctx.Done():
			log.Debug().Int("worker_id", id).Msg("Poster worker cancelled")
			return
		default:
		}

		results <- wp.downloader.Download(ctx, t.detailURL, t.imageURL)
	}
}

// Collector is a sink that remembers written records for a later download
// pass.
type Collector struct {
	mu      sync.Mutex
	records []*models.ActivityRecord
}

func (c *Collector) Write(ctx context.Context, rec *models.ActivityRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
	return nil
}

func (c *Collector) Close() error { return nil }

// Records returns the records written so far
func (c *Collector) Records() []*models.ActivityRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*models.ActivityRecord(nil), c.records...)
}
