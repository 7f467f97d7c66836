package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"salonpos/backend/internal/domain"
	"salonpos/backend/internal/events"
)

const jobTimeout = 30 * time.Second

type Summarizer interface {
	DailySummary(ctx context.Context, day time.Time) (domain.DailySummary, error)
	Location() *time.Location
}

// DailySummaryJob reports the previous calendar day and publishes the result.
type DailySummaryJob struct {
	summaries Summarizer
	publisher events.Publisher
	now       func() time.Time
}

func NewDailySummaryJob(summaries Summarizer, publisher events.Publisher) *DailySummaryJob {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &DailySummaryJob{summaries: summaries, publisher: publisher, now: time.Now}
}

func (j *DailySummaryJob) Run(ctx context.Context) (domain.DailySummary, error) {
	day := j.now().In(j.summaries.Location()).AddDate(0, 0, -1)
	summary, err := j.summaries.DailySummary(ctx, day)
	if err != nil {
		return domain.DailySummary{}, fmt.Errorf("daily summary: %w", err)
	}
	if err := j.publisher.Publish(ctx, events.KeyDailySummary, summary); err != nil {
		return summary, fmt.Errorf("publish daily summary: %w", err)
	}
	return summary, nil
}

type Scheduler struct {
	cron *cron.Cron
}

// New registers the job on a standard five-field cron expression evaluated in loc.
func New(spec string, loc *time.Location, job *DailySummaryJob) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		summary, err := job.Run(ctx)
		if err != nil {
			log.Printf("[scheduler] WARN: %v", err)
			return
		}
		log.Printf("[scheduler] daily summary %s: %d transactions, total %s", summary.Date, summary.TransactionCount, summary.TotalSales.StringFixed(2))
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("[scheduler] daily summary scheduler started")
}

// Stop waits for a running job to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
