// Package notify is the best-effort side-effect channel: in-app
// notification rows, domain events and email leave the request path
// through a queue here. A failed job never fails the write that
// triggered it.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/vberezin/storehub/internal/mailer"
	"github.com/vberezin/storehub/internal/models"
	"github.com/vberezin/storehub/internal/mykafka"
)

const (
	queueSize     = 256
	emailAttempts = 3
	publishWindow = 5 * time.Second
)

type Job struct {
	UserID  uint   // notification recipient; 0 skips the row
	Message string

	Email   string // recipient address; empty skips email
	Subject string
	Body    string

	Topic string // kafka topic; empty skips the event
	Key   string
	Event map[string]any
}

type Dispatcher struct {
	db       *gorm.DB
	mail     mailer.Mailer
	producer *mykafka.Producer
	log      *slog.Logger

	backoff time.Duration
	jobs    chan Job
	wg      sync.WaitGroup
	once    sync.Once
}

func New(db *gorm.DB, m mailer.Mailer, p *mykafka.Producer, log *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		db:       db,
		mail:     m,
		producer: p,
		log:      log,
		backoff:  time.Second,
		jobs:     make(chan Job, queueSize),
	}
	go d.run()
	return d
}

// Enqueue never blocks: when the queue is full the job is dropped and
// logged, which is the contract callers rely on.
func (d *Dispatcher) Enqueue(job Job) {
	d.wg.Add(1)
	select {
	case d.jobs <- job:
	default:
		d.wg.Done()
		d.log.Warn("notify queue full, job dropped", "user_id", job.UserID, "topic", job.Topic)
	}
}

// Flush waits until every enqueued job has been processed.
func (d *Dispatcher) Flush() {
	d.wg.Wait()
}

func (d *Dispatcher) Close() {
	d.wg.Wait()
	d.once.Do(func() { close(d.jobs) })
}

func (d *Dispatcher) run() {
	for job := range d.jobs {
		d.process(job)
		d.wg.Done()
	}
}

func (d *Dispatcher) process(job Job) {
	if job.UserID != 0 && job.Message != "" {
		n := models.Notification{UserID: job.UserID, Message: job.Message}
		if err := d.db.Create(&n).Error; err != nil {
			d.log.Error("notification write failed", "user_id", job.UserID, "error", err)
		}
	}

	if job.Topic != "" && d.producer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), publishWindow)
		if err := d.producer.PublishEvent(ctx, job.Topic, job.Key, job.Event); err != nil {
			d.log.Error("event publish failed", "topic", job.Topic, "error", err)
		}
		cancel()
	}

	if job.Email != "" {
		d.sendMail(job)
	}
}

func (d *Dispatcher) sendMail(job Job) {
	body := job.Body
	if body == "" {
		body = job.Message
	}
	var err error
	for attempt := 1; attempt <= emailAttempts; attempt++ {
		if err = d.mail.Send(job.Email, job.Subject, body); err == nil {
			return
		}
		d.log.Warn("email send failed", "to", job.Email, "attempt", attempt, "error", err)
		if attempt < emailAttempts {
			time.Sleep(d.backoff * time.Duration(attempt))
		}
	}
	d.log.Error("email dropped after retries", "to", job.Email, "subject", job.Subject, "error", err)
}
