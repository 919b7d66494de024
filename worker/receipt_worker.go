package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"donation-checkout-api/database"
	"donation-checkout-api/models"
	"donation-checkout-api/queue"
	"donation-checkout-api/services/email"
)

// delayedJobsSchedule moves due retries back onto the main queue.
const delayedJobsSchedule = "@every 10s"

type jobQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	CompleteJob(ctx context.Context, job *queue.Job) error
	FailJob(ctx context.Context, job *queue.Job, err error) error
	ProcessDelayedJobs(ctx context.Context) error
}

type donationReader interface {
	GetDonation(ctx context.Context, donationID int64) (*models.Donation, error)
}

// Worker handles background donation tasks
type Worker struct {
	queue     jobQueue
	donations donationReader
	receipts  email.ReceiptSender
	scheduler *cron.Cron
	shutdown  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

func NewWorker(q jobQueue, donations donationReader, receipts email.ReceiptSender) *Worker {
	return &Worker{
		queue:     q,
		donations: donations,
		receipts:  receipts,
		scheduler: cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(log.Default())))),
		shutdown:  make(chan struct{}),
	}
}

// Start begins processing jobs
func (w *Worker) Start(concurrency int) {
	if concurrency < 1 {
		concurrency = 1
	}

	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(i)
	}

	if _, err := w.scheduler.AddFunc(delayedJobsSchedule, w.promoteDelayedJobs); err != nil {
		log.Printf("Error scheduling delayed job promotion: %v", err)
	}
	w.scheduler.Start()

	log.Printf("Started %d worker goroutines", concurrency)
}

// Stop signals the workers and waits for in-flight jobs to finish.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		log.Println("Stopping worker...")
		close(w.shutdown)
		<-w.scheduler.Stop().Done()
	})
	w.wg.Wait()
}

func (w *Worker) promoteDelayedJobs() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := w.queue.ProcessDelayedJobs(ctx); err != nil {
		log.Printf("Error processing delayed jobs: %v", err)
	}
}

// processJobs continuously processes jobs from the queue
func (w *Worker) processJobs(workerID int) {
	defer w.wg.Done()
	log.Printf("Worker %d starting", workerID)

	for {
		select {
		case <-w.shutdown:
			log.Printf("Worker %d shutting down", workerID)
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		job, err := w.queue.Dequeue(ctx, 5*time.Second)
		cancel()

		if err != nil {
			log.Printf("Worker %d: Error dequeuing job: %v", workerID, err)
			time.Sleep(time.Second)
			continue
		}

		if job == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		log.Printf("Worker %d processing job %s of type %s", workerID, job.ID, job.Type)
		w.handle(job)
	}
}

func (w *Worker) handle(job *queue.Job) {
	jobErr := w.processJob(job)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if jobErr != nil {
		log.Printf("Error processing job %s: %v", job.ID, jobErr)
		if err := w.queue.FailJob(ctx, job, jobErr); err != nil {
			log.Printf("Error marking job %s as failed: %v", job.ID, err)
		}
		return
	}

	if err := w.queue.CompleteJob(ctx, job); err != nil {
		log.Printf("Error marking job %s as complete: %v", job.ID, err)
	}
}

func (w *Worker) processJob(job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeDonationReceipt:
		return w.processDonationReceipt(job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (w *Worker) processDonationReceipt(job *queue.Job) error {
	donationID, err := jobInt64(job.Data, "donation_id")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	donation, err := w.donations.GetDonation(ctx, donationID)
	if errors.Is(err, database.ErrDonationNotFound) {
		log.Printf("Donation %d no longer exists, dropping receipt job %s", donationID, job.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load donation %d: %v", donationID, err)
	}

	if donation.Status != models.DonationStatusCompleted {
		log.Printf("Donation %d is %s, no receipt sent", donationID, donation.Status)
		return nil
	}

	if err := w.receipts.SendDonationReceipt(donation); err != nil {
		if queue.IsLastAttempt(job) {
			log.Printf("Last attempt to send receipt for donation %d failed", donationID)
		}
		return fmt.Errorf("failed to send receipt for donation %d: %v", donationID, err)
	}

	log.Printf("Receipt sent for donation %d", donationID)
	return nil
}

// jobInt64 reads an id out of job data, which arrives as float64 after a
// round trip through JSON.
func jobInt64(data map[string]interface{}, key string) (int64, error) {
	var id int64
	switch v := data[key].(type) {
	case float64:
		id = int64(v)
	case int64:
		id = v
	case int:
		id = int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("invalid %s in job data", key)
		}
		id = n
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s in job data", key)
		}
		id = n
	default:
		return 0, fmt.Errorf("invalid %s in job data", key)
	}

	if id <= 0 {
		return 0, fmt.Errorf("invalid %s in job data", key)
	}
	return id, nil
}
