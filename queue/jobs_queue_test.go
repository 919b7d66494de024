package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		retry int
		want  time.Duration
	}{
		{retry: 0, want: 15 * time.Second},
		{retry: 1, want: 15 * time.Second},
		{retry: 2, want: 30 * time.Second},
		{retry: 3, want: time.Minute},
		{retry: 5, want: 4 * time.Minute},
	}

	for _, tt := range tests {
		if got := RetryDelay(tt.retry); got != tt.want {
			t.Errorf("RetryDelay(%d) = %v; want %v", tt.retry, got, tt.want)
		}
	}
}

func TestIsLastAttempt(t *testing.T) {
	job := &Job{Data: map[string]interface{}{"is_last_attempt": true}, RetryCount: 1}
	if !IsLastAttempt(job) {
		t.Error("expected the flag to win")
	}

	job = &Job{Data: map[string]interface{}{}, RetryCount: MaxRetries}
	if !IsLastAttempt(job) {
		t.Error("expected MaxRetries to be the last attempt")
	}

	job = &Job{Data: map[string]interface{}{}, RetryCount: 2}
	if IsLastAttempt(job) {
		t.Error("did not expect retry 2 to be the last attempt")
	}
}

func TestNewJob(t *testing.T) {
	job := newJob(JobTypeDonationReceipt, nil)

	if _, err := uuid.Parse(job.ID); err != nil {
		t.Errorf("job id %q is not a uuid: %v", job.ID, err)
	}
	if job.Data == nil {
		t.Error("expected Data to be initialised")
	}
	if job.Type != JobTypeDonationReceipt {
		t.Errorf("Type = %q", job.Type)
	}
}

func TestResetForManualRetry(t *testing.T) {
	job := &Job{
		RetryCount: 6,
		Data: map[string]interface{}{
			"donation_id":           float64(12),
			"all_retries_exhausted": true,
			"final_failure_at":      time.Now(),
			"is_last_attempt":       true,
		},
	}

	resetForManualRetry(job, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	if job.RetryCount != 0 {
		t.Errorf("RetryCount = %d", job.RetryCount)
	}
	for _, key := range []string{"all_retries_exhausted", "final_failure_at", "is_last_attempt"} {
		if _, ok := job.Data[key]; ok {
			t.Errorf("%s should have been cleared", key)
		}
	}
	if job.Data["manual_retry"] != true {
		t.Error("expected manual_retry flag")
	}
	if job.Data["donation_id"] != float64(12) {
		t.Error("job payload must be kept")
	}
}

func TestJobRawPayloadIsNotSerialized(t *testing.T) {
	job := Job{ID: "abc", Type: JobTypeDonationReceipt, raw: "secret"}
	out, err := json.Marshal(job)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatal(err)
	}
	if _, ok := decoded["raw"]; ok {
		t.Error("raw payload leaked into JSON")
	}
}
