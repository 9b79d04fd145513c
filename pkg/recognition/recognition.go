package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"

	"github.com/Howie-0721/ICR-Identification-tool/pkg/config"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/log"
)

// Job describes a started batch recognition run as reported by the API.
type Job struct {
	ID         string
	Region     string
	TotalFiles int
	UploadID   string
}

// CompletedCounter reports how many documents of a batch have finished
// recognition. Implemented by the database client.
type CompletedCounter interface {
	CompletedCount(ctx context.Context, uploadID string) (int, error)
}

// Client triggers batch recognition and monitors its completion through the
// service database.
type Client struct {
	httpClient   *retryablehttp.Client
	apiURL       string
	regions      []string
	pollInterval time.Duration
}

// NewClient creates a recognition client from the RECOGNITION settings.
func NewClient(settings config.RecognitionSettings) *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 3
	httpClient.HTTPClient.Timeout = 60 * time.Second
	httpClient.Logger = log.Entry()

	return &Client{
		httpClient:   httpClient,
		apiURL:       settings.APIURL,
		regions:      settings.Regions,
		pollInterval: time.Duration(settings.PollIntervalSeconds) * time.Second,
	}
}

type batchRequest struct {
	Regions []string `json:"regions"`
}

type batchResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Jobs []struct {
			JobID      string `json:"jobId"`
			TotalFiles int    `json:"totalFiles"`
			Region     string `json:"region"`
			UploadID   string `json:"uploadId"`
		} `json:"jobs"`
	} `json:"data"`
}

// StartBatch triggers recognition of everything the service finds in its
// inbox and returns the resulting job. A job without an upload id cannot be
// monitored and is treated as an error.
func (c *Client) StartBatch(ctx context.Context) (*Job, error) {
	log.Entry().Infof("calling batch recognition API %s for regions %v", c.apiURL, c.regions)

	payload, err := json.Marshal(batchRequest{Regions: c.regions})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal batch request")
	}

	request, err := retryablehttp.NewRequest(http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create batch request")
	}
	request = request.WithContext(ctx)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, errors.Wrapf(err, "batch recognition call to %s failed", c.apiURL)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read batch response")
	}
	if response.StatusCode != http.StatusOK && response.StatusCode != http.StatusCreated {
		return nil, errors.Errorf("batch recognition call failed with status %d: %s", response.StatusCode, string(body))
	}

	var parsed batchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Wrap(err, "failed to decode batch response")
	}
	if !parsed.Success || len(parsed.Data.Jobs) == 0 {
		return nil, errors.Errorf("batch recognition reported no job: %s", string(body))
	}

	first := parsed.Data.Jobs[0]
	if first.UploadID == "" {
		return nil, errors.Errorf("batch recognition returned an empty upload id: %s", string(body))
	}

	job := &Job{
		ID:         first.JobID,
		Region:     first.Region,
		TotalFiles: first.TotalFiles,
		UploadID:   first.UploadID,
	}
	log.Entry().Infof("recognition started - job %s, upload id %s, %d files", job.ID, job.UploadID, job.TotalFiles)
	return job, nil
}

// WaitForCompletion polls the completed-document count of the job's batch
// until it has grown by the job's file count. Count failures are logged and
// retried on the next tick; cancelling the context aborts the wait.
func (c *Client) WaitForCompletion(ctx context.Context, counter CompletedCounter, job *Job) error {
	initial, err := counter.CompletedCount(ctx, job.UploadID)
	if err != nil {
		return errors.Wrap(err, "failed to read initial completion count")
	}
	target := initial + job.TotalFiles
	log.Entry().Infof("monitoring upload id %s: %d completed initially, expecting %d more",
		job.UploadID, initial, job.TotalFiles)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		current, err := counter.CompletedCount(ctx, job.UploadID)
		if err != nil {
			log.Entry().WithError(err).Error("completion count failed, retrying")
		} else {
			completed := current - initial
			progress := 0.0
			if job.TotalFiles > 0 {
				progress = float64(completed) / float64(job.TotalFiles) * 100
			}
			log.Entry().Infof("recognition progress: %d/%d (%.1f%%)", completed, job.TotalFiles, progress)
			if current >= target {
				log.Entry().Info("all documents recognized")
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "recognition monitoring cancelled")
		case <-ticker.C:
		}
	}
}
