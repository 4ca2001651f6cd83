package diarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL      = "https://api.assemblyai.com/v2"
	defaultTimeout      = 30 * time.Second
	defaultPollInterval = 2 * time.Second
	defaultPollTimeout  = 300 * time.Second
	defaultSpeakers     = 2
)

// Client talks to the cloud diarization service.
type Client struct {
	config *clientConfig
}

type clientConfig struct {
	apiKey           string
	baseURL          string
	httpClient       *http.Client
	timeout          time.Duration
	pollInterval     time.Duration
	pollTimeout      time.Duration
	speakersExpected int
}

// Option configures the client.
type Option func(*clientConfig)

// NewClient creates a diarization client.
//
// apiKey is the service API key.
func NewClient(apiKey string, opts ...Option) *Client {
	config := &clientConfig{
		apiKey:           apiKey,
		baseURL:          defaultBaseURL,
		timeout:          defaultTimeout,
		pollInterval:     defaultPollInterval,
		pollTimeout:      defaultPollTimeout,
		speakersExpected: defaultSpeakers,
	}

	for _, opt := range opts {
		opt(config)
	}

	if config.httpClient == nil {
		config.httpClient = &http.Client{
			Timeout: config.timeout,
		}
	}

	return &Client{config: config}
}

// WithBaseURL sets the HTTP API base URL.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithPollInterval sets the delay between job status polls.
func WithPollInterval(interval time.Duration) Option {
	return func(c *clientConfig) {
		c.pollInterval = interval
	}
}

// WithPollTimeout bounds how long Job.Wait polls before giving up.
func WithPollTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.pollTimeout = timeout
	}
}

// WithSpeakersExpected hints the expected speaker count to the service.
func WithSpeakersExpected(n int) Option {
	return func(c *clientConfig) {
		c.speakersExpected = n
	}
}

// Confidence decodes the service's mixed numeric and string confidence
// values into a float in [0, 1]. Strings naming a fallback decode to
// 0.6, other non-numeric values to 0.8.
type Confidence float64

func (c *Confidence) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*c = Confidence(clamp01(num))
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*c = 0.8
		return nil
	}
	if _, err := fmt.Sscanf(s, "%g", &num); err == nil {
		*c = Confidence(clamp01(num))
		return nil
	}
	if bytes.Contains([]byte(s), []byte("fallback")) {
		*c = 0.6
		return nil
	}
	*c = 0.8
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Utterance is one diarized utterance. Start and End are milliseconds.
type Utterance struct {
	Speaker    string      `json:"speaker"`
	Text       string      `json:"text"`
	Start      int         `json:"start"`
	End        *int        `json:"end,omitempty"`
	Confidence *Confidence `json:"confidence,omitempty"`
}

// Word is one diarized word. Start and End are milliseconds.
type Word struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Start   int    `json:"start"`
	End     *int   `json:"end,omitempty"`
}

// Result is a completed transcription job's payload.
type Result struct {
	ID         string      `json:"id"`
	Status     string      `json:"status"`
	Text       string      `json:"text"`
	Utterances []Utterance `json:"utterances,omitempty"`
	Words      []Word      `json:"words,omitempty"`
	ErrMessage string      `json:"error,omitempty"`
}

// Upload streams audio to the service's temporary storage and returns a
// URL usable in Submit. The service deletes the upload after the job.
func (c *Client) Upload(ctx context.Context, audio io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.baseURL+"/upload", audio)
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Authorization", c.config.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	var resp struct {
		UploadURL string `json:"upload_url"`
	}
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return resp.UploadURL, nil
}

// Submit creates a transcription job with speaker labels enabled.
func (c *Client) Submit(ctx context.Context, audioURL string) (*Job, error) {
	body := map[string]any{
		"audio_url":         audioURL,
		"speaker_labels":    true,
		"speakers_expected": c.config.speakersExpected,
		"format_text":       true,
		"punctuate":         true,
		"speech_model":      "best",
	}

	jsonBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal submit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.baseURL+"/transcript", bytes.NewReader(jsonBytes))
	if err != nil {
		return nil, fmt.Errorf("create submit request: %w", err)
	}
	req.Header.Set("Authorization", c.config.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var resp Result
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &Job{ID: resp.ID, client: c}, nil
}

// status fetches the current job payload.
func (c *Client) status(ctx context.Context, jobID string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.baseURL+"/transcript/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("create status request: %w", err)
	}
	req.Header.Set("Authorization", c.config.apiKey)

	var resp Result
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(req *http.Request, result any) error {
	resp, err := c.config.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &Error{HTTPStatus: resp.StatusCode}
		if json.Unmarshal(respBody, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = string(respBody)
		}
		return apiErr
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// Job is a submitted transcription job.
type Job struct {
	ID     string
	client *Client
}

// Wait polls the job until it completes, fails, or the poll budget is
// spent. Transient poll errors are retried within the budget when the
// service says they are retryable.
func (j *Job) Wait(ctx context.Context) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, j.client.config.pollTimeout)
	defer cancel()

	ticker := time.NewTicker(j.client.config.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return nil, ErrPollTimeout
			}
			return nil, ctx.Err()
		case <-ticker.C:
			result, err := j.client.status(ctx, j.ID)
			if err != nil {
				if ctx.Err() == context.DeadlineExceeded {
					return nil, ErrPollTimeout
				}
				if apiErr, ok := AsError(err); ok && apiErr.Retryable() {
					continue
				}
				return nil, err
			}

			switch result.Status {
			case "completed":
				return result, nil
			case "error":
				return nil, &Error{Message: result.ErrMessage, JobID: j.ID}
			}
			// queued or processing, keep polling
		}
	}
}

// Process runs the full upload, submit, wait, parse pipeline for one
// recording. The context bounds the whole exchange; the poll budget
// additionally bounds the wait phase.
func (c *Client) Process(ctx context.Context, audio io.Reader) ([]Segment, error) {
	uploadURL, err := c.Upload(ctx, audio)
	if err != nil {
		return nil, err
	}

	job, err := c.Submit(ctx, uploadURL)
	if err != nil {
		return nil, err
	}

	result, err := job.Wait(ctx)
	if err != nil {
		return nil, err
	}
	return ParseResult(result), nil
}
