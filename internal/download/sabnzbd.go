package download

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// sabHTTPTimeout bounds every API call so a wedged daemon cannot stall the
// reconciliation loop.
const sabHTTPTimeout = 30 * time.Second

// sabMaxRetries is the number of retries after a failed request. Only
// connection-level failures are retried; API errors are not.
const sabMaxRetries = 2

// SABnzbdClient implements Client against a SABnzbd daemon.
type SABnzbdClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

// NewSABnzbdClient creates a new SABnzbd client.
func NewSABnzbdClient(baseURL, apiKey string, log *slog.Logger) *SABnzbdClient {
	if log == nil {
		log = slog.Default()
	}
	return &SABnzbdClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		log:     log.With("component", "sabnzbd"),
		httpClient: &http.Client{
			Timeout: sabHTTPTimeout,
		},
	}
}

// TestConnection verifies the daemon is reachable and returns its version.
func (c *SABnzbdClient) TestConnection(ctx context.Context) (string, error) {
	var resp versionResponse
	if err := c.doRequest(ctx, "version", url.Values{}, &resp); err != nil {
		return "", err
	}
	if resp.Version == "" {
		return "", fmt.Errorf("sabnzbd returned no version")
	}
	return resp.Version, nil
}

// Add sends an NZB URL to SABnzbd.
func (c *SABnzbdClient) Add(ctx context.Context, nzbURL string, opts AddOptions) (string, error) {
	c.log.Debug("adding nzb", "category", opts.Category)

	params := url.Values{
		"mode": {"addurl"},
		"name": {nzbURL},
	}
	if opts.Category != "" {
		params.Set("cat", opts.Category)
	}
	if opts.Name != "" {
		params.Set("nzbname", opts.Name)
	}

	var resp addResponse
	if err := c.doRequest(ctx, "addurl", params, &resp); err != nil {
		return "", err
	}

	if !resp.Status {
		if isAPIKeyError(resp.Error) {
			return "", ErrInvalidAPIKey
		}
		return "", fmt.Errorf("sabnzbd add failed: %s", resp.Error)
	}

	if len(resp.NzoIDs) == 0 {
		return "", fmt.Errorf("sabnzbd returned no nzo_id")
	}

	c.log.Debug("nzb added", "nzo_id", resp.NzoIDs[0])
	return resp.NzoIDs[0], nil
}

// Queue fetches the current download queue.
func (c *SABnzbdClient) Queue(ctx context.Context) ([]QueueItem, error) {
	params := url.Values{
		"mode": {"queue"},
	}

	var resp queueResponse
	if err := c.doRequest(ctx, "queue", params, &resp); err != nil {
		return nil, err
	}

	items := make([]QueueItem, 0, len(resp.Queue.Slots))
	for _, slot := range resp.Queue.Slots {
		items = append(items, QueueItem{
			ID:             slot.NzoID,
			Name:           slot.Filename,
			Status:         slot.Status,
			Progress:       parseFloat(slot.Percentage),
			SizeBytes:      int64(parseFloat(slot.MB) * 1024 * 1024),
			RemainingBytes: int64(parseFloat(slot.MBLeft) * 1024 * 1024),
			TimeLeft:       slot.TimeLeft,
		})
	}

	return items, nil
}

// History fetches up to limit recent history records.
func (c *SABnzbdClient) History(ctx context.Context, limit int) ([]HistoryItem, error) {
	params := url.Values{
		"mode": {"history"},
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var resp historyResponse
	if err := c.doRequest(ctx, "history", params, &resp); err != nil {
		return nil, err
	}

	items := make([]HistoryItem, 0, len(resp.History.Slots))
	for _, slot := range resp.History.Slots {
		items = append(items, HistoryItem{
			ID:          slot.NzoID,
			Name:        slot.Name,
			Status:      slot.Status,
			SizeBytes:   slot.Bytes,
			StoragePath: slot.Storage,
			FailMessage: slot.FailMessage,
		})
	}

	return items, nil
}

// Remove deletes a download from the queue.
func (c *SABnzbdClient) Remove(ctx context.Context, externalID string, deleteFiles bool) error {
	c.log.Debug("removing download", "nzo_id", externalID, "delete_files", deleteFiles)

	params := url.Values{
		"mode":  {"queue"},
		"name":  {"delete"},
		"value": {externalID},
	}
	if deleteFiles {
		params.Set("del_files", "1")
	}

	var resp statusResponse
	if err := c.doRequest(ctx, "queue/delete", params, &resp); err != nil {
		return err
	}

	if !resp.Status {
		return fmt.Errorf("sabnzbd remove failed")
	}

	return nil
}

// doRequest performs an HTTP request to the SABnzbd API, retrying
// connection-level failures with exponential backoff.
func (c *SABnzbdClient) doRequest(ctx context.Context, mode string, params url.Values, result any) error {
	start := time.Now()
	params.Set("apikey", c.apiKey)
	params.Set("output", "json")
	reqURL := c.baseURL + "/api?" + params.Encode()

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.log.Debug("api request failed", "mode", mode, "error", err)
			return ErrClientUnavailable
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			c.log.Debug("api unexpected status", "mode", mode, "status", resp.StatusCode)
			return backoff.Permanent(fmt.Errorf("unexpected status: %d", resp.StatusCode))
		}

		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), sabMaxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return err
	}

	c.log.Debug("api request complete", "mode", mode, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Response types for SABnzbd API

type versionResponse struct {
	Version string `json:"version"`
}

type addResponse struct {
	Status bool     `json:"status"`
	NzoIDs []string `json:"nzo_ids"`
	Error  string   `json:"error"`
}

type statusResponse struct {
	Status bool `json:"status"`
}

type queueResponse struct {
	Queue struct {
		Slots []queueSlot `json:"slots"`
	} `json:"queue"`
}

type queueSlot struct {
	NzoID      string `json:"nzo_id"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	Percentage string `json:"percentage"`
	MB         string `json:"mb"`
	MBLeft     string `json:"mbleft"`
	TimeLeft   string `json:"timeleft"`
}

type historyResponse struct {
	History struct {
		Slots []historySlot `json:"slots"`
	} `json:"history"`
}

type historySlot struct {
	NzoID       string `json:"nzo_id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	Bytes       int64  `json:"bytes"`
	Storage     string `json:"storage"`
	FailMessage string `json:"fail_message"`
}

// isAPIKeyError checks if the error message indicates an invalid API key.
func isAPIKeyError(errMsg string) bool {
	lower := strings.ToLower(errMsg)
	return strings.Contains(lower, "api key") || strings.Contains(lower, "apikey")
}

// parseFloat parses a string to float64, returning 0 on error.
func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
