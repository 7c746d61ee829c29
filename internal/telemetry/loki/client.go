// Package loki pushes audit events to Grafana Loki so they can be queried next to the service logs.
package loki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Job is the job label on every stream pushed by this package.
const Job = "teamos"

// PushRequest is the Loki push API request body (v1).
type PushRequest struct {
	Streams []Stream `json:"streams"`
}

// Stream is a single stream with labels and log entries.
type Stream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"` // each entry is [timestamp_ns, log_line]
}

// labelSanitize replaces characters we do not want in label values.
var labelSanitize = regexp.MustCompile(`[^a-zA-Z0-9_\-:]`)

// eventFields is the subset of an audit event used for labels and the entry timestamp.
type eventFields struct {
	OrgID     string `json:"org_id"`
	Action    string `json:"action"`
	CreatedAt string `json:"created_at"`
}

// Client pushes entries to one Loki instance.
type Client struct {
	baseURL string
	http    *http.Client
	now     func() time.Time
}

// NewClient returns a client for baseURL (e.g. http://localhost:3100), or nil when baseURL is empty.
func NewClient(baseURL string) *Client {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// PushEventJSON pushes an audit event as consumed from Kafka. org_id and action become labels and
// created_at the entry time. Unparseable payloads are pushed as-is at the current time.
func (c *Client) PushEventJSON(ctx context.Context, raw []byte) error {
	labels := map[string]string{}
	ts := c.now()
	var f eventFields
	if err := json.Unmarshal(raw, &f); err == nil {
		if f.OrgID != "" {
			labels["org_id"] = f.OrgID
		}
		if f.Action != "" {
			labels["action"] = f.Action
		}
		if t, err := time.Parse(time.RFC3339Nano, f.CreatedAt); err == nil {
			ts = t
		}
	}
	return c.Push(ctx, ts, string(raw), labels)
}

// Push sends one log line. Returns an error if the request fails or Loki answers non-2xx.
func (c *Client) Push(ctx context.Context, ts time.Time, line string, labels map[string]string) error {
	if c == nil {
		return errors.New("loki: client not configured")
	}
	stream := make(map[string]string, len(labels)+1)
	stream["job"] = Job
	for k, v := range labels {
		if s := labelSanitize.ReplaceAllString(strings.TrimSpace(v), "_"); s != "" {
			stream[k] = s
		}
	}
	payload, err := json.Marshal(PushRequest{Streams: []Stream{{
		Stream: stream,
		Values: [][]string{{strconv.FormatInt(ts.UnixNano(), 10), line}},
	}}})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/loki/api/v1/push", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("loki: push returned %s", resp.Status)
	}
	return nil
}
