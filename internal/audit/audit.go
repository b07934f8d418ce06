// Package audit indexes onboarding transitions and remote sync outcomes in
// Elasticsearch so an applicant's history can be searched.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/common/logger"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
)

type Kind string

const (
	KindTransition  Kind = "transition"
	KindSyncAttempt Kind = "sync_attempt"
)

type Event struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	ApplicantID string    `json:"applicantId"`
	From        string    `json:"from,omitempty"`
	To          string    `json:"to,omitempty"`
	ActingAdmin string    `json:"actingAdmin,omitempty"`
	Operation   string    `json:"operation,omitempty"`
	Outcome     string    `json:"outcome,omitempty"`
	Error       string    `json:"error,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Recorder stores audit events. Implementations never block the caller's
// business outcome; the error is for logging.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// Nop discards events. It is used when Elasticsearch is not configured.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }

type Indexer struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewIndexer(client *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	return &Indexer{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "audit"}),
	}
}

func (i *Indexer) Record(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return errors.NewAuditIndexFailedError(err)
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: ev.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return errors.NewAuditIndexFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.NewAuditIndexFailedError(fmt.Errorf("index request failed: %s", res.String()))
	}
	return nil
}

// History returns the most recent events for an applicant, newest first.
func (i *Indexer) History(ctx context.Context, applicantID string, size int) ([]Event, error) {
	switch {
	case size < 1:
		size = 50
	case size > 500:
		size = 500
	}

	query := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"term": map[string]interface{}{"applicantId.keyword": applicantID},
		},
		"sort": []interface{}{
			map[string]interface{}{"occurredAt": map[string]interface{}{"order": "desc"}},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, err
	}

	req := esapi.SearchRequest{
		Index: []string{i.index},
		Body:  &buf,
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return nil, errors.NewExternalServiceError("elasticsearch", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		if res.StatusCode == 404 {
			return nil, nil
		}
		return nil, errors.NewExternalServiceError("elasticsearch", fmt.Errorf("search failed: %s", res.String()))
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source Event `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, errors.NewExternalServiceError("elasticsearch", err)
	}

	events := make([]Event, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		events = append(events, h.Source)
	}
	return events, nil
}

// Logged wraps a Recorder and logs failures instead of returning them.
type Logged struct {
	Recorder Recorder
	Logger   logger.Logger
}

func (l Logged) Record(ctx context.Context, ev Event) error {
	if err := l.Recorder.Record(ctx, ev); err != nil {
		l.Logger.Warn("audit event dropped", map[string]interface{}{
			"applicantId": ev.ApplicantID,
			"kind":        string(ev.Kind),
			"error":       err.Error(),
		})
	}
	return nil
}

// Outcome normalizes an error into the outcome label stored on sync events.
func Outcome(err error) string {
	if err == nil {
		return "succeeded"
	}
	return strings.ToLower(string(errors.CodeOf(err)))
}
