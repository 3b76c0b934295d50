package certview

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/certsync/internal/core/domain"
	"github.com/custodia-labs/certsync/internal/core/ports/driven"
	"github.com/custodia-labs/certsync/internal/logger"
)

// Ensure Fetcher implements the interface.
var _ driven.PageFetcher = (*Fetcher)(nil)

// lister is the part of Client the fetcher uses.
type lister interface {
	List(ctx context.Context, req ListRequest) ([]byte, error)
}

// Fetcher turns cursors into list requests and validates the pages returned.
type Fetcher struct {
	client lister
	now    func() time.Time
}

// NewFetcher creates a page fetcher backed by client.
func NewFetcher(client *Client) *Fetcher {
	return &Fetcher{client: client, now: time.Now}
}

// FetchPage fetches the page at cursor. A page shorter than pageSize ends
// its year window; the page after the current year's last one is Done.
func (f *Fetcher) FetchPage(ctx context.Context, cursor string, pageSize int) (*domain.Page, error) {
	if pageSize <= 0 {
		return nil, &domain.ValidationError{Field: "pageSize", Reason: fmt.Sprintf("must be positive, got %d", pageSize)}
	}

	c, err := ParseCursor(cursor)
	if err != nil {
		return nil, err
	}

	now := f.now()
	if c.Exhausted(now) {
		return &domain.Page{Cursor: c.String(), NextCursor: c.String(), Done: true}, nil
	}

	start, end := c.WindowStart, c.WindowEnd(now)
	logger.Debug("certview: window %s..%s page %d size %d",
		start.Format(dateLayout), end.Format(dateLayout), c.Page, pageSize)

	body, err := f.client.List(ctx, NewListRequest(start, end, c.Page, pageSize))
	if err != nil {
		return nil, err
	}

	records, err := decodePage(body, now)
	if err != nil {
		return nil, err
	}

	next := c.NextPage()
	if len(records) < pageSize {
		next = c.NextWindow()
	}

	return &domain.Page{
		Records:    records,
		Cursor:     c.String(),
		NextCursor: next.String(),
		Done:       next.Exhausted(now),
	}, nil
}

// decodePage validates a list response: a JSON array of objects, each
// with a non-empty id. Numbers are kept exact.
func decodePage(body []byte, syncedAt time.Time) ([]domain.Record, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, &domain.ValidationError{Reason: "body is not a JSON array"}
	}

	records := make([]domain.Record, 0, len(items))
	for i, raw := range items {
		var payload map[string]any
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&payload); err != nil || payload == nil {
			return nil, &domain.ValidationError{Field: fmt.Sprintf("[%d]", i), Reason: "item is not an object"}
		}

		id, ok := recordID(payload[domain.FieldID])
		if !ok {
			return nil, &domain.ValidationError{Field: fmt.Sprintf("[%d].id", i), Reason: "missing or empty"}
		}

		normalise(payload)
		records = append(records, domain.NewRecord(id, payload, syncedAt))
	}
	return records, nil
}

func recordID(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, id != ""
	case json.Number:
		return id.String(), true
	default:
		return "", false
	}
}

// normalise fills certhash from sha1 when the API omits it.
func normalise(payload map[string]any) {
	if s, _ := payload[domain.FieldCertHash].(string); s != "" {
		return
	}
	if sha1, ok := payload[domain.FieldSHA1]; ok && sha1 != nil {
		payload[domain.FieldCertHash] = sha1
	}
}
