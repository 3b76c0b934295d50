package httpapi

import (
	"time"

	"github.com/custodia-labs/certsync/internal/core/domain"
	"github.com/custodia-labs/certsync/internal/core/ports/driving"
)

type messageResponse struct {
	Message string `json:"message"`
}

type runResponse struct {
	Message string `json:"message"`
	RunID   string `json:"run_id"`
	Mode    string `json:"mode"`
}

type uploadResponse struct {
	Message  string `json:"message"`
	Imported int    `json:"imported"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type statusResponse struct {
	RunID     string       `json:"run_id,omitempty"`
	Status    string       `json:"status"`
	Mode      string       `json:"mode,omitempty"`
	IsRunning bool         `json:"is_running"`
	Records   int          `json:"total_records"`
	Fetched   int          `json:"fetched"`
	Pages     int          `json:"pages"`
	Cursor    string       `json:"last_cursor"`
	PageSize  int          `json:"page_size"`
	LastError *errorDetail `json:"last_error,omitempty"`
	StartedAt *time.Time   `json:"started_at,omitempty"`
	EndedAt   *time.Time   `json:"ended_at,omitempty"`
}

func newStatusResponse(st *domain.SyncStatus) statusResponse {
	resp := statusResponse{
		RunID:     st.RunID,
		Status:    st.State.String(),
		Mode:      string(st.Mode),
		IsRunning: st.State == domain.RunRunning,
		Records:   st.Records,
		Fetched:   st.Fetched,
		Pages:     st.Pages,
		Cursor:    st.Cursor,
		PageSize:  st.PageSize,
		EndedAt:   st.EndedAt,
	}
	if !st.StartedAt.IsZero() {
		started := st.StartedAt
		resp.StartedAt = &started
	}
	if st.LastError != nil {
		resp.LastError = &errorDetail{Kind: string(st.LastError.Kind), Message: st.LastError.Message}
	}
	return resp
}

type mappingResponse struct {
	IsRunning   bool   `json:"is_running"`
	Imported    int    `json:"imported"`
	LastApplied int    `json:"last_applied"`
	LastError   string `json:"last_error,omitempty"`
}

func newMappingResponse(st driving.MappingStatus) mappingResponse {
	return mappingResponse{
		IsRunning:   st.Running,
		Imported:    st.Imported,
		LastApplied: st.LastApplied,
		LastError:   st.LastError,
	}
}

// recordJSON returns the stored payload with the local mapping fields merged in.
func recordJSON(rec domain.Record) map[string]any {
	out := make(map[string]any, len(rec.Payload)+3)
	for k, v := range rec.Payload {
		out[k] = v
	}
	out[domain.FieldID] = rec.ID
	out["mapped_to_mip"] = rec.MappedToMIP
	out["mip_status"] = rec.MIPStatus
	return out
}

type metricJSON struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Value      float64           `json:"value"`
	Count      uint64            `json:"count,omitempty"`
}

func newMetricJSON(p domain.MetricPoint) metricJSON {
	return metricJSON{Name: p.Name, Attributes: p.Attributes, Value: p.Value, Count: p.Count}
}
