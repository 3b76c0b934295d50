package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewRecord_ProjectsFields(t *testing.T) {
	now := time.Now()
	payload := map[string]any{
		"id":            "42",
		"serialNumber":  "0A:1B",
		"validFromDate": "2021-05-01T00:00:00Z",
		"keySize":       2048,
	}

	rec := NewRecord("42", payload, now)

	assert.Equal(t, "42", rec.ID)
	assert.Equal(t, "0A:1B", rec.SerialNumber)
	assert.Equal(t, "2021-05-01T00:00:00Z", rec.ValidFromDate)
	assert.Equal(t, now, rec.SyncedAt)
	assert.False(t, rec.MappedToMIP)
}

func TestNewRecord_NonStringProjections(t *testing.T) {
	rec := NewRecord("1", map[string]any{"serialNumber": 1234, "validFromDate": nil}, time.Now())

	assert.Empty(t, rec.SerialNumber)
	assert.Empty(t, rec.ValidFromDate)
}

func TestUpsertResult(t *testing.T) {
	var total UpsertResult
	total.Add(UpsertResult{Inserted: 2, Updated: 1})
	total.Add(UpsertResult{Inserted: 1})

	assert.Equal(t, 3, total.Inserted)
	assert.Equal(t, 1, total.Updated)
	assert.Equal(t, 4, total.Total())
}

func TestInventoryMapping_Normalise(t *testing.T) {
	m := InventoryMapping{SerialNumber: " 0A ", CertificateName: "web\t", CertificateStatus: " Active"}.Normalise()

	assert.Equal(t, InventoryMapping{SerialNumber: "0A", CertificateName: "web", CertificateStatus: "Active"}, m)
}

func TestCheckpoint(t *testing.T) {
	cp := NewCheckpoint()
	assert.True(t, cp.IsFloor())
	assert.Equal(t, EpochFloor, cp.Cursor)
	assert.True(t, Checkpoint{}.IsFloor())

	now := time.Now()
	next := cp.Advance("1900-01-01T00:00:00Z#1", 50, 50, now)
	assert.False(t, next.IsFloor())
	assert.Equal(t, 50, next.PageSize)
	assert.Equal(t, 50, next.Total)
	assert.Equal(t, now, next.UpdatedAt)

	next = next.Advance("1901-01-01T00:00:00Z", 50, 7, now)
	assert.Equal(t, 57, next.Total)
}
