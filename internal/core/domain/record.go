package domain

import (
	"strings"
	"time"
)

// Payload field names the store projects into columns.
const (
	FieldID            = "id"
	FieldSerialNumber  = "serialNumber"
	FieldValidFromDate = "validFromDate"
	FieldCertHash      = "certhash"
	FieldSHA1          = "sha1"
)

// Record is one certificate-inventory entity synced from the remote API.
type Record struct {
	// ID is the remote unique identifier. It is stable across syncs.
	ID string

	// Payload holds the fields exactly as returned by the source.
	Payload map[string]any

	// SerialNumber is projected from the payload for mapping lookups.
	SerialNumber string

	// ValidFromDate is projected from the payload for display ordering.
	ValidFromDate string

	// SyncedAt is when the record was last written by a sync.
	SyncedAt time.Time

	// MappedToMIP is set by the inventory mapping process. Once set it is permanent.
	MappedToMIP bool

	// MIPStatus is the certificate status taken from the inventory mapping.
	MIPStatus string
}

// NewRecord builds a Record from a validated payload.
// The payload must already carry a non-empty id.
func NewRecord(id string, payload map[string]any, syncedAt time.Time) Record {
	return Record{
		ID:            id,
		Payload:       payload,
		SerialNumber:  stringField(payload, FieldSerialNumber),
		ValidFromDate: stringField(payload, FieldValidFromDate),
		SyncedAt:      syncedAt,
	}
}

// UpsertResult reports how many records an upsert created and overwrote.
type UpsertResult struct {
	Inserted int
	Updated  int
}

// Total returns the number of records written.
func (r UpsertResult) Total() int {
	return r.Inserted + r.Updated
}

// Add accumulates another result.
func (r *UpsertResult) Add(other UpsertResult) {
	r.Inserted += other.Inserted
	r.Updated += other.Updated
}

// Page is one batch of records returned by a single remote fetch.
type Page struct {
	// Records are the validated records in remote order.
	Records []Record

	// Cursor is the position this page was fetched from.
	Cursor string

	// NextCursor is where the following page starts.
	NextCursor string

	// Done is true when the source has no further pages.
	Done bool
}

// InventoryMapping is one row of an imported inventory spreadsheet.
type InventoryMapping struct {
	SerialNumber      string
	CertificateName   string
	CertificateStatus string
}

// Normalise trims surrounding whitespace from every field.
func (m InventoryMapping) Normalise() InventoryMapping {
	return InventoryMapping{
		SerialNumber:      strings.TrimSpace(m.SerialNumber),
		CertificateName:   strings.TrimSpace(m.CertificateName),
		CertificateStatus: strings.TrimSpace(m.CertificateStatus),
	}
}

func stringField(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
