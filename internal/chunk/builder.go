// Package chunk turns parsed invoices into self-contained retrieval chunks.
package chunk

import (
	"fmt"
	"strconv"
	"strings"

	"fleetrag/internal/invoice"
)

const unknown = "UNKNOWN"

// Chunk is one indexable unit: the full text handed to the embedder plus
// flat string metadata for filtering and source attribution.
type Chunk struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

// Build produces one chunk per repair entry. Every chunk repeats the invoice
// header context so it stands alone at retrieval time; a reader of a single
// chunk never needs the rest of the invoice. An invoice without repair
// entries yields nil.
func Build(rec invoice.Record) []Chunk {
	if len(rec.RepairEntries) == 0 {
		return nil
	}

	chunks := make([]Chunk, 0, len(rec.RepairEntries))
	for _, entry := range rec.RepairEntries {
		chunks = append(chunks, Chunk{
			Text:     formatChunk(rec, entry),
			Metadata: buildMetadata(rec),
		})
	}
	return chunks
}

func formatChunk(rec invoice.Record, entry invoice.RepairEntry) string {
	partsStr := "None listed"
	if len(entry.Parts) > 0 {
		partsStr = strings.Join(entry.Parts, ", ")
	}

	laborStr := "Not specified"
	if entry.LaborHours != nil {
		laborStr = strconv.FormatFloat(*entry.LaborHours, 'g', -1, 64) + " hours"
	}

	return fmt.Sprintf(`Invoice: %s
Date: %s
Customer: %s
Vehicle: %s %s %s
VIN: %s
Mileage: %s

Complaint: %s
Cause: %s
Correction: %s
Parts Used: %s
Labor: %s`,
		orUnknown(rec.ID),
		orUnknown(rec.Date),
		orUnknown(rec.CustomerName),
		orUnknown(rec.Vehicle.Year),
		orUnknown(rec.Vehicle.Make),
		orUnknown(rec.Vehicle.Model),
		orUnknown(rec.Vehicle.VIN),
		orUnknown(rec.Vehicle.Mileage),
		entry.Complaint,
		entry.Cause,
		entry.Correction,
		partsStr,
		laborStr,
	)
}

func buildMetadata(rec invoice.Record) map[string]string {
	return map[string]string{
		"invoice_id":    orUnknown(rec.ID),
		"date":          orUnknown(rec.Date),
		"customer_name": orUnknown(rec.CustomerName),
		"vehicle_year":  orUnknown(rec.Vehicle.Year),
		"vehicle_make":  orUnknown(rec.Vehicle.Make),
		"vehicle_model": orUnknown(rec.Vehicle.Model),
		"vin":           orUnknown(rec.Vehicle.VIN),
		"mileage":       orUnknown(rec.Vehicle.Mileage),
	}
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}
