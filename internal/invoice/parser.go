package invoice

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrNoText      = errors.New("invoice has no text")
	ErrNoInvoiceID = errors.New("invoice id not found")
)

// Header fields are matched case-sensitively: invoices are generated
// documents and their headers are stable. Repair labels inside service
// blocks are hand-typed more often, so those match case-insensitively.
var (
	invoiceRe  = regexp.MustCompile(`Invoice[:\s]+([A-Z0-9]+)`)
	dateRe     = regexp.MustCompile(`Date[:\s]+(\d{1,2}/\d{1,2}/\d{4})`)
	customerRe = regexp.MustCompile(`Customer[:\s]+([^\n]+)`)
	vehicleRe  = regexp.MustCompile(`Vehicle[:\s]+(\d{4})\s+([A-Za-z ]+?)\s+([A-Za-z0-9 ]+?)(?:\n|$)`)
	vinRe      = regexp.MustCompile(`VIN[:\s]+([A-Z0-9]+)`)
	mileageRe  = regexp.MustCompile(`Mileage[:\s]+([0-9,]+)`)

	boundaryRe = regexp.MustCompile(`Service Block \d+[:\s]*|Complaint:`)
	labelRe    = regexp.MustCompile(`(?i)^(complaint|cause|correction|labor|parts)(?:[:\s]+(.*))?$`)
	laborRe    = regexp.MustCompile(`(?i)^([0-9]+(?:\.[0-9]+)?)\s*(?:hrs?)?\s*(?:@\s*\$?([0-9]+(?:\.[0-9]+)?))?`)
)

// Parse turns raw invoice text into a Record. The only hard requirement is
// an invoice ID; every other field degrades to its zero value when the text
// does not yield it. Parsing the same text twice gives the same record.
func Parse(rawText, documentName string) (*Record, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, ErrNoText
	}

	rec := &Record{Document: documentName}

	if m := invoiceRe.FindStringSubmatch(rawText); m != nil {
		rec.ID = m[1]
	}
	if rec.ID == "" {
		return nil, ErrNoInvoiceID
	}

	if m := dateRe.FindStringSubmatch(rawText); m != nil {
		rec.Date = m[1]
	}
	if m := customerRe.FindStringSubmatch(rawText); m != nil {
		info := strings.TrimSpace(m[1])
		if strings.Contains(info, "@") {
			rec.CustomerName = strings.TrimSpace(strings.SplitN(info, "@", 2)[0])
			rec.CustomerEmail = info
		} else {
			rec.CustomerName = info
		}
	}
	if m := vehicleRe.FindStringSubmatch(rawText); m != nil {
		rec.Vehicle.Year = m[1]
		rec.Vehicle.Make = strings.TrimSpace(m[2])
		rec.Vehicle.Model = strings.TrimSpace(m[3])
	}
	if m := vinRe.FindStringSubmatch(rawText); m != nil {
		rec.Vehicle.VIN = m[1]
	}
	if m := mileageRe.FindStringSubmatch(rawText); m != nil {
		rec.Vehicle.Mileage = m[1]
	}

	for _, segment := range repairSegments(rawText) {
		if entry, ok := parseRepairEntry(segment); ok {
			rec.RepairEntries = append(rec.RepairEntries, entry)
		}
	}

	return rec, nil
}

// repairSegments partitions the text at service block boundaries. A
// "Service Block N:" marker is consumed, while a "Complaint:" boundary stays
// part of its segment. Text before the first boundary is header material and
// is dropped.
func repairSegments(text string) []string {
	matches := boundaryRe.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	var segments []string
	for i, m := range matches {
		start := m[1]
		if strings.HasPrefix(text[m[0]:m[1]], "Complaint:") {
			start = m[0]
		}

		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}

		if seg := strings.TrimSpace(text[start:end]); seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

// parseRepairEntry scans one segment line by line. A label line opens a
// span; lines without a label continue the open span. Only the first
// occurrence of each label counts. Entries with no narrative at all are
// rejected.
func parseRepairEntry(segment string) (RepairEntry, bool) {
	spans := make(map[string][]string)
	current := ""

	for _, line := range strings.Split(segment, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			current = ""
			continue
		}

		if m := labelRe.FindStringSubmatch(trimmed); m != nil {
			label := strings.ToLower(m[1])
			if _, seen := spans[label]; seen {
				// Repeated label: the first span wins.
				current = ""
				continue
			}
			spans[label] = nil
			current = label
			if rest := strings.TrimSpace(m[2]); rest != "" {
				spans[label] = append(spans[label], rest)
			}
			continue
		}

		if current != "" {
			spans[current] = append(spans[current], trimmed)
		}
	}

	entry := RepairEntry{
		Complaint:  strings.Join(spans["complaint"], "\n"),
		Cause:      strings.Join(spans["cause"], "\n"),
		Correction: strings.Join(spans["correction"], "\n"),
	}

	if lines, ok := spans["labor"]; ok {
		hours, rate := parseLabor(strings.Join(lines, " "))
		entry.LaborHours = hours
		entry.LaborRate = rate
	}
	if lines, ok := spans["parts"]; ok {
		entry.Parts = parseParts(strings.Join(lines, "\n"))
	}

	if !entry.HasNarrative() {
		return RepairEntry{}, false
	}
	return entry, true
}

func parseLabor(text string) (hours, rate *float64) {
	m := laborRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return nil, nil
	}

	if h, err := strconv.ParseFloat(m[1], 64); err == nil {
		hours = &h
	}
	if m[2] != "" {
		if r, err := strconv.ParseFloat(m[2], 64); err == nil {
			rate = &r
		}
	}
	return hours, rate
}

func parseParts(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '\n'
	})

	var parts []string
	for _, f := range fields {
		if p := strings.TrimSpace(f); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
