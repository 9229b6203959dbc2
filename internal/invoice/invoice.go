// Package invoice parses truck service invoice text into structured records.
package invoice

// Record is one parsed invoice. Header fields that the text does not carry
// stay as zero values; only the invoice ID is mandatory.
type Record struct {
	Document      string
	ID            string
	Date          string
	CustomerName  string
	CustomerEmail string
	Vehicle       Vehicle
	RepairEntries []RepairEntry
}

type Vehicle struct {
	Year    string
	Make    string
	Model   string
	VIN     string
	Mileage string
}

// RepairEntry is one service block: the complaint/cause/correction narrative
// plus parts and labor. LaborHours and LaborRate are nil when the block does
// not state them, to keep "absent" distinct from zero.
type RepairEntry struct {
	Complaint  string
	Cause      string
	Correction string
	Parts      []string
	LaborHours *float64
	LaborRate  *float64
}

// HasNarrative reports whether the entry carries at least one of the
// complaint, cause or correction fields. Entries without any narrative are
// not worth indexing.
func (e RepairEntry) HasNarrative() bool {
	return e.Complaint != "" || e.Cause != "" || e.Correction != ""
}
