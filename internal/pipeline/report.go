package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
)

// ReportItem is one accepted posting as shown in reports and dumps.
type ReportItem struct {
	Title        string         `json:"title"`
	Company      string         `json:"company"`
	Link         string         `json:"link"`
	Source       string         `json:"source"`
	Location     string         `json:"location,omitempty"`
	Compensation string         `json:"compensation,omitempty"`
	Score        int            `json:"score"`
	Tier         string         `json:"tier"`
	Breakdown    map[string]int `json:"breakdown"`
}

func reportItem(a Accepted) ReportItem {
	p := a.Posting
	item := ReportItem{
		Title:     p.Title,
		Company:   p.CompanyName,
		Link:      p.SourceID,
		Source:    p.Source,
		Location:  p.Location,
		Score:     a.Result.Total,
		Tier:      string(a.Result.Tier),
		Breakdown: a.Result.BreakdownMap(),
	}
	if c := p.Compensation; c != nil {
		item.Compensation = fmt.Sprintf("%.0f %s %s", c.Amount, c.Currency, c.Period)
	}
	return item
}

// ReportByCompany groups accepted postings by company, keeping their order.
func ReportByCompany(accepted []Accepted) map[string][]ReportItem {
	report := make(map[string][]ReportItem)
	for _, a := range accepted {
		report[a.Posting.CompanyName] = append(report[a.Posting.CompanyName], reportItem(a))
	}
	return report
}

// DumpToTmpFile writes the accepted postings as indented JSON to a new
// temporary file and returns its name.
func DumpToTmpFile(accepted []Accepted) (string, error) {
	file, err := os.CreateTemp("", "postings_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	items := make([]ReportItem, 0, len(accepted))
	for _, a := range accepted {
		items = append(items, reportItem(a))
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return "", err
	}
	return file.Name(), nil
}
