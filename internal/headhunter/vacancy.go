package headhunter

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/neco001/Job-Crusher/internal/source"
)

// Schedule ids used by the API.
const (
	scheduleRemote   = "remote"
	scheduleFlexible = "flexible"
	scheduleFullDay  = "fullDay"
	scheduleShift    = "shift"
)

var tagRe = regexp.MustCompile(`<[^>]*>`)

type Vacancies struct {
	Items []*Vacancy
}

type Vacancy struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Area struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"area,omitempty"`
	Salary *struct {
		From     int    `json:"from,omitempty"`
		To       int    `json:"to,omitempty"`
		Currency string `json:"currency,omitempty"`
		Gross    bool   `json:"gross,omitempty"`
	} `json:"salary,omitempty"`
	Experience struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"experience,omitempty"`
	Schedule struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"schedule,omitempty"`
	Employer struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"employer,omitempty"`
	AlternateURL string `json:"alternate_url,omitempty"`
	Description  string `json:"description,omitempty"`
	KeySkills    []struct {
		Name string `json:"name,omitempty"`
	} `json:"key_skills,omitempty"`
	Snipet struct {
		Requirement    string `json:"requirement,omitempty"`
		Responsibility string `json:"responsibility,omitempty"`
	} `json:"snippet,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

func (v *Vacancies) Len() int {
	return len(v.Items)
}

// Record converts a vacancy into a detail-format source record. The public
// vacancy page is used as the link when the API provides one.
func (va *Vacancy) Record(link string) *source.Record {
	if va.AlternateURL != "" {
		link = va.AlternateURL
	}

	requirements := []string{stripHTML(va.Snipet.Requirement)}
	for _, skill := range va.KeySkills {
		requirements = append(requirements, skill.Name)
	}

	fields := map[string]any{
		"url":              link,
		"title":            va.Name,
		"company":          va.Employer.Name,
		"location":         va.Area.Name,
		"salary":           va.salaryText(),
		"work_modes":       va.workModes(),
		"position_levels":  []string{va.Experience.Name},
		"description":      stripHTML(va.Description),
		"requirements":     requirements,
		"responsibilities": []string{stripHTML(va.Snipet.Responsibility)},
	}

	return &source.Record{
		Source: Name,
		Format: source.FormatDetail,
		Link:   link,
		Fields: fields,
	}
}

// salaryText renders the salary fork as text; the API quotes monthly amounts.
func (va *Vacancy) salaryText() string {
	if va.Salary == nil {
		return ""
	}
	switch {
	case va.Salary.From > 0 && va.Salary.To > 0:
		return fmt.Sprintf("%d - %d %s monthly", va.Salary.From, va.Salary.To, va.Salary.Currency)
	case va.Salary.From > 0:
		return fmt.Sprintf("%d %s monthly", va.Salary.From, va.Salary.Currency)
	case va.Salary.To > 0:
		return fmt.Sprintf("%d %s monthly", va.Salary.To, va.Salary.Currency)
	default:
		return ""
	}
}

func (va *Vacancy) workModes() []string {
	switch va.Schedule.ID {
	case scheduleRemote:
		return []string{"remote"}
	case scheduleFlexible:
		return []string{"hybrid"}
	case scheduleFullDay, scheduleShift:
		return []string{"on_site"}
	default:
		return nil
	}
}

func stripHTML(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}
