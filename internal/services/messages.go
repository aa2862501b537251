package services

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"tour-routing-service/internal/domain"
)

var messageFuncs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format("Mon Jan 2, 2006") },
	"clock": func(d time.Duration) string {
		return fmt.Sprintf("%02d:%02d", int(d.Hours())%24, int(d.Minutes())%60)
	},
	"money": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
	"regions": func(rs []domain.Region) string {
		if len(rs) == 0 {
			return "anywhere"
		}
		parts := make([]string, 0, len(rs))
		for _, r := range rs {
			if r.City != "" {
				parts = append(parts, r.City+", "+r.State)
				continue
			}
			parts = append(parts, r.State)
		}
		return strings.Join(parts, "; ")
	},
}

var invitationTmpl = template.Must(template.New("invitation").Funcs(messageFuncs).Parse(
	`Hi {{.HostName}},

{{.Artist}} is planning "{{.Title}}" and would love to play at your place.

Tour: {{date .Dates.Start}} to {{date .Dates.End}}, {{regions .Regions}}
Audience: {{.Capacity.Min}}-{{.Capacity.Max}} guests
Terms: {{money .Terms.BaseGuarantee}} guarantee or {{.Terms.RevenueSplitPct}}% of the door at {{money .Terms.TicketPrice}} a ticket
{{- if .Genres}}
Style: {{.Genres}}{{end}}
{{- if .Proposed}}
Proposed date for your show: {{date .ProposedDate}}{{end}}

Interested? Reply here: {{.ResponseURL}}
`))

var confirmationTmpl = template.Must(template.New("confirmation").Funcs(messageFuncs).Parse(
	`Hi {{.HostName}},

{{if .Reminder}}A reminder: your show with {{.Artist}} is waiting for final confirmation.{{else}}Your show with {{.Artist}} is confirmed.{{end}}

Date: {{date .Date}}
Artist arrival: {{clock .Arrival}}
Show time: {{clock .ShowTime}}
Guarantee: {{money .Guarantee}}
Expected attendance: {{.Attendance}}

Setup checklist:
{{range .Checklist}}- {{.}}
{{end}}`))

type invitationView struct {
	HostName     string
	Artist       string
	Title        string
	Dates        domain.DateRange
	Regions      []domain.Region
	Capacity     domain.CapacityRange
	Terms        domain.RevenueTerms
	Genres       string
	Proposed     bool
	ProposedDate time.Time
	ResponseURL  string
}

type confirmationView struct {
	HostName   string
	Artist     string
	Reminder   bool
	Date       time.Time
	Arrival    time.Duration
	ShowTime   time.Duration
	Guarantee  float64
	Attendance int
	Checklist  []string
}

func artistName(req domain.TourRequest) string {
	if req.ArtistName != "" {
		return req.ArtistName
	}
	return req.ArtistID
}

func responseURL(baseURL, tourID, hostID string) string {
	return fmt.Sprintf("%s/tours/%s/invitations/%s/response", strings.TrimRight(baseURL, "/"), tourID, hostID)
}

func renderInvitation(tour *domain.Tour, plan *domain.TourPlan, host domain.HostCandidate, baseURL string) (subject, body string, err error) {
	req := tour.Request
	v := invitationView{
		HostName:    host.Name,
		Artist:      artistName(req),
		Title:       req.Title,
		Dates:       req.Dates,
		Regions:     req.Regions,
		Capacity:    req.Capacity,
		Terms:       req.Terms,
		Genres:      strings.Join(req.Genres.Strings(), ", "),
		ResponseURL: responseURL(baseURL, tour.ID, host.ID),
	}
	if plan != nil {
		if stop, ok := plan.ShowStop(host.ID); ok {
			v.Proposed = true
			v.ProposedDate = stop.Date
		}
	}

	var buf bytes.Buffer
	if err := invitationTmpl.Execute(&buf, v); err != nil {
		return "", "", fmt.Errorf("render invitation for %s: %w", host.ID, err)
	}
	return fmt.Sprintf("Show invitation: %s", req.Title), buf.String(), nil
}

func renderConfirmation(
	tour *domain.Tour,
	plan *domain.TourPlan,
	app domain.ShowApplication,
	hostName string,
	policy domain.Policy,
	reminder bool,
) (subject, body string, err error) {
	req := tour.Request
	v := confirmationView{
		HostName:   hostName,
		Artist:     artistName(req),
		Reminder:   reminder,
		Date:       app.ProposedDate,
		Arrival:    req.PreferredArrival,
		ShowTime:   policy.ShowTime,
		Guarantee:  req.Terms.BaseGuarantee,
		Attendance: app.ProposedCapacity,
		Checklist:  policy.SetupChecklist,
	}
	if plan != nil {
		if stop, ok := plan.ShowStop(app.HostID); ok {
			v.Guarantee = stop.Guarantee
			if !stop.ArriveAt.IsZero() {
				v.Arrival = stop.ArriveAt.Sub(domain.Day(stop.ArriveAt))
			}
		}
	}
	if v.Arrival == 0 {
		v.Arrival = policy.DefaultArrival
	}

	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, v); err != nil {
		return "", "", fmt.Errorf("render confirmation for %s: %w", app.ID, err)
	}

	subject = fmt.Sprintf("Show confirmed: %s on %s", req.Title, app.ProposedDate.Format(domain.DateLayout))
	if reminder {
		subject = fmt.Sprintf("Reminder: %s on %s", req.Title, app.ProposedDate.Format(domain.DateLayout))
	}
	return subject, buf.String(), nil
}
