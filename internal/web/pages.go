package web

import (
	"html/template"
	"net/http"
	"strings"
	"time"

	appLog "apptcal/internal/log"
	"apptcal/internal/model"
)

var templateFuncs = template.FuncMap{
	"join": strings.Join,
	"datetime": func(t time.Time) string {
		return t.Format("02/01/2006 15:04")
	},
}

// Layouts accepted for the appointment form's date field: the
// datetime-local input and the long form.
var formDateLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

type appointmentsPage struct {
	Title    string
	Upcoming []model.Appointment
	Past     []model.Appointment
}

// handleAppointmentsPage lists upcoming appointments (soonest first) and
// past ones (most recent first). It is the target of calendar clicks.
func (s *Server) handleAppointmentsPage(w http.ResponseWriter, r *http.Request) {
	loc := s.svc.Location()
	all, err := s.svc.Store().List(r.Context(), time.Time{}, time.Time{})
	if err != nil {
		appLog.Error("appointments page: list failed", err)
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}

	now := s.now()
	page := appointmentsPage{Title: "Rendez-vous"}
	for _, a := range all {
		a = a.In(loc)
		if a.Date.Before(now) {
			page.Past = append(page.Past, a)
		} else {
			page.Upcoming = append(page.Upcoming, a)
		}
	}
	// List is ascending; past is shown most recent first.
	for i, j := 0, len(page.Past)-1; i < j; i, j = i+1, j-1 {
		page.Past[i], page.Past[j] = page.Past[j], page.Past[i]
	}

	s.render(w, "appointments.html", page)
}

// handleAppointmentCreate books an appointment from the list page form and
// always redirects back to the list. A missing or unreadable date creates
// nothing.
func (s *Server) handleAppointmentCreate(w http.ResponseWriter, r *http.Request) {
	defer http.Redirect(w, r, "/appointments", http.StatusSeeOther)

	if err := r.ParseForm(); err != nil {
		appLog.Error("appointment form parse failed", err)
		return
	}

	dateStr := strings.TrimSpace(r.PostForm.Get("date"))
	if dateStr == "" {
		return
	}
	date, err := parseFormDate(dateStr, s.svc.Location())
	if err != nil {
		appLog.Error("appointment form: invalid date", err, "date", dateStr)
		return
	}

	location := strings.TrimSpace(r.PostForm.Get("location"))
	if location == "" {
		location = model.DefaultTitle
	}

	a := model.Appointment{
		Date:      date,
		Location:  location,
		Cats:      nonEmpty(r.PostForm["cats[]"]),
		Employees: nonEmpty(r.PostForm["employees[]"]),
	}
	if _, err := s.svc.Store().Create(r.Context(), a); err != nil {
		appLog.Error("appointment create failed", err)
		return
	}
	s.invalidateEvents()
}

func parseFormDate(v string, loc *time.Location) (time.Time, error) {
	var lastErr error
	for _, layout := range formDateLayouts {
		t, err := time.ParseInLocation(layout, v, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
