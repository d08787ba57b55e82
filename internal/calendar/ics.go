package calendar

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/logger"
	"github.com/julianstephens/weekplan/internal/models"
)

const (
	icsDate       = "20060102"
	icsDateTime   = "20060102T150405"
	icsDateTimeZ  = "20060102T150405Z"
	productID     = "-//weekplan//weekplan calendar//EN"
	instanceSep   = "_"
	maxExpansions = 5000
)

// vevent is a VEVENT reduced to the fields the planner shows.
type vevent struct {
	uid          string
	summary      string
	description  string
	location     string
	url          string
	start        time.Time
	end          time.Time
	allDay       bool
	rrule        string
	exdates      []time.Time
	recurrenceID *time.Time
	attendees    []models.Attendee
	reminders    []int
}

// parseICS decodes every VEVENT in body. Events that cannot be decoded are
// logged and skipped.
func parseICS(body []byte, loc *time.Location) ([]vevent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar: %w", err)
	}

	events := make([]vevent, 0, len(cal.Events()))
	for _, ve := range cal.Events() {
		ev, err := decodeVEvent(ve, loc)
		if err != nil {
			logger.Warn("Skipping calendar event", "uid", ve.Id(), "error", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func propValue(ve *ical.VEvent, prop ical.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return p.Value
	}
	return ""
}

func decodeVEvent(ve *ical.VEvent, loc *time.Location) (vevent, error) {
	ev := vevent{
		uid:         ve.Id(),
		summary:     propValue(ve, ical.ComponentPropertySummary),
		description: propValue(ve, ical.ComponentPropertyDescription),
		location:    propValue(ve, ical.ComponentPropertyLocation),
		url:         propValue(ve, ical.ComponentPropertyUrl),
		rrule:       propValue(ve, ical.ComponentPropertyRrule),
	}
	if ev.uid == "" {
		return ev, errors.New("missing UID")
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return ev, errors.New("missing DTSTART")
	}
	start, allDay, err := parseTimeProp(startProp, loc)
	if err != nil {
		return ev, fmt.Errorf("invalid DTSTART: %w", err)
	}
	ev.start, ev.allDay = start, allDay

	if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
		if ev.end, _, err = parseTimeProp(endProp, loc); err != nil {
			return ev, fmt.Errorf("invalid DTEND: %w", err)
		}
	}
	if !ev.end.After(ev.start) {
		if ev.allDay {
			ev.end = ev.start.AddDate(0, 0, 1)
		} else {
			ev.end = ev.start
		}
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			single := *p
			single.Value = strings.TrimSpace(part)
			if t, _, err := parseTimeProp(&single, loc); err == nil {
				ev.exdates = append(ev.exdates, t)
			}
		}
	}

	if rid := ve.GetProperty(ical.ComponentPropertyRecurrenceId); rid != nil {
		if t, _, err := parseTimeProp(rid, loc); err == nil {
			ev.recurrenceID = &t
		}
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyAttendee) {
		a := models.Attendee{Email: strings.TrimPrefix(strings.TrimPrefix(p.Value, "mailto:"), "MAILTO:")}
		if cn := p.ICalParameters[string(ical.ParameterCn)]; len(cn) > 0 {
			a.DisplayName = cn[0]
		}
		if ps := p.ICalParameters[string(ical.ParameterParticipationStatus)]; len(ps) > 0 {
			a.ResponseStatus = strings.ToLower(ps[0])
		}
		ev.attendees = append(ev.attendees, a)
	}

	for _, alarm := range ve.Alarms() {
		if trig := alarm.GetProperty(ical.ComponentPropertyTrigger); trig != nil {
			if mins, ok := parseTrigger(trig.Value); ok {
				ev.reminders = append(ev.reminders, mins)
			}
		}
	}

	return ev, nil
}

// parseTimeProp reads a DATE or DATE-TIME property. Dates and floating
// date-times are placed in loc; TZID parameters and a trailing Z win over it.
func parseTimeProp(p *ical.IANAProperty, loc *time.Location) (time.Time, bool, error) {
	v := strings.TrimSpace(p.Value)

	isDate := !strings.Contains(v, "T")
	if vs := p.ICalParameters[string(ical.ParameterValue)]; len(vs) > 0 && strings.EqualFold(vs[0], string(ical.ValueDataTypeDate)) {
		isDate = true
	}
	if isDate {
		t, err := time.ParseInLocation(icsDate, strings.TrimSuffix(v, "Z"), loc)
		return t, true, err
	}

	if strings.HasSuffix(v, "Z") {
		t, err := time.Parse(icsDateTimeZ, v)
		return t, false, err
	}

	propLoc := loc
	if tz := p.ICalParameters[string(ical.ParameterTzid)]; len(tz) > 0 {
		if l, err := time.LoadLocation(tz[0]); err == nil {
			propLoc = l
		}
	}
	t, err := time.ParseInLocation(icsDateTime, v, propLoc)
	return t, false, err
}

// parseTrigger reads a relative alarm trigger such as -PT10M, -PT1H or -P1D
// and returns the lead time in minutes.
func parseTrigger(v string) (int, bool) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "-")
	v, ok := strings.CutPrefix(v, "P")
	if !ok {
		return 0, false
	}

	total := 0
	num := ""
	inTime := false
	for _, r := range v {
		switch {
		case r >= '0' && r <= '9':
			num += string(r)
		case r == 'T':
			inTime = true
		default:
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0, false
			}
			num = ""
			switch {
			case r == 'W':
				total += n * 7 * 24 * 60
			case r == 'D':
				total += n * 24 * 60
			case r == 'H' && inTime:
				total += n * 60
			case r == 'M' && inTime:
				total += n
			case r == 'S' && inTime:
				total += n / 60
			default:
				return 0, false
			}
		}
	}
	return total, num == ""
}

func formatTrigger(minutes int) string {
	return fmt.Sprintf("-PT%dM", minutes)
}

func instanceKey(start time.Time, allDay bool) string {
	if allDay {
		return start.Format(icsDate)
	}
	return start.UTC().Format(icsDateTimeZ)
}

// splitInstanceID separates "<uid>_<instance>" into its parts.
func splitInstanceID(id string) (uid, instance string, ok bool) {
	i := strings.LastIndex(id, instanceSep)
	if i <= 0 || i == len(id)-1 {
		return id, "", false
	}
	return id[:i], id[i+1:], true
}

// expand turns parsed VEVENTs into event instances overlapping [from, to).
// RECURRENCE-ID overrides replace the instance they name.
func expand(events []vevent, from, to time.Time, loc *time.Location) []models.Event {
	overrides := map[string][]vevent{}
	for _, ev := range events {
		if ev.recurrenceID != nil {
			overrides[ev.uid] = append(overrides[ev.uid], ev)
		}
	}

	var out []models.Event
	for _, ev := range events {
		if ev.recurrenceID != nil {
			continue
		}
		if ev.rrule == "" {
			if overlaps(ev.start, ev.end, from, to) {
				out = append(out, toModel(ev, ev.start, ev.end, ev.uid, "", loc))
			}
			continue
		}
		out = append(out, expandRecurring(ev, overrides[ev.uid], from, to, loc)...)
	}

	slices.SortStableFunc(out, func(a, b models.Event) int {
		as, _ := a.StartTime(loc)
		bs, _ := b.StartTime(loc)
		return cmp.Or(as.Compare(bs), strings.Compare(a.Summary, b.Summary))
	})
	return out
}

func expandRecurring(ev vevent, overrides []vevent, from, to time.Time, loc *time.Location) []models.Event {
	rule, err := rrule.StrToRRule(strings.TrimPrefix(ev.rrule, "RRULE:"))
	if err != nil {
		logger.Warn("Skipping unparseable recurrence rule", "uid", ev.uid, "rrule", ev.rrule, "error", err)
		return nil
	}
	rule.DTStart(ev.start)

	set := rrule.Set{}
	set.RRule(rule)
	for _, ex := range ev.exdates {
		set.ExDate(ex)
	}

	dur := ev.end.Sub(ev.start)
	// Instances that start before the window can still overlap it.
	starts := set.Between(from.Add(-dur), to, true)
	if len(starts) > maxExpansions {
		logger.Warn("Truncating recurring event", "uid", ev.uid, "instances", len(starts))
		starts = starts[:maxExpansions]
	}

	var out []models.Event
	for _, s := range starts {
		inst, instStart, instEnd := ev, s, s.Add(dur)
		for _, o := range overrides {
			if o.recurrenceID.Equal(s) {
				inst, instStart, instEnd = o, o.start, o.end
				break
			}
		}
		if !overlaps(instStart, instEnd, from, to) {
			continue
		}
		id := ev.uid + instanceSep + instanceKey(s, ev.allDay)
		out = append(out, toModel(inst, instStart, instEnd, id, ev.uid, loc))
	}
	return out
}

// overlaps reports whether [aStart, aEnd) intersects [bStart, bEnd). Zero
// length events count when they start inside the window.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Equal(aStart) {
		return !aStart.Before(bStart) && aStart.Before(bEnd)
	}
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

func toModel(ev vevent, start, end time.Time, id, recurringID string, loc *time.Location) models.Event {
	e := models.Event{
		ID:               id,
		Summary:          ev.summary,
		Description:      ev.description,
		Location:         ev.location,
		HTMLLink:         ev.url,
		Attendees:        slices.Clone(ev.attendees),
		RecurringEventID: recurringID,
	}

	if ev.allDay {
		e.Start = &models.EventTime{Date: start.Format(constants.DateFormat)}
		e.End = &models.EventTime{Date: end.Format(constants.DateFormat)}
	} else {
		e.Start = &models.EventTime{DateTime: start.In(loc).Format(time.RFC3339), TimeZone: loc.String()}
		e.End = &models.EventTime{DateTime: end.In(loc).Format(time.RFC3339), TimeZone: loc.String()}
	}

	if len(ev.reminders) == 0 {
		e.Reminders = &models.Reminders{UseDefault: true}
	} else {
		e.Reminders = &models.Reminders{}
		for _, m := range ev.reminders {
			e.Reminders.Overrides = append(e.Reminders.Overrides, models.ReminderOverride{Method: "popup", Minutes: m})
		}
	}
	return e
}

// encodeVEvent appends e to cal as a new VEVENT.
func encodeVEvent(cal *ical.Calendar, e models.Event, now time.Time, loc *time.Location) error {
	start, ok := e.StartTime(loc)
	if !ok {
		return errors.New("event has no valid start")
	}
	end, ok := e.EndTime(loc)
	if !ok {
		end = start
	}

	ve := cal.AddEvent(e.ID)
	ve.SetDtStampTime(now)
	ve.SetCreatedTime(now)
	ve.SetSummary(e.Summary)
	if e.Description != "" {
		ve.SetDescription(e.Description)
	}
	if e.Location != "" {
		ve.SetLocation(e.Location)
	}
	if e.HTMLLink != "" {
		ve.SetURL(e.HTMLLink)
	}

	if e.IsAllDay() {
		if !end.After(start) {
			end = start.AddDate(0, 0, 1)
		}
		ve.SetAllDayStartAt(start)
		ve.SetAllDayEndAt(end)
	} else {
		ve.SetStartAt(start)
		ve.SetEndAt(end)
	}

	for _, a := range e.Attendees {
		ve.AddAttendee("mailto:" + a.Email)
	}

	if e.Reminders != nil {
		for _, o := range e.Reminders.Overrides {
			alarm := ve.AddAlarm()
			alarm.SetAction(ical.ActionDisplay)
			alarm.SetTrigger(formatTrigger(o.Minutes))
			alarm.SetDescription(e.Summary)
		}
	}
	return nil
}

func newCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)
	return cal
}
