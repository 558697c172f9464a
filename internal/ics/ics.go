// Package ics renders seminar calendar invites.
package ics

import (
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/pkg/utils"
)

const (
	// EventDuration is the fixed length of every seminar invite.
	EventDuration = 2 * time.Hour
	// ContentType is the MIME type of the rendered invite.
	ContentType = "text/calendar"

	productID  = "-//Seminarios//Seminar Calendar//PT-BR"
	localStamp = "20060102T150405"
	// The zone has no DST, so one STANDARD block describes it.
	zoneOffset = "-0300"
	zoneName   = "-03"
	zoneEpoch  = "19700101T000000"
)

// ErrNotScheduled is returned for seminars without a date.
var ErrNotScheduled = errors.New("seminar has no scheduled date")

// Options carries the deployment values baked into invites.
type Options struct {
	Host        string // UID domain
	FrontendURL string // base of the public seminar page
}

// Filename returns the attachment name of the seminar invite.
func Filename(s *models.Seminar) string {
	return "seminario-" + s.Slug + ".ics"
}

// Generate renders a VCALENDAR with a single VEVENT for s. The output depends only on s,
// opts and now.
func Generate(s *models.Seminar, opts Options, now time.Time) ([]byte, error) {
	if s == nil || s.ScheduledAt == nil {
		return nil, ErrNotScheduled
	}
	start := s.ScheduledAt.In(utils.Location)
	end := start.Add(EventDuration)
	tzid := &ical.KeyValues{Key: string(ical.ParameterTzid), Value: []string{utils.Location.String()}}

	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)
	addZone(cal)

	event := cal.AddEvent("seminar-" + s.ID.String() + "@" + opts.Host)
	event.SetDtStampTime(now)
	event.SetProperty(ical.ComponentPropertyDtStart, start.Format(localStamp), tzid)
	event.SetProperty(ical.ComponentPropertyDtEnd, end.Format(localStamp), tzid)
	event.SetSummary(utils.NormalizeNewlines(s.Name))
	if s.Location != nil && strings.TrimSpace(*s.Location) != "" {
		event.SetLocation(utils.NormalizeNewlines(*s.Location))
	}
	if desc := Description(s); desc != "" {
		event.SetDescription(desc)
	}
	event.SetURL(strings.TrimRight(opts.FrontendURL, "/") + "/seminarios/" + s.Slug)
	event.SetStatus(ical.ObjectStatusConfirmed)

	return []byte(cal.Serialize(ical.WithNewLineWindows)), nil
}

// addZone declares the VTIMEZONE referenced by the TZID of DTSTART and DTEND.
func addZone(cal *ical.Calendar) {
	std := cal.AddTimezone(utils.Location.String()).AddStandard()
	std.SetProperty(ical.ComponentPropertyDtStart, zoneEpoch)
	std.SetProperty(ical.ComponentProperty(ical.PropertyTzoffsetfrom), zoneOffset)
	std.SetProperty(ical.ComponentProperty(ical.PropertyTzoffsetto), zoneOffset)
	std.SetProperty(ical.ComponentProperty(ical.PropertyTzname), zoneName)
}

// Description is the unescaped DESCRIPTION text: the description without markup,
// followed by the room link when there is one.
func Description(s *models.Seminar) string {
	desc := strings.TrimSpace(utils.StripTags(utils.NormalizeNewlines(s.Description)))
	if s.RoomLink != nil && *s.RoomLink != "" {
		desc += "\n\nLink de acesso: " + *s.RoomLink
	}
	return desc
}
