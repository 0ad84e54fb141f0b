// Package gcal downloads a public Google Calendar ICS feed and
// flattens its events into CSV rows.
package gcal

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"datalab-backend/lib/restyutil"
	"datalab-backend/lib/tabular"

	ics "github.com/arran4/golang-ical"
	"github.com/go-resty/resty/v2"
)

const DefaultCalendarID = "c_41592e57472725b685e2d4ffb20f05c12f117f9ea2a46431ea621ed686f870ff" +
	"@group.calendar.google.com"

func BuildIcsUrl(calendarID string) string {
	return fmt.Sprintf("https://calendar.google.com/calendar/ical/%s/public/full.ics",
		url.PathEscape(calendarID))
}

// ResolveSource picks the feed URL: an explicit URL wins, then a
// calendar id, then the default calendar.
func ResolveSource(icsUrl, calendarID string) string {
	if icsUrl != "" {
		return icsUrl
	}
	if calendarID != "" {
		return BuildIcsUrl(calendarID)
	}
	return BuildIcsUrl(DefaultCalendarID)
}

type Client struct {
	Http *resty.Client
}

func NewClient() *Client {
	return &Client{
		Http: restyutil.NewClient("gcal", restyutil.Options{
			Timeout: time.Second * 30,
			Retries: 2,
		}),
	}
}

func (c *Client) FetchIcs(ctx context.Context, feedUrl string) ([]byte, error) {
	res, err := c.Http.R().SetContext(ctx).Get(feedUrl)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("HTTP %d fetching ICS feed", res.StatusCode())
	}
	return res.Body(), nil
}

// Event is one VEVENT, with timestamps normalized to ISO form.
type Event struct {
	UID          string
	Title        string
	Description  string
	Location     string
	Start        string
	End          string
	AllDay       bool
	LastModified string
	RecurrenceID string
}

// ParseEvents decodes the feed and returns its events sorted by start
// and title. An event counts as all-day when its DTSTART carries a
// bare date instead of a datetime.
func ParseEvents(data []byte) ([]Event, error) {
	calendar, err := ics.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var events []Event
	for _, component := range calendar.Events() {
		start := component.GetProperty(ics.ComponentPropertyDtStart)

		lastModified := propertyValue(component, ics.ComponentPropertyLastModified)
		if lastModified == "" {
			lastModified = propertyValue(component, ics.ComponentPropertyDtstamp)
		}

		events = append(events, Event{
			UID:          propertyValue(component, ics.ComponentPropertyUniqueId),
			Title:        propertyValue(component, ics.ComponentPropertySummary),
			Description:  propertyValue(component, ics.ComponentPropertyDescription),
			Location:     propertyValue(component, ics.ComponentPropertyLocation),
			Start:        normalizeStamp(propertyValue(component, ics.ComponentPropertyDtStart)),
			End:          normalizeStamp(propertyValue(component, ics.ComponentPropertyDtEnd)),
			AllDay:       start != nil && isBareDate(start.Value),
			LastModified: normalizeStamp(lastModified),
			RecurrenceID: normalizeStamp(propertyValue(component, ics.ComponentPropertyRecurrenceId)),
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Start != events[j].Start {
			return events[i].Start < events[j].Start
		}
		return events[i].Title < events[j].Title
	})
	return events, nil
}

func propertyValue(event *ics.VEvent, name ics.ComponentProperty) string {
	property := event.GetProperty(name)
	if property == nil {
		return ""
	}
	return property.Value
}

func isBareDate(value string) bool {
	_, err := time.Parse("20060102", value)
	return err == nil
}

// normalizeStamp rewrites ICS timestamps into ISO form: bare dates
// become 2006-01-02, UTC stamps become RFC3339, and floating local
// stamps keep no offset. Anything else passes through unchanged.
func normalizeStamp(value string) string {
	if value == "" {
		return ""
	}
	if parsed, err := time.Parse("20060102", value); err == nil {
		return parsed.Format("2006-01-02")
	}
	if parsed, err := time.Parse("20060102T150405Z", value); err == nil {
		return parsed.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	if parsed, err := time.Parse("20060102T150405", value); err == nil {
		return parsed.Format("2006-01-02T15:04:05")
	}
	return value
}

// EventFields is the column layout of the calendar CSV.
var EventFields = []string{
	"uid", "title", "description", "location",
	"start", "end", "all_day", "last_modified", "recurrence_id",
}

func CsvRows(events []Event) []tabular.Row {
	rows := make([]tabular.Row, 0, len(events))
	for _, event := range events {
		rows = append(rows, tabular.Row{
			"uid":           event.UID,
			"title":         event.Title,
			"description":   event.Description,
			"location":      event.Location,
			"start":         event.Start,
			"end":           event.End,
			"all_day":       event.AllDay,
			"last_modified": event.LastModified,
			"recurrence_id": event.RecurrenceID,
		})
	}
	return rows
}
