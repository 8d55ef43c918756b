package forecast

import (
	"errors"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
	"github.com/sirupsen/logrus"
)

var (
	ErrStartAfterEnd = errors.New("event start time is after end time")
	ErrUnsetTime     = errors.New("unset event start or end time")
	ErrNoEventName   = errors.New("no event name")
)

// USHolidays are the holidays modelled when holidays are enabled
var USHolidays = []*cal.Holiday{
	us.NewYear,
	us.MemorialDay,
	us.IndependenceDay,
	us.LaborDay,
	us.ThanksgivingDay,
	us.ChristmasDay,
}

// Event represents a time span to model separately as a jump in the series. Events sharing a
// name share a single coefficient.
type Event struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewEvent(name string, start, end time.Time) Event {
	return Event{
		Name:  name,
		Start: start,
		End:   end,
	}
}

func (e *Event) Valid() error {
	if e.Start.IsZero() || e.End.IsZero() {
		return ErrUnsetTime
	}
	if e.Start.After(e.End) {
		return ErrStartAfterEnd
	}
	if e.Name == "" {
		return ErrNoEventName
	}
	return nil
}

// Contains reports whether the time point lies in [Start, End)
func (e *Event) Contains(tPnt time.Time) bool {
	return !tPnt.Before(e.Start) && tPnt.Before(e.End)
}

// EventOptions lists explicit events and toggles the US holiday calendar
type EventOptions struct {
	Events   []Event `json:"events"`
	Holidays bool    `json:"holidays"`
}

// Holiday returns one day long events on the observed date of the holiday for every year
// between start and end inclusive. Dates are placed in the location of loc.
func Holiday(hol *cal.Holiday, startYear, endYear int, loc *time.Location) []Event {
	if loc == nil {
		loc = time.UTC
	}
	name := strings.ReplaceAll(hol.Name, " ", "_")

	var events []Event
	for year := startYear; year <= endYear; year++ {
		_, observed := hol.Calc(year)
		if observed.IsZero() {
			continue
		}
		day := time.Date(observed.Year(), observed.Month(), observed.Day(), 0, 0, 0, 0, loc)
		events = append(events, NewEvent(name, day, day.Add(24*time.Hour)))
	}
	return events
}

// events returns every event that should be masked over the time points
func (e EventOptions) events(t []time.Time) []Event {
	events := make([]Event, 0, len(e.Events))
	for _, ev := range e.Events {
		if err := ev.Valid(); err != nil {
			logrus.WithFields(logrus.Fields{
				"name":  ev.Name,
				"error": err.Error(),
			}).Warn("not separately modelling invalid event")
			continue
		}
		events = append(events, ev)
	}

	if !e.Holidays || len(t) == 0 {
		return events
	}

	minYear, maxYear := t[0].Year(), t[0].Year()
	for _, tPnt := range t {
		if y := tPnt.Year(); y < minYear {
			minYear = y
		} else if y > maxYear {
			maxYear = y
		}
	}
	for _, hol := range USHolidays {
		events = append(events, Holiday(hol, minYear, maxYear, t[0].Location())...)
	}
	return events
}
