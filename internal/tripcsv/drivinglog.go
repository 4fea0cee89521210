package tripcsv

// drivinglog.go turns driving log legs into stops.
//
// Each driving log row is a leg: it departs from its own location and arrives
// at the "to" location. After all rows are read, the destination of the last
// leg becomes a trailing stop, and every stop's duration becomes the time
// spent there: its departure minus the arrival of the previous leg.

import (
	"strings"
	"time"
)

// Date layouts accepted in driving log exports. Four-digit years only:
// two-digit years are ambiguous across day/month orders. Slashed and dashed
// dates are month first; dotted dates are day first (22.03.2024).
var drivingLogDateLayouts = []string{
	"2006-01-02", "2006/01/02", "2006.01.02",
	"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "2.1.2006", "02.01.2006",
	"Jan 2, 2006", "2 Jan 2006",
	"20060102",
}

var drivingLogTimeLayouts = []string{
	"15:04", "15:04:05", "3:04 PM", "3:04:05 PM", "3:04PM", "3:04:05PM",
}

// parseInstant joins a date and a time of day into one UTC instant.
func parseInstant(date, clock string) (time.Time, bool) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" {
		return time.Time{}, false
	}

	if clock == "" {
		for _, dl := range drivingLogDateLayouts {
			if t, err := time.Parse(dl, date); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}

	value := date + " " + strings.ToUpper(clock)
	for _, dl := range drivingLogDateLayouts {
		for _, tl := range drivingLogTimeLayouts {
			if t, err := time.Parse(dl+" "+tl, value); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// arrivalCursor is the fold state: the arrival instant of the previous leg.
type arrivalCursor struct {
	at time.Time
	ok bool
}

// visit sets the stop's duration from the cursor, strips the consumed time
// log fields and returns the cursor positioned at the stop's own arrival.
func (c arrivalCursor) visit(stop *Stop) arrivalCursor {
	departure, depOK := parseInstant(stop.takeExtra(fieldDepartureDate), stop.takeExtra(fieldDepartureTime))
	arrival, arrOK := parseInstant(stop.takeExtra(fieldArrivalDate), stop.takeExtra(fieldArrivalTime))
	stop.takeExtra(fieldTo)
	stop.takeExtra(fieldToAddress)

	stop.Duration = nil
	if depOK && c.ok {
		if d := departure.Sub(c.at); d >= 0 {
			ms := d.Milliseconds()
			stop.Duration = &ms
		}
	}
	return arrivalCursor{at: arrival, ok: arrOK}
}

// finishDrivingLog appends the arrival stop and derives durations. stops
// must not be empty.
func finishDrivingLog(stops []Stop) []Stop {
	last := stops[len(stops)-1]
	arrivalDate := last.Extra[fieldArrivalDate]
	arrivalTime := last.Extra[fieldArrivalTime]

	final := Stop{
		Name:    last.Extra[fieldTo],
		Address: last.Extra[fieldToAddress],
	}
	final.setExtra(fieldDepartureDate, arrivalDate)
	final.setExtra(fieldDepartureTime, arrivalTime)
	final.setExtra(fieldArrivalDate, arrivalDate)
	final.setExtra(fieldArrivalTime, arrivalTime)
	stops = append(stops, final)

	first := stops[0]
	at, ok := parseInstant(first.Extra[fieldDepartureDate], first.Extra[fieldDepartureTime])
	cursor := arrivalCursor{at: at, ok: ok}

	for i := range stops {
		cursor = cursor.visit(&stops[i])
	}
	return stops
}
