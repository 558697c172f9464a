package utils

import "time"

// Location is the fixed application zone: America/Sao_Paulo at UTC-03:00, without DST.
var Location = time.FixedZone("America/Sao_Paulo", -3*60*60)

// LocalDay returns the [start, end) bounds of the local day containing t, shifted by offset days.
func LocalDay(t time.Time, offset int) (time.Time, time.Time) {
	l := t.In(Location)
	start := time.Date(l.Year(), l.Month(), l.Day()+offset, 0, 0, 0, 0, Location)
	return start, start.AddDate(0, 0, 1)
}

// FormatDate formats t as dd/mm/yyyy in the application zone.
func FormatDate(t time.Time) string {
	return t.In(Location).Format("02/01/2006")
}

// FormatDateTime formats t as dd/mm/yyyy às HH:MM in the application zone.
func FormatDateTime(t time.Time) string {
	return t.In(Location).Format("02/01/2006") + " às " + t.In(Location).Format("15:04")
}
