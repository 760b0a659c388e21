package weather

import (
	"fmt"
	"io"
	"time"
)

// WriteText renders r as a short plain-text card.
func (r *Report) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s: %.1f°C, %s\n  humidity %d%%, wind %.1f m/s\n",
		r.City, r.Current.Temp, r.Current.Description, r.Current.Humidity, r.Current.WindSpeed)
	if err != nil {
		return err
	}
	for _, d := range r.Forecast {
		label := d.Date
		if t, err := time.Parse("2006-01-02", d.Date); err == nil {
			label = t.Format("Mon 02 Jan")
		}
		if _, err := fmt.Fprintf(w, "  %-10s %5.1f / %5.1f°C  %s\n", label, d.TempMin, d.TempMax, d.Description); err != nil {
			return err
		}
	}
	return nil
}
