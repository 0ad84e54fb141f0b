package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Europe/Madrid")
	if err != nil {
		panic(err)
	}
}

// force timezone to be Madrid regardless of where the runner lives,
// the upstream datasets key their rows on Madrid civil dates so
// Year()/Month()/Day() arithmetic has to happen in that zone
func Now() time.Time {
	return time.Now().In(Location)
}

// Yesterday returns the civil date of yesterday in Madrid.
func Yesterday() time.Time {
	y := Now().AddDate(0, 0, -1)
	return time.Date(y.Year(), y.Month(), y.Day(), 0, 0, 0, 0, Location)
}

// YesterdayYMD returns yesterday split into zero-padded year, month and
// day strings, the representation the air quality API uses for
// ANO/MES/DIA columns.
func YesterdayYMD() (string, string, string) {
	y := Yesterday()
	return y.Format("2006"), y.Format("01"), y.Format("02")
}
