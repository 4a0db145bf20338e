package domain

import "github.com/samber/lo"

// Reading is the latest report from one environmental sensor. A sensor
// that cannot measure a quantity simply leaves the field nil; sensor
// failure never crosses this boundary as an error.
type Reading struct {
	Temp     *float64
	Humidity *float64
	Pressure *float64
	Altitude *float64
}

// Readings maps sensor name to its latest reading.
type Readings map[string]Reading

// MeanTemp returns the arithmetic mean temperature across all sensors
// that report one, and false when none do.
func (r Readings) MeanTemp() (float64, bool) {
	return mean(r, func(rd Reading) *float64 { return rd.Temp })
}

// MeanHumidity returns the mean relative humidity across reporting
// sensors, and false when none report it.
func (r Readings) MeanHumidity() (float64, bool) {
	return mean(r, func(rd Reading) *float64 { return rd.Humidity })
}

func mean(r Readings, pick func(Reading) *float64) (float64, bool) {
	values := lo.FilterMap(lo.Values(r), func(rd Reading, _ int) (float64, bool) {
		if v := pick(rd); v != nil {
			return *v, true
		}
		return 0, false
	})
	if len(values) == 0 {
		return 0, false
	}
	return lo.Sum(values) / float64(len(values)), true
}
