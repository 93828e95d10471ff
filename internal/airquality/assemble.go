package airquality

import (
	"fmt"
	"strings"
	"time"
)

// WeatherPayload mirrors the subset of the current-weather response we consume.
// Pointer fields distinguish a missing key from a zero value.
type WeatherPayload struct {
	Main *struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description *string `json:"description"`
	} `json:"weather"`
}

// PollutionPayload mirrors the subset of the air-pollution response we consume.
type PollutionPayload struct {
	List []PollutionEntry `json:"list"`
}

// PollutionEntry is one element of PollutionPayload.List.
type PollutionEntry struct {
	Main *struct {
		AQI *int `json:"aqi"`
	} `json:"main"`
	Components *struct {
		PM25 *float64 `json:"pm2_5"`
		PM10 *float64 `json:"pm10"`
		NO2  *float64 `json:"no2"`
		O3   *float64 `json:"o3"`
		CO   *float64 `json:"co"`
	} `json:"components"`
}

// Assemble merges a weather and a pollution payload into a single SensorSample
// stamped with the capture instant now. Only the first pollution entry is used.
func Assemble(w WeatherPayload, p PollutionPayload, now time.Time) (SensorSample, error) {
	var missing []string
	need := func(ok bool, path string) {
		if !ok {
			missing = append(missing, path)
		}
	}

	need(w.Main != nil && w.Main.Temp != nil, "main.temp")
	need(w.Main != nil && w.Main.Humidity != nil, "main.humidity")
	need(len(w.Weather) > 0 && w.Weather[0].Description != nil, "weather[0].description")

	var entry PollutionEntry
	if len(p.List) == 0 {
		missing = append(missing, "list[0]")
	} else {
		entry = p.List[0]
		need(entry.Main != nil && entry.Main.AQI != nil, "list[0].main.aqi")
		c := entry.Components
		need(c != nil && c.PM25 != nil, "list[0].components.pm2_5")
		need(c != nil && c.PM10 != nil, "list[0].components.pm10")
		need(c != nil && c.NO2 != nil, "list[0].components.no2")
		need(c != nil && c.O3 != nil, "list[0].components.o3")
		need(c != nil && c.CO != nil, "list[0].components.co")
	}

	if len(missing) > 0 {
		return SensorSample{}, fmt.Errorf("%w: missing %s", ErrMalformedPayload, strings.Join(missing, ", "))
	}

	aqi := *entry.Main.AQI
	return SensorSample{
		Timestamp:   now.UTC(),
		Temperature: *w.Main.Temp,
		Humidity:    *w.Main.Humidity,
		Weather:     *w.Weather[0].Description,
		AQIIndex:    &aqi,
		PM25:        *entry.Components.PM25,
		PM10:        *entry.Components.PM10,
		NO2:         *entry.Components.NO2,
		O3:          *entry.Components.O3,
		CO:          *entry.Components.CO,
	}, nil
}
