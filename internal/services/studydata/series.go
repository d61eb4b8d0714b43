package studydata

import (
	"fmt"
	"sort"
	"strings"

	"entrain/internal/biosignal"
)

type respondentsResponse struct {
	Respondents []respondentPayload `json:"respondents"`
}

type respondentPayload struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Device string `json:"device"`
}

type psdResponse struct {
	Bands []psdBand `json:"bands"`
}

type psdBand struct {
	Band     string       `json:"band"`
	Channels []psdChannel `json:"channels"`
}

type psdChannel struct {
	Channel string      `json:"channel"`
	Samples []psdSample `json:"samples"`
}

type psdSample struct {
	Timestamp float64  `json:"t"`
	Value     *float64 `json:"value"`
}

// series converts the wire payload into the rectangular series model.
// Electrode channels within a band are averaged over their present values
// per timestamp; a timestamp where every channel reported null stays
// Missing. Bands are aligned on the sorted union of all observed
// timestamps; a cell a band never observed is merge padding, not a
// measurement gap.
func (r psdResponse) series(respondent biosignal.Respondent) (biosignal.Series, error) {
	type bandData struct {
		times    map[float64]struct{}
		channels []map[float64]*float64
	}
	bands := make(map[biosignal.Band]*bandData)
	for _, wire := range r.Bands {
		name := biosignal.Band(strings.ToLower(strings.TrimSpace(wire.Band)))
		if name == "" {
			return biosignal.Series{}, fmt.Errorf("band name missing in response")
		}
		data := bands[name]
		if data == nil {
			data = &bandData{times: make(map[float64]struct{})}
			bands[name] = data
		}
		for _, channel := range wire.Channels {
			samples := make(map[float64]*float64, len(channel.Samples))
			for _, sample := range channel.Samples {
				samples[sample.Timestamp] = sample.Value
				data.times[sample.Timestamp] = struct{}{}
			}
			data.channels = append(data.channels, samples)
		}
	}

	union := make(map[float64]struct{})
	for _, data := range bands {
		for t := range data.times {
			union[t] = struct{}{}
		}
	}
	times := make([]float64, 0, len(union))
	for t := range union {
		times = append(times, t)
	}
	sort.Float64s(times)

	columns := make(map[biosignal.Band][]biosignal.Value, len(bands))
	for name, data := range bands {
		column := make([]biosignal.Value, len(times))
		for i, t := range times {
			if _, observed := data.times[t]; !observed {
				column[i] = biosignal.NotApplicable()
				continue
			}
			column[i] = averageChannels(data.channels, t)
		}
		columns[name] = column
	}
	return biosignal.NewSeries(respondent, times, columns)
}

func averageChannels(channels []map[float64]*float64, t float64) biosignal.Value {
	var sum float64
	var count int
	for _, samples := range channels {
		value, ok := samples[t]
		if !ok || value == nil {
			continue
		}
		sum += *value
		count++
	}
	if count == 0 {
		return biosignal.Missing()
	}
	return biosignal.Present(sum / float64(count))
}
