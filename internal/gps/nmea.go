package gps

import (
	"errors"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
)

// ErrIgnored is returned for sentences that do not produce a fix.
var ErrIgnored = errors.New("gps: sentence ignored")

// ParseSentence parses one NMEA line. RMC sentences yield a Fix stamped with
// received; every other sentence type returns ErrIgnored.
func ParseSentence(line string, received time.Time) (Fix, error) {
	line = strings.TrimSpace(line)
	// NMEA sentences usually start with '$'
	if !strings.HasPrefix(line, "$") {
		return Fix{}, ErrIgnored
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return Fix{}, err
	}

	// GGA/GSA/GSV carry no course; RMC has everything dead reckoning needs.
	if sentence.DataType() != nmea.TypeRMC {
		return Fix{}, ErrIgnored
	}
	m := sentence.(nmea.RMC)

	return Fix{
		Time:       m.Time.String(),
		Date:       m.Date.String(),
		Received:   received,
		Latitude:   m.Latitude,
		Longitude:  m.Longitude,
		SpeedKnots: m.Speed,
		CourseDeg:  m.Course,
		Validity:   m.Validity,
	}, nil
}
