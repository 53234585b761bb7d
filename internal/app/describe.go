package app

import (
	"encoding/json"
	"fmt"

	"github.com/relabs-tech/step_navigation/internal/events"
)

// describe renders an event as one console line.
func describe(ev events.Event) string {
	switch e := ev.(type) {
	case events.StepEvent:
		return fmt.Sprintf("[STEP]  #%d  |a|=%.2fg", e.Count, e.Magnitude)
	case events.HeadingUpdate:
		return fmt.Sprintf("[HEAD]  raw=%6.1f°  filtered=%6.1f°", e.Raw, e.Filtered)
	case events.CalibratedHeadingUpdate:
		return fmt.Sprintf("[CHDG]  heading=%6.1f°  correction=%+.1f°", e.Heading, e.Correction)
	case events.BearingUpdate:
		return fmt.Sprintf("[BRNG]  gps bearing=%6.1f°", e.Bearing)
	case events.LocationUpdate:
		return fmt.Sprintf("[LOC ]  lat=%.7f lon=%.7f (%s)", e.Latitude, e.Longitude, e.Origin)
	case events.CalibrationCompleted:
		return fmt.Sprintf("[CAL ]  calibrated: correction=%+.1f° σ=%.2f° over %d samples",
			e.CorrectionFactor, e.StdDev, e.Samples)
	default:
		return fmt.Sprintf("[????]  %+v", ev)
	}
}

// decodeEvent turns a JSON payload back into the event of type t.
func decodeEvent(t events.Type, payload []byte) (events.Event, error) {
	var (
		ev  events.Event
		err error
	)
	switch t {
	case events.Step:
		ev, err = decodeAs[events.StepEvent](payload)
	case events.Heading:
		ev, err = decodeAs[events.HeadingUpdate](payload)
	case events.CalibratedHeading:
		ev, err = decodeAs[events.CalibratedHeadingUpdate](payload)
	case events.Bearing:
		ev, err = decodeAs[events.BearingUpdate](payload)
	case events.Location:
		ev, err = decodeAs[events.LocationUpdate](payload)
	case events.Calibration:
		ev, err = decodeAs[events.CalibrationCompleted](payload)
	default:
		return nil, fmt.Errorf("unknown event type %q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s event: %w", t, err)
	}
	return ev, nil
}

func decodeAs[E events.Event](payload []byte) (events.Event, error) {
	var e E
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, err
	}
	return e, nil
}
