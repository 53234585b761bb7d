package app

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/relabs-tech/step_navigation/internal/navigation"
)

// NavigationView is what the web view reads and controls.
type NavigationView interface {
	Position() (orb.Point, bool)
	Status() navigation.Status
	Track() orb.LineString
	ResetCalibration()
}

// Position is the /api/position payload.
type Position struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Heading   float64 `json:"heading_deg"`
	State     string  `json:"state"`
}

// NewWebHandler serves the JSON API, the websocket stream and, when
// staticDir is set, the static UI.
func NewWebHandler(nav NavigationView, hub *Hub, staticDir string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, "application/json", nav.Status())
	})

	mux.HandleFunc("/api/position", func(w http.ResponseWriter, r *http.Request) {
		p, ok := nav.Position()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		st := nav.Status()
		writeJSON(w, "application/json", Position{
			Latitude:  p.Lat(),
			Longitude: p.Lon(),
			Heading:   st.CalibratedHeading,
			State:     st.State.String(),
		})
	})

	mux.HandleFunc("/api/track", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, "application/geo+json", trackCollection(nav.Status(), nav.Track()))
	})

	mux.HandleFunc("/api/calibration/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		nav.ResetCalibration()
		w.WriteHeader(http.StatusNoContent)
	})

	if hub != nil {
		mux.Handle("/ws", hub)
	}
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

// trackCollection builds the walked track and the current position as
// GeoJSON features.
func trackCollection(st navigation.Status, track orb.LineString) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if len(track) >= 2 {
		line := geojson.NewFeature(track)
		line.Properties["name"] = "track"
		line.Properties["distance_m"] = st.DistanceMeters
		line.Properties["steps"] = st.Steps
		fc.Append(line)
	}
	if st.HasPosition {
		pos := geojson.NewFeature(orb.Point{st.Longitude, st.Latitude})
		pos.Properties["name"] = "position"
		pos.Properties["state"] = st.State.String()
		pos.Properties["heading_deg"] = st.CalibratedHeading
		fc.Append(pos)
	}
	return fc
}

func writeJSON(w http.ResponseWriter, contentType string, v interface{}) {
	w.Header().Set("Content-Type", contentType)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// ServeWeb listens on addr until ctx is done.
func ServeWeb(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("web: server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
