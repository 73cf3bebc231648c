package schedule

import (
	"archive/zip"
	"cmp"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"github.com/camsys/nyct-rt-proxy/tripid"
)

// ErrInvalidValue reports a malformed column value encountered while
// loading the static schedule bundle.
type ErrInvalidValue struct {
	File, Column string
	Reason       error
}

func (e ErrInvalidValue) Error() string {
	if e.Reason == nil {
		return fmt.Sprintf("%s: invalid %s", e.File, e.Column)
	}
	return fmt.Sprintf("%s: invalid %s: %s", e.File, e.Column, e.Reason)
}

func (e ErrInvalidValue) Unwrap() error { return e.Reason }

// ErrBadPathId reports a trip whose static trip_id does not match the
// static trip-id grammar. Fatal at index-build time per spec.md §7.
type ErrBadPathId string

func (e ErrBadPathId) Error() string {
	return fmt.Sprintf("trips.txt: trip_id %q does not match the static grammar", string(e))
}

type routeCSV struct {
	RouteID string `csv:"route_id"`
}

type agencyCSV struct {
	ID       string `csv:"agency_id"`
	Timezone string `csv:"agency_timezone"`
}

type tripCSV struct {
	TripID    string `csv:"trip_id"`
	RouteID   string `csv:"route_id"`
	Direction string `csv:"direction_id"`
	ServiceID string `csv:"service_id"`
	MTATripID string `csv:"mta_trip_id"`
}

type stopTimeCSV struct {
	TripID        string `csv:"trip_id"`
	StopID        string `csv:"stop_id"`
	StopSequence  int    `csv:"stop_sequence"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
}

type calendarDateCSV struct {
	ServiceID     string `csv:"service_id"`
	Date          string `csv:"date"`
	ExceptionType int    `csv:"exception_type"`
}

// Bundle is the result of loading a static GTFS Schedule feed: the
// built index plus the agency timezone the feed was published in.
type Bundle struct {
	Index    *ActivatedTripIndex
	Timezone *time.Location
}

// LoadFromPath loads a static schedule bundle from either a directory
// of CSV files or a zip archive, mirroring the teacher's dual-path
// loader.
func LoadFromPath(path string) (*Bundle, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if stat.IsDir() {
		return Load(os.DirFS(path))
	}

	arch, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer arch.Close()

	return Load(arch)
}

// Load reads a static GTFS Schedule bundle (routes.txt, agency.txt,
// trips.txt, stop_times.txt, calendar_dates.txt) and builds an
// ActivatedTripIndex. A malformed bundle is a fatal error, per
// spec.md §7.
func Load(bundle fs.FS) (*Bundle, error) {
	tz, err := loadAgencyTimezone(bundle)
	if err != nil {
		return nil, errors.Wrap(err, "agency.txt")
	}

	routes, err := loadRoutes(bundle)
	if err != nil {
		return nil, errors.Wrap(err, "routes.txt")
	}

	datesByService, err := loadServiceDates(bundle)
	if err != nil {
		return nil, errors.Wrap(err, "calendar_dates.txt")
	}

	trips, err := loadTrips(bundle, routes)
	if err != nil {
		return nil, errors.Wrap(err, "trips.txt")
	}

	if err := loadStopTimes(bundle, trips); err != nil {
		return nil, errors.Wrap(err, "stop_times.txt")
	}

	tripList := make([]*ScheduledTrip, 0, len(trips))
	for _, trip := range trips {
		tripList = append(tripList, trip)
	}

	return &Bundle{
		Index:    NewActivatedTripIndex(tripList, datesByService),
		Timezone: tz,
	}, nil
}

func loadAgencyTimezone(bundle fs.FS) (*time.Location, error) {
	f, err := bundle.Open("agency.txt")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []*agencyCSV
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, errors.Wrap(err, "unmarshaling")
	}
	if len(rows) == 0 {
		return nil, ErrInvalidValue{File: "agency.txt", Column: "agency_timezone"}
	}

	tz, err := time.LoadLocation(rows[0].Timezone)
	if err != nil {
		return nil, ErrInvalidValue{File: "agency.txt", Column: "agency_timezone", Reason: err}
	}
	return tz, nil
}

func loadRoutes(bundle fs.FS) (map[string]bool, error) {
	f, err := bundle.Open("routes.txt")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []*routeCSV
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, errors.Wrap(err, "unmarshaling")
	}

	routes := make(map[string]bool, len(rows))
	for _, r := range rows {
		if r.RouteID == "" {
			return nil, ErrInvalidValue{File: "routes.txt", Column: "route_id"}
		}
		routes[r.RouteID] = true
	}
	return routes, nil
}

// loadServiceDates loads calendar_dates.txt exception_type=1 rows into
// a per-service set of active ServiceDates. This agency's feed
// publishes exact service dates, not calendar.txt day-of-week service.
func loadServiceDates(bundle fs.FS) (map[string]map[ServiceDate]bool, error) {
	f, err := bundle.Open("calendar_dates.txt")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []*calendarDateCSV
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, errors.Wrap(err, "unmarshaling")
	}

	dates := make(map[string]map[ServiceDate]bool)
	for _, row := range rows {
		if row.ServiceID == "" {
			return nil, ErrInvalidValue{File: "calendar_dates.txt", Column: "service_id"}
		}
		if row.ExceptionType != 1 {
			continue
		}

		d, err := parseGTFSDate(row.Date)
		if err != nil {
			return nil, ErrInvalidValue{File: "calendar_dates.txt", Column: "date", Reason: err}
		}

		if dates[row.ServiceID] == nil {
			dates[row.ServiceID] = make(map[ServiceDate]bool)
		}
		dates[row.ServiceID][d] = true
	}
	return dates, nil
}

func parseGTFSDate(s string) (ServiceDate, error) {
	if len(s) != 8 {
		return ServiceDate{}, fmt.Errorf("expected YYYYMMDD, got %q", s)
	}
	y, err := strconv.Atoi(s[0:4])
	if err != nil {
		return ServiceDate{}, err
	}
	m, err := strconv.Atoi(s[4:6])
	if err != nil {
		return ServiceDate{}, err
	}
	d, err := strconv.Atoi(s[6:8])
	if err != nil {
		return ServiceDate{}, err
	}
	return ServiceDate{Y: y, M: time.Month(m), D: d}, nil
}

func loadTrips(bundle fs.FS, routes map[string]bool) (map[string]*ScheduledTrip, error) {
	f, err := bundle.Open("trips.txt")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []*tripCSV
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, errors.Wrap(err, "unmarshaling")
	}

	trips := make(map[string]*ScheduledTrip, len(rows))
	for _, row := range rows {
		if row.TripID == "" {
			return nil, ErrInvalidValue{File: "trips.txt", Column: "trip_id"}
		}
		if row.RouteID == "" || !routes[row.RouteID] {
			return nil, ErrInvalidValue{File: "trips.txt", Column: "route_id"}
		}
		if row.ServiceID == "" {
			return nil, ErrInvalidValue{File: "trips.txt", Column: "service_id"}
		}

		directionID, err := staticDirection(row.Direction)
		if err != nil {
			return nil, ErrInvalidValue{File: "trips.txt", Column: "direction_id", Reason: err}
		}

		staticID, err := tripid.ParseStatic(row.TripID)
		if err != nil {
			return nil, ErrBadPathId(row.TripID)
		}

		trips[row.TripID] = &ScheduledTrip{
			TripID:      row.TripID,
			Route:       row.RouteID,
			DirectionID: directionID,
			ServiceID:   row.ServiceID,
			PathID:      staticID.PathID,
			NetworkID:   staticID.NetworkID,
			RawID:       row.MTATripID,
		}
	}
	return trips, nil
}

func staticDirection(raw string) (string, error) {
	switch raw {
	case "0":
		return "N", nil
	case "1":
		return "S", nil
	default:
		return "", fmt.Errorf("expected 0 or 1, got %q", raw)
	}
}

// stopTimeRow is a parsed stop_times.txt row, held onto until every row
// for a trip is in hand so the rows can be sorted by stop_sequence —
// GTFS does not guarantee file row order matches sequence order.
type stopTimeRow struct {
	sequence int
	stop     StopTime
}

func loadStopTimes(bundle fs.FS, trips map[string]*ScheduledTrip) error {
	f, err := bundle.Open("stop_times.txt")
	if err != nil {
		return err
	}
	defer f.Close()

	rowsByTrip := make(map[string][]stopTimeRow)

	if err := gocsv.UnmarshalToCallbackWithError(f, func(row *stopTimeCSV) error {
		if _, ok := trips[row.TripID]; !ok {
			return ErrInvalidValue{File: "stop_times.txt", Column: "trip_id"}
		}
		if row.StopID == "" {
			return ErrInvalidValue{File: "stop_times.txt", Column: "stop_id"}
		}

		arrival, err := parseExtendedTime(row.ArrivalTime)
		if err != nil {
			return ErrInvalidValue{File: "stop_times.txt", Column: "arrival_time", Reason: err}
		}
		departure, err := parseExtendedTime(row.DepartureTime)
		if err != nil {
			return ErrInvalidValue{File: "stop_times.txt", Column: "departure_time", Reason: err}
		}

		rowsByTrip[row.TripID] = append(rowsByTrip[row.TripID], stopTimeRow{
			sequence: row.StopSequence,
			stop: StopTime{
				StopID:       row.StopID,
				ArrivalSec:   arrival,
				DepartureSec: departure,
			},
		})
		return nil
	}); err != nil {
		return errors.Wrap(err, "unmarshaling")
	}

	for tripID, rows := range rowsByTrip {
		slices.SortFunc(rows, func(a, b stopTimeRow) int {
			return cmp.Compare(a.sequence, b.sequence)
		})

		trip := trips[tripID]
		trip.StopTimes = make([]StopTime, len(rows))
		for i, row := range rows {
			trip.StopTimes[i] = row.stop
		}
		trip.StartSec = trip.StopTimes[0].DepartureSec
		trip.EndSec = trip.StopTimes[len(trip.StopTimes)-1].ArrivalSec
	}

	return nil
}

// parseExtendedTime parses a GTFS H...H:MM:SS time string. The hour
// component is unbounded, since stop times on a 26-hour service day
// may exceed 23.
func parseExtendedTime(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("expected H:MM:SS, got %q", s)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	sec, err := strconv.Atoi(parts[2])
	if err != nil || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("invalid second in %q", s)
	}

	return h*3600 + m*60 + sec, nil
}
