package triplog

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/USA-RedDragon/camper-server/internal/planner"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	tripsDir    = "trips"
	summaryFile = "summary.csv"
)

var summaryHeader = []string{
	"timestamp", "trip", "origin", "destination", "waypoints", "km_per_day",
	"days", "driving_days", "distance_km", "error",
}

// Entry is the JSON document written for every itinerary computation.
type Entry struct {
	Timestamp time.Time       `json:"timestamp"`
	Trip      string          `json:"trip"`
	Request   planner.Request `json:"request"`
	Result    planner.Result  `json:"result"`
	DebugLog  []string        `json:"debugLog"`
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a trip name into a file name safe string. Accents are dropped so "Cádiz"
// becomes "cadiz".
func Slug(name string) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err == nil {
		name = stripped
	}
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		return "trip"
	}
	if len(slug) > 80 {
		slug = strings.TrimRight(slug[:80], "-")
	}
	return slug
}

// TripName is the name a request is logged under.
func TripName(req planner.Request) string {
	if strings.TrimSpace(req.TripName) != "" {
		return strings.TrimSpace(req.TripName)
	}
	return req.Origin + " to " + req.Destination
}

func logPath(trip string) string {
	return tripsDir + "/" + Slug(trip) + ".json"
}

func summaryRecord(e Entry) []string {
	return []string{
		e.Timestamp.UTC().Format(time.RFC3339),
		e.Trip,
		e.Request.Origin,
		e.Request.Destination,
		strings.Join(e.Request.Waypoints, "|"),
		strconv.FormatFloat(e.Request.KmMaximoDia, 'f', -1, 64),
		strconv.Itoa(len(e.Result.DailyItinerary)),
		strconv.Itoa(e.Result.DrivingDays()),
		strconv.FormatFloat(e.Result.DistanceKm, 'f', 1, 64),
		e.Result.Error,
	}
}

func encodeCSV(records ...[]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// parseSummary returns each row as an object keyed by the header.
func parseSummary(data []byte) ([]map[string]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return []map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read summary header: %w", err)
	}
	rows := []map[string]string{}
	for {
		record, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read summary row: %w", err)
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
}

func decodeEntry(data []byte) (Entry, error) {
	var e Entry
	err := json.Unmarshal(data, &e)
	return e, err
}

func (q *Queue) readEntry(ctx context.Context, name string) (Entry, error) {
	data, err := q.store.ReadFile(ctx, name)
	if err != nil {
		return Entry{}, err
	}
	return decodeEntry(data)
}
