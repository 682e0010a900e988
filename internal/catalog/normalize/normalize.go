// Package normalize turns raw scraped records into the canonical catalog
// record. It is a pure transform: a malformed field becomes a null or a
// default, and only a record with no usable identity is dropped, with a
// reason, never aborting the batch.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/pressplay/gametracker/internal/catalog"
)

// defaultStore covers legacy steam batches that predate the store field.
const defaultStore = "steam"

// dateLayouts covers the release-date formats seen in staged batches.
// "2 Jan, 2006" is the Steam storefront format.
var dateLayouts = []string{
	"2 Jan, 2006",
	"Jan 2, 2006",
	"2006-01-02",
	time.RFC3339,
}

// storagePattern pulls the storage figure out of the Steam requirements
// HTML. The optional backslash tolerates the JSON-escaped "<\/strong>"
// form that survives in staged payloads.
var storagePattern = regexp.MustCompile(`<strong>Storage:<\\?/strong>\s*(.+?) available space`)

// RawRecord is one record as delivered by the staging layer.
type RawRecord struct {
	AppID FlexString `json:"app_id"`
	URL   string     `json:"url"`
	Store string     `json:"store"`

	Title string `json:"title"`
	Name  string `json:"name"`

	Release     string `json:"release"`
	ReleaseDate string `json:"release_date"`

	Description  *string         `json:"description"`
	Requirements json.RawMessage `json:"requirements"`

	Price    json.RawMessage `json:"price"`
	IsFree   bool            `json:"is_free"`
	Currency string          `json:"currency"`
	ImageURL string          `json:"image_url"`

	Genres     StringList `json:"genres"`
	Developers StringList `json:"developers"`
	Publishers StringList `json:"publishers"`
}

var (
	errMissingAppID = errors.New("missing app_id")
	errMissingName  = errors.New("missing name")
)

// Normalize converts one raw record into the canonical shape. The only
// fatal conditions are a missing app_id or name; everything else
// degrades to a null or a zero value.
func Normalize(raw RawRecord) (catalog.Record, error) {
	appID := strings.TrimSpace(string(raw.AppID))
	if appID == "" {
		return catalog.Record{}, errMissingAppID
	}
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		name = strings.TrimSpace(raw.Title)
	}
	if name == "" {
		return catalog.Record{}, errMissingName
	}
	store := strings.TrimSpace(raw.Store)
	if store == "" {
		store = defaultStore
	}

	release := raw.ReleaseDate
	if release == "" {
		release = raw.Release
	}

	return catalog.Record{
		Store:               store,
		AppID:               appID,
		Name:                name,
		URL:                 raw.URL,
		ReleaseDate:         parseReleaseDate(release),
		Description:         trimToNil(raw.Description),
		StorageRequirements: extractStorage(raw.Requirements),
		Price:               parsePrice(raw.Price, raw.IsFree),
		Currency:            raw.Currency,
		ImageURL:            raw.ImageURL,
		Genres:              raw.Genres,
		Developers:          raw.Developers,
		Publishers:          raw.Publishers,
	}, nil
}

// DecodeBatch parses a staged batch (a JSON array of records), validates
// each record against the staging schema, and normalizes the survivors.
// Bad records are dropped with a reason and reported alongside the good
// ones; only a batch that is not valid JSON at all fails the call.
func DecodeBatch(data []byte) ([]catalog.Record, []catalog.DroppedRecord, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, nil, fmt.Errorf("decode batch: %w", err)
	}

	var records []catalog.Record
	var dropped []catalog.DroppedRecord
	drop := func(i int, appID, reason string) {
		dropped = append(dropped, catalog.DroppedRecord{Index: i, AppID: appID, Reason: reason})
	}

	for i, elem := range elems {
		res, err := gojsonschema.Validate(recordSchemaLoader, gojsonschema.NewBytesLoader(elem))
		if err != nil {
			drop(i, "", fmt.Sprintf("invalid record JSON: %v", err))
			continue
		}
		if !res.Valid() {
			drop(i, "", schemaFailure(res))
			continue
		}
		var raw RawRecord
		if err := json.Unmarshal(elem, &raw); err != nil {
			drop(i, "", fmt.Sprintf("decode record: %v", err))
			continue
		}
		rec, err := Normalize(raw)
		if err != nil {
			drop(i, strings.TrimSpace(string(raw.AppID)), err.Error())
			continue
		}
		records = append(records, rec)
	}
	return records, dropped, nil
}

func schemaFailure(res *gojsonschema.Result) string {
	errs := res.Errors()
	if len(errs) == 0 {
		return "schema validation failed"
	}
	return fmt.Sprintf("schema validation failed: %s", errs[0].String())
}

func parseReleaseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

// parsePrice converts a major-unit price (number or numeric string) to
// integer minor units. Free games and unparseable values come out as 0.
func parsePrice(raw json.RawMessage, isFree bool) int64 {
	if isFree || len(raw) == 0 {
		return 0
	}
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0
	}
	if s[0] == '"' {
		var unquoted string
		if err := json.Unmarshal(raw, &unquoted); err != nil {
			return 0
		}
		s = strings.TrimSpace(unquoted)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(math.Round(f * 100))
}

// extractStorage pulls the storage requirement out of the requirements
// field, which arrives either as the Steam {"minimum": "<html>"} object
// or as a bare HTML string.
func extractStorage(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	var html string
	var obj struct {
		Minimum string `json:"minimum"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Minimum != "" {
		html = obj.Minimum
	} else if err := json.Unmarshal(raw, &html); err != nil {
		return nil
	}
	m := storagePattern.FindStringSubmatch(html)
	if m == nil {
		return nil
	}
	s := strings.TrimSpace(m[1])
	if s == "" {
		return nil
	}
	return &s
}

func trimToNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
