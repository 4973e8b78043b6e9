/*
	Takeoutembed
	Copyright (c) 2025 The Takeoutembed Authors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package embedder reconciles media files exported by Google Takeout with
// their JSON metadata sidecar files, folding selected sidecar fields back
// into each media file's own embedded metadata.
package embedder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ExifTimeLayout is the fixed-width timestamp format used by EXIF
// date/time fields.
const ExifTimeLayout = "2006:01:02 15:04:05"

// sidecarSuffixes are the naming conventions Takeout exports have used for
// metadata sidecar files, in resolution priority order. Each is appended to
// the full media file path (not just the basename): a photo IMG_1.jpg has
// its sidecar at IMG_1.jpg.supplemental-metadata.json, etc. Newer exports
// truncate the suffix, and very old ones used plain ".json".
var sidecarSuffixes = []string{
	".supplemental-metadata.json",
	".suppl.json",
	".json",
}

// ResolveSidecar returns the path of the metadata sidecar file associated
// with the media file at mediaPath, trying each known naming convention in
// priority order and returning the first that exists on disk. A media file
// with no sidecar is normal, not an error; it reports false.
func ResolveSidecar(mediaPath string) (string, bool) {
	for _, suffix := range sidecarSuffixes {
		candidate := mediaPath + suffix
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

// ParseSidecar reads and decodes the sidecar file at the given path.
// An unreadable file or malformed JSON is an error; a sidecar with
// missing fields is not (each absent field simply degrades to an
// absent value downstream).
func ParseSidecar(path string) (*Sidecar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening sidecar file: %w", err)
	}
	defer f.Close()

	var sc Sidecar
	if err := json.NewDecoder(f).Decode(&sc); err != nil {
		return nil, fmt.Errorf("decoding sidecar file %s: %w", path, err)
	}

	return &sc, nil
}

// Sidecar is the metadata record Takeout exports alongside each media
// file. Every field is optional; unrecognized keys are ignored.
type Sidecar struct {
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	ImageViews     flexString     `json:"imageViews"`
	CreationTime   timestampField `json:"creationTime"`
	PhotoTakenTime timestampField `json:"photoTakenTime"`
	GeoData        geoData        `json:"geoData"`
	GeoDataExif    geoData        `json:"geoDataExif"`
	People         []struct {
		Name string `json:"name"`
	} `json:"people"`
	URL                string `json:"url"`
	GooglePhotosOrigin struct {
		MobileUpload struct {
			DeviceFolder struct {
				LocalFolderName string `json:"localFolderName"`
			} `json:"deviceFolder"`
			DeviceType string `json:"deviceType"`
		} `json:"mobileUpload"`
	} `json:"googlePhotosOrigin"`
}

type timestampField struct {
	Timestamp epochSeconds `json:"timestamp"`
	Formatted string       `json:"formatted"`
}

type geoData struct {
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Altitude      float64 `json:"altitude"`
	LatitudeSpan  float64 `json:"latitudeSpan"`
	LongitudeSpan float64 `json:"longitudeSpan"`
}

// CaptureTime returns the instant the photo was taken, in UTC, derived
// from photoTakenTime.timestamp. It reports false when the sidecar has
// no usable capture timestamp; that is a degraded state, not an error.
func (sc *Sidecar) CaptureTime() (time.Time, bool) {
	if !sc.PhotoTakenTime.Timestamp.present {
		return time.Time{}, false
	}
	return time.Unix(sc.PhotoTakenTime.Timestamp.secs, 0).UTC(), true
}

// GeoFix is a usable GPS fix derived from a sidecar. Latitude and
// longitude come as a pair; altitude is optional and never produces a
// fix by itself.
type GeoFix struct {
	Latitude    float64
	Longitude   float64
	Altitude    float64
	HasAltitude bool
}

// GeoFix derives a GPS fix, preferring geoDataExif over geoData. Takeout
// writes explicit zero coordinates when a photo has no location, so a
// (0, 0) pair is treated as absent, the same way other Takeout consumers
// read these records.
func (sc *Sidecar) GeoFix() (GeoFix, bool) {
	for _, g := range []geoData{sc.GeoDataExif, sc.GeoData} {
		if g.Latitude == 0 && g.Longitude == 0 {
			continue
		}
		fix := GeoFix{Latitude: g.Latitude, Longitude: g.Longitude}
		if g.Altitude != 0 {
			fix.Altitude = g.Altitude
			fix.HasAltitude = true
		}
		return fix, true
	}
	return GeoFix{}, false
}

// provenance is the compact record written into a free-form comment field
// of the media file, capturing where the export says the item came from.
// Fields absent in the sidecar are omitted from the serialized form.
type provenance struct {
	DateTimeOriginal string `json:"dateTimeOriginal,omitempty"`
	Device           string `json:"device,omitempty"`
	URL              string `json:"url,omitempty"`
	ImageViews       string `json:"imageViews,omitempty"`
}

// provenanceComment serializes the provenance record as JSON text.
// captureTime may be empty for container formats that carry the capture
// time in structured fields instead.
func (sc *Sidecar) provenanceComment(captureTime string) ([]byte, error) {
	return json.Marshal(provenance{
		DateTimeOriginal: captureTime,
		Device:           sc.GooglePhotosOrigin.MobileUpload.DeviceType,
		URL:              sc.URL,
		ImageViews:       string(sc.ImageViews),
	})
}

// epochSeconds is a Unix timestamp that Takeout serializes sometimes as a
// JSON string and sometimes as a number. A value that is present but not
// integer-parseable is treated as absent rather than failing the whole
// record, since the rest of the sidecar may still be usable.
type epochSeconds struct {
	secs    int64
	present bool
}

func (e *epochSeconds) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	if s == "" || s == "null" {
		return nil
	}
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	e.secs = secs
	e.present = true
	return nil
}

// flexString is a string field that Takeout sometimes serializes as a
// JSON number (imageViews, notably).
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case string:
		*s = flexString(t)
	case float64:
		*s = flexString(strconv.FormatInt(int64(t), 10))
	}
	return nil
}
