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

package embedder

import (
	"bytes"
	"image"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"
	"testing"

	// written EXIF is verified by decoding with an independent library
	"github.com/cozy/goexif2/exif"
)

func writeTestJPEG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, image.NewRGBA(image.Rect(0, 0, 16, 16)), nil); err != nil {
		t.Fatal(err)
	}
}

func decodeExif(t *testing.T, path string) *exif.Exif {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	x, err := exif.Decode(f)
	if err != nil {
		t.Fatalf("decoding EXIF from %s: %v", path, err)
	}
	return x
}

func TestJpegEmbedTimeAndGPS(t *testing.T) {
	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "IMG_0001.jpg")
	writeTestJPEG(t, mediaPath)
	writeSidecar(t, mediaPath+".supplemental-metadata.json", sydneySidecar)

	sc, err := ParseSidecar(mediaPath + ".supplemental-metadata.json")
	if err != nil {
		t.Fatal(err)
	}
	if err := (jpegWriter{}).Embed(mediaPath, sc); err != nil {
		t.Fatalf("embedding: %v", err)
	}

	x := decodeExif(t, mediaPath)

	for _, field := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTimeDigitized, exif.DateTime} {
		tag, err := x.Get(field)
		if err != nil {
			t.Fatalf("missing %s: %v", field, err)
		}
		val, err := tag.StringVal()
		if err != nil {
			t.Fatal(err)
		}
		if want := "2023:11:14 22:13:20"; val != want {
			t.Errorf("%s: expected '%s' but got '%s'", field, want, val)
		}
	}

	lat, lon, err := x.LatLong()
	if err != nil {
		t.Fatalf("reading lat/lon back: %v", err)
	}
	const tolerance = 1.0 / secondsDenominator / 3600
	if math.Abs(lat-(-33.8688)) > tolerance {
		t.Errorf("expected latitude -33.8688 but got %v", lat)
	}
	if math.Abs(lon-151.2093) > tolerance {
		t.Errorf("expected longitude 151.2093 but got %v", lon)
	}

	latRef, err := x.Get(exif.GPSLatitudeRef)
	if err != nil {
		t.Fatal(err)
	}
	if val, _ := latRef.StringVal(); val != "S" {
		t.Errorf("expected latitude ref 'S' but got '%s'", val)
	}
	lonRef, err := x.Get(exif.GPSLongitudeRef)
	if err != nil {
		t.Fatal(err)
	}
	if val, _ := lonRef.StringVal(); val != "E" {
		t.Errorf("expected longitude ref 'E' but got '%s'", val)
	}

	comment, err := x.Get(exif.UserComment)
	if err != nil {
		t.Fatalf("missing UserComment: %v", err)
	}
	if !bytes.Contains(comment.Val, []byte(`"device":"IOS_PHONE"`)) ||
		!bytes.Contains(comment.Val, []byte(`"imageViews":"220"`)) {
		t.Errorf("provenance comment incomplete: %q", comment.Val)
	}
}

func TestJpegEmbedWithoutGeoHasNoGPSBlock(t *testing.T) {
	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "IMG_0002.jpg")
	writeTestJPEG(t, mediaPath)
	writeSidecar(t, mediaPath+".suppl.json", `{"photoTakenTime": {"timestamp": "1700000000"}}`)

	sc, err := ParseSidecar(mediaPath + ".suppl.json")
	if err != nil {
		t.Fatal(err)
	}
	if err := (jpegWriter{}).Embed(mediaPath, sc); err != nil {
		t.Fatalf("embedding: %v", err)
	}

	x := decodeExif(t, mediaPath)
	if _, err := x.Get(exif.GPSLatitude); err == nil {
		t.Error("expected no GPSLatitude tag")
	}
	if _, _, err := x.LatLong(); err == nil {
		t.Error("expected no usable lat/lon")
	}
}

func TestJpegEmbedIdempotent(t *testing.T) {
	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "IMG_0003.jpg")
	writeTestJPEG(t, mediaPath)
	writeSidecar(t, mediaPath+".json", sydneySidecar)

	sc, err := ParseSidecar(mediaPath + ".json")
	if err != nil {
		t.Fatal(err)
	}

	if err := (jpegWriter{}).Embed(mediaPath, sc); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(mediaPath)
	if err != nil {
		t.Fatal(err)
	}

	if err := (jpegWriter{}).Embed(mediaPath, sc); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(mediaPath)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first, second) {
		t.Error("expected the second embed to be byte-identical to the first")
	}
}
