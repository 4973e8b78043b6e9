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
	"fmt"
	"os"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	exifundefined "github.com/dsoprea/go-exif/v3/undefined"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"
	"go.uber.org/zap"
)

// jpegWriter embeds sidecar metadata into a JPEG file's EXIF block:
// capture time into the date/time tags, coordinates into the GPS IFD,
// and the provenance comment into UserComment. All other segments of
// the file, including pixel data, are carried through unchanged.
type jpegWriter struct{}

func (jpegWriter) Embed(path string, sc *Sidecar) error {
	mc, err := parserForFamily(FamilyJPEG).ParseFile(path)
	if err != nil {
		return fmt.Errorf("parsing JPEG container: %w", err)
	}
	sl := mc.(*jpegstructure.SegmentList)

	rootIb, err := exifBuilder(sl)
	if err != nil {
		return fmt.Errorf("preparing EXIF builder: %w", err)
	}

	if ts, ok := sc.CaptureTime(); ok {
		stamp := ts.Format(ExifTimeLayout)

		ifd0Ib, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD0")
		if err != nil {
			return fmt.Errorf("opening root IFD: %w", err)
		}
		if err := ifd0Ib.SetStandardWithName("DateTime", stamp); err != nil {
			return fmt.Errorf("setting DateTime: %w", err)
		}

		exifIb, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD/Exif")
		if err != nil {
			return fmt.Errorf("opening Exif IFD: %w", err)
		}
		if err := exifIb.SetStandardWithName("DateTimeOriginal", stamp); err != nil {
			return fmt.Errorf("setting DateTimeOriginal: %w", err)
		}
		if err := exifIb.SetStandardWithName("DateTimeDigitized", stamp); err != nil {
			return fmt.Errorf("setting DateTimeDigitized: %w", err)
		}
	}

	if fix, ok := sc.GeoFix(); ok {
		if err := setGPSBlock(rootIb, fix); err != nil {
			return fmt.Errorf("setting GPS block: %w", err)
		}
	}

	// a bad provenance comment is not worth failing the whole embed over
	if err := setUserComment(rootIb, sc); err != nil {
		Log.Warn("could not set provenance comment",
			zap.String("filepath", path),
			zap.Error(err))
	}

	if err := sl.SetExif(rootIb); err != nil {
		return fmt.Errorf("rebuilding EXIF segment: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("opening file for writing: %w", err)
	}
	defer f.Close()

	if err := sl.Write(f); err != nil {
		return fmt.Errorf("writing JPEG: %w", err)
	}

	return nil
}

// exifBuilder returns an IFD builder seeded from the file's existing
// EXIF data, or a fresh one for files that have no EXIF segment yet.
func exifBuilder(sl *jpegstructure.SegmentList) (*exif.IfdBuilder, error) {
	rootIb, err := sl.ConstructExifBuilder()
	if err == nil {
		return rootIb, nil
	}

	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, fmt.Errorf("creating IFD mapping: %w", err)
	}
	ti := exif.NewTagIndex()
	if err := exif.LoadStandardTags(ti); err != nil {
		return nil, fmt.Errorf("loading standard tags: %w", err)
	}

	return exif.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder), nil
}

// setGPSBlock writes the GPS IFD from a derived fix. Altitude rides
// along only when a latitude+longitude pair is present; it never
// creates a GPS block by itself.
func setGPSBlock(rootIb *exif.IfdBuilder, fix GeoFix) error {
	gpsIb, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD/GPSInfo")
	if err != nil {
		return fmt.Errorf("opening GPSInfo IFD: %w", err)
	}

	if err := gpsIb.SetStandardWithName("GPSLatitudeRef", latitudeRef(fix.Latitude)); err != nil {
		return fmt.Errorf("setting GPSLatitudeRef: %w", err)
	}
	if err := gpsIb.SetStandardWithName("GPSLatitude", dmsRationals(fix.Latitude)); err != nil {
		return fmt.Errorf("setting GPSLatitude: %w", err)
	}
	if err := gpsIb.SetStandardWithName("GPSLongitudeRef", longitudeRef(fix.Longitude)); err != nil {
		return fmt.Errorf("setting GPSLongitudeRef: %w", err)
	}
	if err := gpsIb.SetStandardWithName("GPSLongitude", dmsRationals(fix.Longitude)); err != nil {
		return fmt.Errorf("setting GPSLongitude: %w", err)
	}

	if fix.HasAltitude {
		num, den, ref := toAltitudeRational(fix.Altitude)
		alt := []exifcommon.Rational{{Numerator: uint32(num), Denominator: uint32(den)}}
		if err := gpsIb.SetStandardWithName("GPSAltitude", alt); err != nil {
			return fmt.Errorf("setting GPSAltitude: %w", err)
		}
		if err := gpsIb.SetStandardWithName("GPSAltitudeRef", []byte{ref}); err != nil {
			return fmt.Errorf("setting GPSAltitudeRef: %w", err)
		}
	}

	return nil
}

func setUserComment(rootIb *exif.IfdBuilder, sc *Sidecar) error {
	comment, err := sc.provenanceComment("")
	if err != nil {
		return fmt.Errorf("serializing provenance: %w", err)
	}

	exifIb, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD/Exif")
	if err != nil {
		return fmt.Errorf("opening Exif IFD: %w", err)
	}

	uc := exifundefined.Tag9286UserComment{
		EncodingType:  exifundefined.TagUndefinedType_9286_UserComment_Encoding_ASCII,
		EncodingBytes: comment,
	}
	if err := exifIb.SetStandardWithName("UserComment", uc); err != nil {
		return fmt.Errorf("setting UserComment: %w", err)
	}

	return nil
}

// dmsRationals encodes a decimal-degree value as the three EXIF GPS
// rationals (degrees, minutes, fixed-point seconds).
func dmsRationals(decimalDegrees float64) []exifcommon.Rational {
	degrees, minutes, secNum, secDen := toDMS(decimalDegrees)
	return []exifcommon.Rational{
		{Numerator: uint32(degrees), Denominator: 1},
		{Numerator: uint32(minutes), Denominator: 1},
		{Numerator: uint32(secNum), Denominator: uint32(secDen)},
	}
}
