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
	"math"
	"testing"
)

func TestToDMSRoundTrip(t *testing.T) {
	// reconstructing the decimal value from the rationals must land
	// within the encoding's 1/10000-second angular resolution
	const tolerance = 1.0 / secondsDenominator / 3600

	for _, input := range []float64{
		0, 0.0001, 1, -1, 33.8688, -33.8688, 151.2093, -151.2093,
		90, -90, 45.123456789, -0.5, 179.9999, 180, -180,
	} {
		degrees, minutes, secNum, secDen := toDMS(input)
		reconstructed := float64(degrees) + float64(minutes)/60 + (float64(secNum)/float64(secDen))/3600
		if diff := math.Abs(reconstructed - math.Abs(input)); diff > tolerance {
			t.Errorf("%v: reconstructed %v differs from |input| by %v (tolerance %v)",
				input, reconstructed, diff, tolerance)
		}
	}
}

func TestToDMSExact(t *testing.T) {
	for i, test := range []struct {
		input                            float64
		degrees, minutes, secNum, secDen int64
	}{
		{0, 0, 0, 0, 10000},
		{-33.8688, 33, 52, 76800, 10000},
		{151.2093, 151, 12, 334800, 10000},
		{90, 90, 0, 0, 10000},
	} {
		degrees, minutes, secNum, secDen := toDMS(test.input)
		if degrees != test.degrees || minutes != test.minutes || secNum != test.secNum || secDen != test.secDen {
			t.Errorf("Test %d (%v): expected (%d, %d, %d/%d) but got (%d, %d, %d/%d)",
				i, test.input,
				test.degrees, test.minutes, test.secNum, test.secDen,
				degrees, minutes, secNum, secDen)
		}
	}
}

func TestHemisphereRefs(t *testing.T) {
	for i, test := range []struct {
		lat, lon         float64
		latRef, lonRef   string
	}{
		{0, 0, "N", "E"},
		{-33.8688, 151.2093, "S", "E"},
		{40.7128, -74.0060, "N", "W"},
		{-13.5319, -71.9675, "S", "W"},
	} {
		if ref := latitudeRef(test.lat); ref != test.latRef {
			t.Errorf("Test %d: latitude %v: expected ref %q but got %q", i, test.lat, test.latRef, ref)
		}
		if ref := longitudeRef(test.lon); ref != test.lonRef {
			t.Errorf("Test %d: longitude %v: expected ref %q but got %q", i, test.lon, test.lonRef, ref)
		}
	}
}

func TestToAltitudeRational(t *testing.T) {
	for i, test := range []struct {
		input    float64
		num, den int64
		ref      byte
	}{
		{0, 0, 100, 0},
		{15.25, 1525, 100, 0},
		{58, 5800, 100, 0},
		{-3.5, 350, 100, 1},
	} {
		num, den, ref := toAltitudeRational(test.input)
		if num != test.num || den != test.den || ref != test.ref {
			t.Errorf("Test %d (%v): expected (%d/%d, ref %d) but got (%d/%d, ref %d)",
				i, test.input, test.num, test.den, test.ref, num, den, ref)
		}
	}
}
