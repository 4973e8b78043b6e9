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

import "math"

// EXIF GPS fields store angles as rationals. Whole degrees and minutes
// always have denominator 1; seconds use a fixed-point denominator of
// 10000, giving 1/10000-second angular resolution.
const secondsDenominator = 10000

// toDMS converts a decimal-degree value to the degrees/minutes/seconds
// rational representation used by EXIF GPS fields. The sign is dropped;
// hemisphere is carried separately by the reference tags.
func toDMS(decimalDegrees float64) (degrees, minutes, secNum, secDen int64) {
	absVal := math.Abs(decimalDegrees)
	degrees = int64(math.Floor(absVal))
	minutesFloat := (absVal - float64(degrees)) * 60
	minutes = int64(math.Floor(minutesFloat))
	secNum = int64(math.Round((minutesFloat - float64(minutes)) * 60 * secondsDenominator))
	return degrees, minutes, secNum, secondsDenominator
}

func latitudeRef(lat float64) string {
	if lat >= 0 {
		return "N"
	}
	return "S"
}

func longitudeRef(lon float64) string {
	if lon >= 0 {
		return "E"
	}
	return "W"
}

// toAltitudeRational encodes an altitude in meters as a centimeter-
// precision rational plus the EXIF altitude reference flag (0 above sea
// level, 1 below).
func toAltitudeRational(altitude float64) (num, den int64, ref byte) {
	num = int64(math.Round(math.Abs(altitude) * 100))
	if altitude < 0 {
		ref = 1
	}
	return num, 100, ref
}
