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
	"path/filepath"
	"strings"

	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"
	pngstructure "github.com/dsoprea/go-png-image-structure/v2"
	riimage "github.com/dsoprea/go-utility/v2/image"
)

// Family is the container family of a media file, which determines the
// metadata embedding mechanism that applies to it. Adding support for a
// new structured-metadata-capable format means adding a family and a
// writer, not modifying the existing ones.
type Family int

const (
	// FamilyUnsupported is recognized media with no embeddable
	// metadata container (GIF, as exported by Takeout).
	FamilyUnsupported Family = iota

	// FamilyJPEG media carry EXIF in an APP1 segment.
	FamilyJPEG

	// FamilyPNG media carry only free-form text chunks.
	FamilyPNG
)

// mediaExtensions maps the media file extensions Takeout photo exports
// contain to their container family.
var mediaExtensions = map[string]Family{
	".jpg":  FamilyJPEG,
	".jpeg": FamilyJPEG,
	".png":  FamilyPNG,
	".gif":  FamilyUnsupported,
}

// classifyMedia reports whether the named file is a media file this tool
// should process, and if so, its container family. Extension matching is
// case-insensitive. AppleDouble artifacts ("._" prefix), which macOS
// leaves next to real files on foreign filesystems, are excluded from
// discovery entirely.
func classifyMedia(name string) (Family, bool) {
	base := filepath.Base(name)
	if strings.HasPrefix(base, "._") {
		return FamilyUnsupported, false
	}
	family, ok := mediaExtensions[strings.ToLower(filepath.Ext(base))]
	return family, ok
}

// containerParser is the common parse interface of the lossless
// container-structure libraries.
type containerParser interface {
	ParseFile(filepath string) (riimage.MediaContext, error)
}

// parserForFamily returns the container-structure parser that reads a
// file of the given family fully, preserving every segment or chunk so
// the file can be written back with only the metadata block changed.
func parserForFamily(family Family) containerParser {
	switch family {
	case FamilyJPEG:
		return jpegstructure.NewJpegMediaParser()
	case FamilyPNG:
		return pngstructure.NewPngMediaParser()
	case FamilyUnsupported:
	}
	return nil
}

// A metadataWriter embeds sidecar metadata into a media file, mutating
// the file's metadata container in place and leaving pixel data intact.
type metadataWriter interface {
	Embed(path string, sc *Sidecar) error
}

// writers holds the embedding variant for each supported container
// family. Families with no entry are discovered but not embeddable.
var writers = map[Family]metadataWriter{
	FamilyJPEG: jpegWriter{},
	FamilyPNG:  pngWriter{},
}
