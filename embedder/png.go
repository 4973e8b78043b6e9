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
	"fmt"
	"hash/crc32"
	"os"
	"time"

	pngstructure "github.com/dsoprea/go-png-image-structure/v2"
)

// pngTextKeyword is the tEXt chunk keyword the provenance comment is
// stored under. PNG has no structured GPS or date/time metadata block,
// so the capture time travels inside the comment and GPS data is not
// embedded for this family.
const pngTextKeyword = "UserComment"

// pngWriter embeds sidecar metadata into a PNG file as a single tEXt
// chunk, leaving every other chunk byte-identical.
type pngWriter struct{}

func (pngWriter) Embed(path string, sc *Sidecar) error {
	mc, err := parserForFamily(FamilyPNG).ParseFile(path)
	if err != nil {
		return fmt.Errorf("parsing PNG container: %w", err)
	}
	cs := mc.(*pngstructure.ChunkSlice)

	var captureTime string
	if ts, ok := sc.CaptureTime(); ok {
		captureTime = ts.Format(time.RFC3339)
	}
	comment, err := sc.provenanceComment(captureTime)
	if err != nil {
		return fmt.Errorf("serializing provenance: %w", err)
	}

	updated, err := upsertTextChunk(cs.Chunks(), pngTextKeyword, comment)
	if err != nil {
		return fmt.Errorf("updating %s chunk: %w", pngTextKeyword, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("opening file for writing: %w", err)
	}
	defer f.Close()

	if err := pngstructure.NewChunkSlice(updated).WriteTo(f); err != nil {
		return fmt.Errorf("writing PNG: %w", err)
	}

	return nil
}

// upsertTextChunk replaces the tEXt chunk with the given keyword, or
// inserts a new one before the first IDAT chunk if none exists yet.
// Replacing in place keeps repeated embeds byte-identical.
func upsertTextChunk(chunks []*pngstructure.Chunk, keyword string, text []byte) ([]*pngstructure.Chunk, error) {
	chunk := newTextChunk(keyword, text)

	prefix := append([]byte(keyword), 0)
	for i, c := range chunks {
		if c.Type == "tEXt" && bytes.HasPrefix(c.Data, prefix) {
			out := make([]*pngstructure.Chunk, len(chunks))
			copy(out, chunks)
			out[i] = chunk
			return out, nil
		}
	}

	for i, c := range chunks {
		if c.Type == "IDAT" {
			out := make([]*pngstructure.Chunk, 0, len(chunks)+1)
			out = append(out, chunks[:i]...)
			out = append(out, chunk)
			return append(out, chunks[i:]...), nil
		}
	}

	return nil, fmt.Errorf("no IDAT chunk found")
}

func newTextChunk(keyword string, text []byte) *pngstructure.Chunk {
	data := append([]byte(keyword), 0)
	data = append(data, text...)

	// PNG chunk CRCs cover the type bytes and the data
	crc := crc32.NewIEEE()
	crc.Write([]byte("tEXt"))
	crc.Write(data)

	return &pngstructure.Chunk{
		Type:   "tEXt",
		Data:   data,
		Length: uint32(len(data)),
		Crc:    crc.Sum32(),
	}
}
