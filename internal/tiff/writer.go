package tiff

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/ironsheep/tissue-mask-mcp/internal/imaging"
)

// WritePage is one page handed to Write.
type WritePage struct {
	// Plane must have a single sample per pixel.
	Plane *imaging.Plane

	// Description is stored as ImageDescription when non-empty.
	Description string

	// Resolution is pixels per inch when positive.
	Resolution float64
}

type field struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

// Write encodes pages as an uncompressed little-endian multi-page TIFF.
//
// Each page is stored as a single strip followed by its out-of-line tag
// data and its IFD.
func Write(w io.Writer, pages []WritePage) error {
	if len(pages) == 0 {
		return fmt.Errorf("no pages to write")
	}
	order := binary.LittleEndian

	var buf []byte
	buf = append(buf, 'I', 'I', 42, 0, 0, 0, 0, 0)
	linkAt := 4

	for i, wp := range pages {
		p := wp.Plane
		if p == nil || p.Samples != 1 {
			return fmt.Errorf("page %d: need a single-sample plane", i)
		}
		bytesPer := int(p.Depth) / 8

		stripOff := len(buf)
		for _, v := range p.Pix {
			switch bytesPer {
			case 1:
				buf = append(buf, byte(v))
			case 2:
				buf = order.AppendUint16(buf, uint16(v))
			default:
				buf = order.AppendUint32(buf, v)
			}
		}
		stripLen := len(buf) - stripOff

		fields := []field{
			longField(order, tagImageWidth, uint32(p.Width)),
			longField(order, tagImageLength, uint32(p.Height)),
			shortField(order, tagBitsPerSample, uint16(p.Depth)),
			shortField(order, tagCompression, CompressionNone),
			shortField(order, tagPhotometric, photometricBlackIsZero),
			longField(order, tagStripOffsets, uint32(stripOff)),
			shortField(order, tagSamplesPerPixel, 1),
			longField(order, tagRowsPerStrip, uint32(p.Height)),
			longField(order, tagStripByteCounts, uint32(stripLen)),
			shortField(order, tagSampleFormat, sampleFormatUnsigned),
		}
		if wp.Description != "" {
			data := append([]byte(wp.Description), 0)
			fields = append(fields, field{tagImageDescription, dtASCII, uint32(len(data)), data})
		}
		if wp.Resolution > 0 {
			fields = append(fields,
				rationalField(order, tagXResolution, wp.Resolution),
				rationalField(order, tagYResolution, wp.Resolution),
				shortField(order, tagResolutionUnit, 2),
			)
		}
		sort.Slice(fields, func(a, b int) bool { return fields[a].tag < fields[b].tag })

		// out-of-line values, word aligned
		valueAt := make([]int, len(fields))
		for j, f := range fields {
			if len(f.data) <= 4 {
				continue
			}
			if len(buf)%2 == 1 {
				buf = append(buf, 0)
			}
			valueAt[j] = len(buf)
			buf = append(buf, f.data...)
		}
		if len(buf)%2 == 1 {
			buf = append(buf, 0)
		}

		ifd := len(buf)
		order.PutUint32(buf[linkAt:], uint32(ifd))
		buf = order.AppendUint16(buf, uint16(len(fields)))
		for j, f := range fields {
			buf = order.AppendUint16(buf, f.tag)
			buf = order.AppendUint16(buf, f.typ)
			buf = order.AppendUint32(buf, f.count)
			if len(f.data) <= 4 {
				var inline [4]byte
				copy(inline[:], f.data)
				buf = append(buf, inline[:]...)
			} else {
				buf = order.AppendUint32(buf, uint32(valueAt[j]))
			}
		}
		linkAt = len(buf)
		buf = order.AppendUint32(buf, 0)
	}

	if len(buf) > math.MaxUint32 {
		return fmt.Errorf("tiff larger than 4 GiB")
	}
	_, err := w.Write(buf)
	return err
}

// WriteFile writes pages to path, replacing any existing file.
func WriteFile(path string, pages []WritePage) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, pages); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func shortField(order binary.AppendByteOrder, tag, v uint16) field {
	return field{tag, dtShort, 1, order.AppendUint16(nil, v)}
}

func longField(order binary.AppendByteOrder, tag uint16, v uint32) field {
	return field{tag, dtLong, 1, order.AppendUint32(nil, v)}
}

func rationalField(order binary.AppendByteOrder, tag uint16, v float64) field {
	const den = 1000
	data := order.AppendUint32(nil, uint32(math.Round(v*den)))
	data = order.AppendUint32(data, den)
	return field{tag, dtRational, 1, data}
}
