package tiff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrFormat is returned when a file is not a readable TIFF container.
	ErrFormat = errors.New("malformed tiff")

	// ErrUnsupported is returned for valid TIFF features this package cannot
	// decode (BigTIFF, floating point samples, unknown compressions).
	ErrUnsupported = errors.New("unsupported tiff feature")
)

// Tag numbers used by this package.
const (
	tagImageWidth       = 256
	tagImageLength      = 257
	tagBitsPerSample    = 258
	tagCompression      = 259
	tagPhotometric      = 262
	tagImageDescription = 270
	tagStripOffsets     = 273
	tagSamplesPerPixel  = 277
	tagRowsPerStrip     = 278
	tagStripByteCounts  = 279
	tagXResolution      = 282
	tagYResolution      = 283
	tagPlanarConfig     = 284
	tagResolutionUnit   = 296
	tagPredictor        = 317
	tagTileWidth        = 322
	tagSampleFormat     = 339
)

// Compression schemes.
const (
	CompressionNone        = 1
	CompressionLZW         = 5
	CompressionDeflate     = 8
	CompressionPackBits    = 32773
	CompressionDeflateOld  = 32946
	compressionJPEGOld     = 6
	compressionJPEG        = 7
	maxPages               = 100000
	sampleFormatUnsigned   = 1
	photometricBlackIsZero = 1
)

// Field types and their sizes in bytes.
const (
	dtByte      = 1
	dtASCII     = 2
	dtShort     = 3
	dtLong      = 4
	dtRational  = 5
	dtSByte     = 6
	dtUndefined = 7
	dtSShort    = 8
	dtSLong     = 9
	dtSRational = 10
	dtFloat     = 11
	dtDouble    = 12
)

var typeSize = map[uint16]int{
	dtByte: 1, dtASCII: 1, dtShort: 2, dtLong: 4, dtRational: 8,
	dtSByte: 1, dtUndefined: 1, dtSShort: 2, dtSLong: 4, dtSRational: 8,
	dtFloat: 4, dtDouble: 8,
}

// Page describes one image file directory (IFD) of a TIFF container.
type Page struct {
	Index           int
	Offset          int64
	Width           int
	Height          int
	BitsPerSample   int
	SamplesPerPixel int
	SampleFormat    int
	Compression     int
	Photometric     int
	Predictor       int
	Tiled           bool
	Description     string

	// XResolution and YResolution are pixels per ResolutionUnit, 0 when
	// the tag is absent.
	XResolution    float64
	YResolution    float64
	ResolutionUnit int

	RowsPerStrip    int
	StripOffsets    []int64
	StripByteCounts []int64
}

// File is the parsed directory structure of a TIFF container. No file
// handle is kept open.
type File struct {
	Path      string
	ByteOrder binary.ByteOrder
	Pages     []Page
}

// Open reads the header and every IFD of the TIFF file at path.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	order, first, err := readHeader(f)
	if err != nil {
		return nil, err
	}

	tf := &File{Path: path, ByteOrder: order}
	seen := make(map[int64]bool)
	for off := first; off != 0; {
		if seen[off] {
			return nil, fmt.Errorf("%w: IFD loop at offset %d", ErrFormat, off)
		}
		if len(tf.Pages) >= maxPages {
			return nil, fmt.Errorf("%w: more than %d pages", ErrFormat, maxPages)
		}
		seen[off] = true

		page, next, err := readIFD(f, order, off)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", len(tf.Pages), err)
		}
		page.Index = len(tf.Pages)
		tf.Pages = append(tf.Pages, page)
		off = next
	}
	if len(tf.Pages) == 0 {
		return nil, fmt.Errorf("%w: no pages", ErrFormat)
	}
	return tf, nil
}

func readHeader(r io.ReaderAt) (binary.ByteOrder, int64, error) {
	var hdr [8]byte
	if _, err := r.ReadAt(hdr[:], 0); err != nil {
		return nil, 0, fmt.Errorf("%w: short header", ErrFormat)
	}

	var order binary.ByteOrder
	switch string(hdr[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, 0, fmt.Errorf("%w: bad byte order mark", ErrFormat)
	}

	switch order.Uint16(hdr[2:4]) {
	case 42:
	case 43:
		return nil, 0, fmt.Errorf("%w: BigTIFF", ErrUnsupported)
	default:
		return nil, 0, fmt.Errorf("%w: bad magic number", ErrFormat)
	}
	return order, int64(order.Uint32(hdr[4:8])), nil
}

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

func readIFD(r io.ReaderAt, order binary.ByteOrder, off int64) (Page, int64, error) {
	var n [2]byte
	if _, err := r.ReadAt(n[:], off); err != nil {
		return Page{}, 0, fmt.Errorf("%w: IFD at %d: %v", ErrFormat, off, err)
	}
	count := int(order.Uint16(n[:]))
	buf := make([]byte, count*12+4)
	if _, err := r.ReadAt(buf, off+2); err != nil {
		return Page{}, 0, fmt.Errorf("%w: IFD at %d truncated", ErrFormat, off)
	}

	entries := make(map[uint16]entry, count)
	for i := 0; i < count; i++ {
		raw := buf[i*12 : i*12+12]
		e := entry{
			tag:   order.Uint16(raw[0:2]),
			typ:   order.Uint16(raw[2:4]),
			count: order.Uint32(raw[4:8]),
		}
		size, ok := typeSize[e.typ]
		if !ok {
			continue
		}
		total := int64(size) * int64(e.count)
		if total <= 4 {
			e.data = raw[8 : 8+total]
		} else {
			if total > 1<<28 {
				return Page{}, 0, fmt.Errorf("%w: tag %d too large", ErrFormat, e.tag)
			}
			e.data = make([]byte, total)
			if _, err := r.ReadAt(e.data, int64(order.Uint32(raw[8:12]))); err != nil {
				return Page{}, 0, fmt.Errorf("%w: tag %d data out of range", ErrFormat, e.tag)
			}
		}
		entries[e.tag] = e
	}
	next := int64(order.Uint32(buf[count*12:]))

	p := Page{
		Offset:          off,
		Width:           int(firstInt(entries, order, tagImageWidth, 0)),
		Height:          int(firstInt(entries, order, tagImageLength, 0)),
		BitsPerSample:   int(firstInt(entries, order, tagBitsPerSample, 1)),
		SamplesPerPixel: int(firstInt(entries, order, tagSamplesPerPixel, 1)),
		SampleFormat:    int(firstInt(entries, order, tagSampleFormat, sampleFormatUnsigned)),
		Compression:     int(firstInt(entries, order, tagCompression, CompressionNone)),
		Photometric:     int(firstInt(entries, order, tagPhotometric, photometricBlackIsZero)),
		Predictor:       int(firstInt(entries, order, tagPredictor, 1)),
		ResolutionUnit:  int(firstInt(entries, order, tagResolutionUnit, 2)),
		XResolution:     rational(entries, order, tagXResolution),
		YResolution:     rational(entries, order, tagYResolution),
		StripOffsets:    ints(entries, order, tagStripOffsets),
		StripByteCounts: ints(entries, order, tagStripByteCounts),
		Description:     ascii(entries, tagImageDescription),
	}
	_, p.Tiled = entries[tagTileWidth]
	p.RowsPerStrip = int(firstInt(entries, order, tagRowsPerStrip, int64(p.Height)))
	if p.RowsPerStrip <= 0 || p.RowsPerStrip > p.Height {
		p.RowsPerStrip = p.Height
	}
	if p.Width <= 0 || p.Height <= 0 {
		return Page{}, 0, fmt.Errorf("%w: missing image dimensions", ErrFormat)
	}
	return p, next, nil
}

func ints(entries map[uint16]entry, order binary.ByteOrder, tag uint16) []int64 {
	e, ok := entries[tag]
	if !ok {
		return nil
	}
	out := make([]int64, 0, e.count)
	for i := 0; i < int(e.count); i++ {
		switch e.typ {
		case dtByte, dtUndefined:
			out = append(out, int64(e.data[i]))
		case dtShort:
			out = append(out, int64(order.Uint16(e.data[i*2:])))
		case dtLong:
			out = append(out, int64(order.Uint32(e.data[i*4:])))
		default:
			return out
		}
	}
	return out
}

func firstInt(entries map[uint16]entry, order binary.ByteOrder, tag uint16, def int64) int64 {
	if v := ints(entries, order, tag); len(v) > 0 {
		return v[0]
	}
	return def
}

func rational(entries map[uint16]entry, order binary.ByteOrder, tag uint16) float64 {
	e, ok := entries[tag]
	if !ok || e.count == 0 {
		return 0
	}
	switch e.typ {
	case dtRational:
		num, den := order.Uint32(e.data[0:4]), order.Uint32(e.data[4:8])
		if den == 0 {
			return 0
		}
		return float64(num) / float64(den)
	case dtFloat:
		return float64(math.Float32frombits(order.Uint32(e.data)))
	case dtDouble:
		return math.Float64frombits(order.Uint64(e.data))
	case dtShort, dtLong:
		return float64(firstInt(entries, order, tag, 0))
	}
	return 0
}

// ascii returns an ASCII tag with trailing NULs removed. Text that is not
// valid UTF-8 is decoded as Latin-1.
func ascii(entries map[uint16]entry, tag uint16) string {
	e, ok := entries[tag]
	if !ok {
		return ""
	}
	raw := strings.TrimRight(string(e.data), "\x00")
	if utf8.ValidString(raw) {
		return raw
	}
	s, err := charmap.ISO8859_1.NewDecoder().String(raw)
	if err != nil {
		return strings.ToValidUTF8(raw, "�")
	}
	return s
}

// DType returns the numpy-style sample type of a page, e.g. "uint16".
func (p Page) DType() string {
	switch p.SampleFormat {
	case 2:
		return fmt.Sprintf("int%d", p.BitsPerSample)
	case 3:
		return fmt.Sprintf("float%d", p.BitsPerSample)
	}
	return fmt.Sprintf("uint%d", p.BitsPerSample)
}

// MicronsPerPixel converts the page resolution tags to micrometers per
// pixel as 25400 / resolution, preferring YResolution. It returns 0 when
// no usable tag is present.
func (p Page) MicronsPerPixel() float64 {
	res := p.XResolution
	if p.YResolution > 0 {
		res = p.YResolution
	}
	if res <= 0 || math.IsInf(res, 0) || math.IsNaN(res) {
		return 0
	}
	return 25400.0 / res
}
