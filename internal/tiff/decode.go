package tiff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zlib"
	xtiff "golang.org/x/image/tiff"

	"github.com/ironsheep/tissue-mask-mcp/internal/imaging"
)

// ReadPage decodes page i into a Plane. The file is re-opened for every
// call and closed before returning.
//
// 8 and 16-bit pages in any compression golang.org/x/image/tiff supports
// are decoded by that package. Single-sample 32-bit unsigned pages are
// decoded here when uncompressed or deflate-compressed.
func (f *File) ReadPage(i int) (*imaging.Plane, error) {
	if i < 0 || i >= len(f.Pages) {
		return nil, fmt.Errorf("page %d out of range (file has %d pages)", i, len(f.Pages))
	}
	p := f.Pages[i]

	if p.SampleFormat != sampleFormatUnsigned {
		return nil, fmt.Errorf("%w: sample format %d (%s)", ErrUnsupported, p.SampleFormat, p.DType())
	}
	if p.Compression == compressionJPEG || p.Compression == compressionJPEGOld {
		return nil, fmt.Errorf("%w: JPEG compression", ErrUnsupported)
	}

	file, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if p.BitsPerSample == 32 {
		return f.decode32(file, p)
	}

	img, err := xtiff.Decode(newPageReader(file, f.ByteOrder, p.Offset))
	if err != nil {
		var unsupported xtiff.UnsupportedError
		if errors.As(err, &unsupported) {
			return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return imaging.PlaneFromImage(img), nil
}

// decode32 reads a stripped single-sample 32-bit page.
func (f *File) decode32(r io.ReaderAt, p Page) (*imaging.Plane, error) {
	if p.SamplesPerPixel != 1 || p.Tiled {
		return nil, fmt.Errorf("%w: 32-bit page with %d samples (tiled=%v)", ErrUnsupported, p.SamplesPerPixel, p.Tiled)
	}
	if p.Predictor != 1 {
		return nil, fmt.Errorf("%w: predictor %d on 32-bit page", ErrUnsupported, p.Predictor)
	}
	if len(p.StripOffsets) == 0 || len(p.StripOffsets) != len(p.StripByteCounts) {
		return nil, fmt.Errorf("%w: inconsistent strip tables", ErrFormat)
	}

	plane := imaging.NewPlane(p.Width, p.Height, imaging.Depth32, 1)
	rowBytes := p.Width * 4
	y := 0
	for s, off := range p.StripOffsets {
		raw := make([]byte, p.StripByteCounts[s])
		if _, err := r.ReadAt(raw, off); err != nil {
			return nil, fmt.Errorf("%w: strip %d: %v", ErrFormat, s, err)
		}

		switch p.Compression {
		case CompressionNone:
		case CompressionDeflate, CompressionDeflateOld:
			zr, err := zlib.NewReader(bytes.NewReader(raw))
			if err != nil {
				return nil, fmt.Errorf("%w: strip %d: %v", ErrFormat, s, err)
			}
			raw, err = io.ReadAll(zr)
			zr.Close()
			if err != nil {
				return nil, fmt.Errorf("%w: strip %d: %v", ErrFormat, s, err)
			}
		default:
			return nil, fmt.Errorf("%w: compression %d on 32-bit page", ErrUnsupported, p.Compression)
		}

		rows := min(p.RowsPerStrip, p.Height-y)
		if len(raw) < rows*rowBytes {
			return nil, fmt.Errorf("%w: strip %d holds %d bytes, want %d", ErrFormat, s, len(raw), rows*rowBytes)
		}
		for row := 0; row < rows; row++ {
			line := raw[row*rowBytes:]
			for x := 0; x < p.Width; x++ {
				plane.Pix[(y+row)*p.Width+x] = f.ByteOrder.Uint32(line[x*4:])
			}
		}
		y += rows
		if y >= p.Height {
			break
		}
	}
	if y < p.Height {
		return nil, fmt.Errorf("%w: strips cover %d of %d rows", ErrFormat, y, p.Height)
	}
	return plane, nil
}

// pageReader presents a TIFF file whose header points at a chosen IFD, so a
// single-image decoder can read any page of a multi-page container.
type pageReader struct {
	r      io.ReaderAt
	header [8]byte
	pos    int64
}

func newPageReader(r io.ReaderAt, order binary.ByteOrder, ifd int64) *pageReader {
	pr := &pageReader{r: r}
	if order == binary.LittleEndian {
		copy(pr.header[:], "II")
	} else {
		copy(pr.header[:], "MM")
	}
	order.PutUint16(pr.header[2:4], 42)
	order.PutUint32(pr.header[4:8], uint32(ifd))
	return pr
}

func (pr *pageReader) ReadAt(p []byte, off int64) (int, error) {
	n := 0
	for off+int64(n) < int64(len(pr.header)) && n < len(p) {
		p[n] = pr.header[off+int64(n)]
		n++
	}
	if n == len(p) {
		return n, nil
	}
	m, err := pr.r.ReadAt(p[n:], off+int64(n))
	return n + m, err
}

func (pr *pageReader) Read(p []byte) (int, error) {
	n, err := pr.ReadAt(p, pr.pos)
	pr.pos += int64(n)
	return n, err
}
