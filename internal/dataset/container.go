package dataset

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/ironsheep/tissue-mask-mcp/internal/imaging"
	"github.com/ironsheep/tissue-mask-mcp/internal/tiff"
)

// openContainer parses the page directory of a multi-page TIFF and maps
// failures onto the dataset error taxonomy.
func openContainer(path string) (*tiff.File, error) {
	f, err := tiff.Open(path)
	if err != nil {
		return nil, containerError(path, err)
	}
	return f, nil
}

// readPage decodes one page of a container. The file is re-opened for
// every call.
func readPage(path string, page int) (*imaging.Plane, error) {
	f, err := openContainer(path)
	if err != nil {
		return nil, err
	}
	p, err := f.ReadPage(page)
	if err != nil {
		return nil, fmt.Errorf("failed to load page %d: %w", page, containerError(path, err))
	}
	return p, nil
}

func containerError(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case errors.Is(err, tiff.ErrUnsupported):
		return fmt.Errorf("%w: %s: %v", ErrDependencyMissing, path, err)
	default:
		return fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
}

// pageShapeMetadata records height, width and dtype of page 0.
func pageShapeMetadata(meta *Metadata, f *tiff.File) {
	p := f.Pages[0]
	meta.Set("height", p.Height)
	meta.Set("width", p.Width)
	meta.Set("dtype", p.DType())
}

// xmlElementText returns the character data of the first element named
// local anywhere in doc. found is false when no such element exists; err
// is set when doc is not well-formed XML.
func xmlElementText(doc, local string) (text string, found bool, err error) {
	dec := xml.NewDecoder(strings.NewReader(doc))
	var (
		sb     strings.Builder
		inside int
		done   bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", false, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case done:
			case inside > 0:
				inside++
			case t.Name.Local == local:
				found = true
				inside = 1
			}
		case xml.EndElement:
			if inside > 0 {
				inside--
				done = inside == 0
			}
		case xml.CharData:
			if inside > 0 {
				sb.Write(t)
			}
		}
	}
	return strings.TrimSpace(sb.String()), found, nil
}

// omeChannelNames returns the Name attribute of every Channel element of
// an OME-XML document in document order. Channels without a name yield "".
func omeChannelNames(doc string) ([]string, error) {
	dec := xml.NewDecoder(strings.NewReader(doc))
	var names []string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return names, nil
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Channel" {
			continue
		}
		name := ""
		for _, a := range se.Attr {
			if a.Name.Local == "Name" {
				name = a.Value
				break
			}
		}
		names = append(names, name)
	}
}

// looksLikeXML reports whether s starts with an XML tag.
func looksLikeXML(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "<")
}
