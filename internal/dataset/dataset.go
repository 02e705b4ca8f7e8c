package dataset

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ironsheep/tissue-mask-mcp/internal/config"
	"github.com/ironsheep/tissue-mask-mcp/internal/imaging"
	"github.com/ironsheep/tissue-mask-mcp/internal/mask"
	"github.com/ironsheep/tissue-mask-mcp/internal/tables"
)

// Modality tags one of the supported on-disk layouts.
type Modality string

// Supported modalities.
const (
	Visium      Modality = "visium"
	Xenium      Modality = "xenium"
	PhenoCycler Modality = "phenocycler"
	OMETiff     Modality = "ometiff"
)

// Modalities lists the supported modalities in a fixed order.
var Modalities = []Modality{Visium, Xenium, PhenoCycler, OMETiff}

// ParseModality validates a modality tag, ignoring case and surrounding
// space.
func ParseModality(s string) (Modality, error) {
	tag := Modality(strings.ToLower(strings.TrimSpace(s)))
	for _, m := range Modalities {
		if tag == m {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown modality %q", ErrUnsupportedFormat, s)
}

// DefaultChannel is the channel LoadImage callers use when they have no
// preference.
const DefaultChannel = 0

// Metadata is an insertion-ordered key/value map. Datasets hand out
// copies, so callers may modify what they receive.
type Metadata = tables.Record

// Dataset is the uniform view over every supported format.
//
// Implementations are not safe for concurrent use. Distinct instances share
// no state.
type Dataset interface {
	// Modality returns the format tag of the dataset.
	Modality() Modality

	// Path returns the path the dataset was opened from.
	Path() string

	// LoadImage decodes one channel plane. Planes are cached per channel
	// until ClearCache is called. The returned plane must not be modified.
	LoadImage(channel int) (*imaging.Plane, error)

	// Metadata returns a snapshot of the parsed metadata.
	Metadata() *Metadata

	// Resolution returns micrometers per pixel; always positive.
	Resolution() float64

	// Channels returns unique display names, one per channel.
	Channels() []string

	// GenerateMask builds a binary mask. Results are cached per resolved
	// option set until ClearCache is called.
	GenerateMask(opts mask.Options) (*mask.Result, error)

	// Validate checks the path and the artifacts the format requires.
	Validate() (bool, string)

	// ClearCache drops every cached plane and mask.
	ClearCache()

	// Warnings returns the non-fatal problems recorded so far.
	Warnings() []Warning
}

// base carries the state every adapter shares.
type base struct {
	modality   Modality
	path       string
	cfg        *config.Config
	resolution float64
	meta       *Metadata
	channels   []string
	warnings   []Warning

	planes map[int]*imaging.Plane
	masks  map[string]*mask.Result
}

func newBase(m Modality, path string, cfg *config.Config) base {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return base{
		modality:   m,
		path:       path,
		cfg:        cfg,
		resolution: 1.0,
		meta:       tables.NewRecord(),
		planes:     make(map[int]*imaging.Plane),
		masks:      make(map[string]*mask.Result),
	}
}

func (b *base) Modality() Modality { return b.modality }

func (b *base) Path() string { return b.path }

func (b *base) Resolution() float64 { return b.resolution }

func (b *base) Metadata() *Metadata { return b.meta.Clone() }

func (b *base) Channels() []string { return append([]string(nil), b.channels...) }

func (b *base) Warnings() []Warning { return append([]Warning(nil), b.warnings...) }

func (b *base) ClearCache() {
	b.planes = make(map[int]*imaging.Plane)
	b.masks = make(map[string]*mask.Result)
}

// setResolution stores res when it is a usable positive value.
func (b *base) setResolution(res float64) bool {
	if res > 0 && res < 1e12 {
		b.resolution = res
		return true
	}
	return false
}

// setChannels stores unique channel names and the matching num_channels.
func (b *base) setChannels(names []string) {
	b.channels = uniqueChannels(names)
	b.meta.Set("num_channels", len(b.channels))
}

// validatePath is the check every format starts with.
func (b *base) validatePath() (bool, string) {
	if _, err := os.Stat(b.path); err != nil {
		return false, fmt.Sprintf("Data path does not exist: %s", b.path)
	}
	return true, ""
}

// checkChannel rejects channel indices the dataset does not have.
func (b *base) checkChannel(channel int) error {
	if channel < 0 || channel >= len(b.channels) {
		return fmt.Errorf("%w: channel %d (dataset has %d)", ErrChannelOutOfRange, channel, len(b.channels))
	}
	return nil
}

// cachedPlane returns the cached plane for channel or loads and caches it.
func (b *base) cachedPlane(channel int, load func(int) (*imaging.Plane, error)) (*imaging.Plane, error) {
	if err := b.checkChannel(channel); err != nil {
		return nil, err
	}
	if p, ok := b.planes[channel]; ok {
		return p, nil
	}
	p, err := load(channel)
	if err != nil {
		return nil, err
	}
	b.planes[channel] = p
	return p, nil
}

// cachedMask returns the cached result for opts or runs gen and caches a
// successful result.
func (b *base) cachedMask(opts mask.Options, gen func(mask.Options) (*mask.Result, error)) (*mask.Result, error) {
	if _, err := mask.ParseMethod(string(opts.Method)); err != nil {
		return nil, err
	}
	if opts.Method == "" {
		opts.Method = mask.MethodAuto
	}

	key := opts.Key()
	if res, ok := b.masks[key]; ok {
		return res, nil
	}
	res, err := gen(opts)
	if err != nil {
		return nil, err
	}
	if b.cfg.Debug() {
		log.Printf("DEBUG: %s mask for %s via %s (%d foreground px)",
			opts.Method, b.path, res.Method, imaging.CountForeground(res.Mask))
	}
	b.masks[key] = res
	return res, nil
}

// planeMask runs one of the plane-only strategies: auto resolves to def,
// and methods listed in denied are rejected with mask.ErrUnsupportedMethod.
func (b *base) planeMask(opts mask.Options, def mask.Method, load func(int) (*imaging.Plane, error), denied ...mask.Method) (*mask.Result, error) {
	if opts.Method == mask.MethodAuto {
		opts.Method = def
	}
	for _, m := range denied {
		if opts.Method == m {
			return nil, fmt.Errorf("%w: %s datasets do not offer %s masks", mask.ErrUnsupportedMethod, b.modality, m)
		}
	}
	plane, err := load(opts.Channel)
	if err != nil {
		return nil, err
	}
	return mask.Generate(plane, opts)
}

// ImageShape returns the height, width and sample type of the default
// channel, loading it if necessary.
func ImageShape(ds Dataset) (height, width int, dtype string, err error) {
	p, err := ds.LoadImage(DefaultChannel)
	if err != nil {
		return 0, 0, "", err
	}
	height, width = p.Shape()
	return height, width, p.Depth.DType(), nil
}

// uniqueChannels replaces empty or repeated names with Channel_<i>.
func uniqueChannels(names []string) []string {
	out := make([]string, len(names))
	seen := make(map[string]bool, len(names))
	for i, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			n = placeholder(i)
		}
		for seen[n] {
			n += "_dup"
		}
		seen[n] = true
		out[i] = n
	}
	return out
}

func placeholder(i int) string {
	return fmt.Sprintf("Channel_%d", i)
}
