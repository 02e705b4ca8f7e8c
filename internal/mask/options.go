package mask

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/tissue-mask-mcp/internal/config"
	"github.com/ironsheep/tissue-mask-mcp/internal/detection"
	"github.com/ironsheep/tissue-mask-mcp/internal/imaging"
)

// Method names a mask generation strategy.
type Method string

// Mask generation strategies.
const (
	MethodAuto      Method = "auto"
	MethodContour   Method = "contour"
	MethodIntensity Method = "intensity"
	MethodAdaptive  Method = "adaptive"
	MethodCircle    Method = "circle"
	MethodPolygon   Method = "polygon"
)

// Methods lists every strategy name accepted by ParseMethod.
var Methods = []Method{MethodAuto, MethodContour, MethodIntensity, MethodAdaptive, MethodCircle, MethodPolygon}

var (
	// ErrUnknownMethod is returned for a method name outside Methods.
	ErrUnknownMethod = errors.New("unknown mask method")

	// ErrUnsupportedMethod is returned when a dataset does not offer the
	// requested method.
	ErrUnsupportedMethod = errors.New("mask method not supported")
)

// ParseMethod validates a method name. The empty string maps to MethodAuto.
func ParseMethod(s string) (Method, error) {
	if s == "" {
		return MethodAuto, nil
	}
	for _, m := range Methods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// Options configures a GenerateMask call.
//
// The JSON form is what tool callers send; unknown keys are ignored.
type Options struct {
	// Method selects the strategy. MethodAuto lets the dataset choose.
	Method Method `json:"method"`

	// Channel is the plane the mask is derived from.
	Channel int `json:"channel"`

	// Threshold is the fixed binarization threshold. For intensity masks nil
	// selects Otsu; contour masks and the circle fallback use
	// DefaultThreshold instead.
	Threshold *int `json:"threshold,omitempty"`

	// DefaultThreshold applies to contour masks when Threshold is nil.
	DefaultThreshold int `json:"default_threshold"`

	MinArea    float64         `json:"min_area"`
	MaxArea    float64         `json:"max_area"`
	KernelSize int             `json:"kernel_size"`
	Iterations int             `json:"iterations"`
	MorphOp    imaging.MorphOp `json:"morph_op"`

	BlockSize int     `json:"block_size"`
	C         float64 `json:"c"`

	MinRadius int     `json:"min_radius"`
	MaxRadius int     `json:"max_radius"`
	Param1    float64 `json:"param1"`
	Param2    float64 `json:"param2"`
	MinDist   float64 `json:"min_dist"`

	// PostProcess optionally applies one more morphological operation to
	// the finished mask.
	PostProcess    imaging.MorphOp `json:"post_process,omitempty"`
	PostKernelSize int             `json:"post_kernel_size,omitempty"`
	PostIterations int             `json:"post_iterations,omitempty"`
}

// DefaultOptions returns options populated from the configuration.
// A nil cfg uses config.DefaultConfig.
func DefaultOptions(cfg *config.Config) Options {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return Options{
		Method:           MethodAuto,
		DefaultThreshold: cfg.Mask.Threshold,
		MinArea:          cfg.Mask.MinArea,
		MaxArea:          cfg.Mask.MaxArea,
		KernelSize:       cfg.Mask.KernelSize,
		Iterations:       cfg.Mask.Iterations,
		MorphOp:          imaging.MorphClose,
		BlockSize:        cfg.Mask.AdaptiveBlockSize,
		C:                cfg.Mask.AdaptiveC,
		MinRadius:        cfg.Circle.MinRadius,
		MaxRadius:        cfg.Circle.MaxRadius,
		Param1:           cfg.Circle.Param1,
		Param2:           cfg.Circle.Param2,
		MinDist:          cfg.Circle.MinDist,
	}
}

// ParseOptions overlays caller-supplied values on defaults.
//
// Keys that do not name an option are ignored. A value of the wrong type or
// an unknown method name is an error.
func ParseOptions(raw map[string]any, defaults Options) (Options, error) {
	opts := defaults
	if len(raw) == 0 {
		return opts, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return defaults, fmt.Errorf("failed to encode mask options: %w", err)
	}
	if err := json.Unmarshal(data, &opts); err != nil {
		return defaults, fmt.Errorf("invalid mask options: %w", err)
	}
	if opts.Method, err = ParseMethod(string(opts.Method)); err != nil {
		return defaults, err
	}
	return opts, nil
}

// ContourThreshold returns the threshold used by contour masks.
func (o Options) ContourThreshold() int {
	if o.Threshold != nil {
		return *o.Threshold
	}
	return o.DefaultThreshold
}

// Hough returns the circle search parameters.
func (o Options) Hough() detection.HoughParams {
	return detection.HoughParams{
		MinRadius: o.MinRadius,
		MaxRadius: o.MaxRadius,
		Param1:    o.Param1,
		Param2:    o.Param2,
		MinDist:   o.MinDist,
	}
}

// WithMethod returns a copy of o using method m.
func (o Options) WithMethod(m Method) Options {
	o.Method = m
	return o
}

// Key identifies the fully resolved options. Two option sets that produce
// the same mask from the same dataset have the same key.
func (o Options) Key() string {
	data, _ := json.Marshal(o)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
