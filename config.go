package sketchboard

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Defaults used when no Config is supplied.
const (
	DefaultGridPitch          = 20.0
	DefaultCurveHitPx         = 8.0
	DefaultCurveSamples       = 20
	DefaultReverseCurveOffset = 30.0
	DefaultMinScale           = 0.1
	DefaultMaxScale           = 5.0
	DefaultMinGridSpacingPx   = 8.0
	DefaultMaxSheets          = 5
	DefaultMaxHistory         = 50
	DefaultMaxFieldRows       = 10
	DefaultMaxMethodRows      = 10
	DefaultTextFitFloor       = 8.0
	DefaultFontSize           = 14.0
	DefaultStrokeWidth        = 2.0
	DefaultMarkerAlpha        = 0.4
	DefaultFreehandHitPx      = 6.0
)

// Config holds the tunable limits and constants of an Engine.
type Config struct {
	GridPitch          float64 `yaml:"grid_pitch" validate:"gte=0"`
	SnapToGrid         bool    `yaml:"snap_to_grid"`
	CurveHitPx         float64 `yaml:"curve_hit_px" validate:"gt=0"`
	CurveSamples       int     `yaml:"curve_samples" validate:"gte=2,lte=200"`
	ReverseCurveOffset float64 `yaml:"reverse_curve_offset" validate:"gte=0"`
	MinScale           float64 `yaml:"min_scale" validate:"gt=0"`
	MaxScale           float64 `yaml:"max_scale" validate:"gtfield=MinScale"`
	MinGridSpacingPx   float64 `yaml:"min_grid_spacing_px" validate:"gte=0"`
	MaxSheets          int     `yaml:"max_sheets" validate:"gte=1,lte=50"`
	MaxHistory         int     `yaml:"max_history" validate:"gte=1"`
	MaxFieldRows       int     `yaml:"max_field_rows" validate:"gte=1"`
	MaxMethodRows      int     `yaml:"max_method_rows" validate:"gte=0"`
	TextFitFloor       float64 `yaml:"text_fit_floor" validate:"gt=0"`
	DefaultFontSize    float64 `yaml:"default_font_size" validate:"gtfield=TextFitFloor"`
	DefaultStrokeWidth float64 `yaml:"default_stroke_width" validate:"gt=0"`
	MarkerAlpha        float64 `yaml:"marker_alpha" validate:"gt=0,lte=1"`
	FreehandHitPx      float64 `yaml:"freehand_hit_px" validate:"gt=0"`
	Debug              bool    `yaml:"debug"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		GridPitch:          DefaultGridPitch,
		SnapToGrid:         true,
		CurveHitPx:         DefaultCurveHitPx,
		CurveSamples:       DefaultCurveSamples,
		ReverseCurveOffset: DefaultReverseCurveOffset,
		MinScale:           DefaultMinScale,
		MaxScale:           DefaultMaxScale,
		MinGridSpacingPx:   DefaultMinGridSpacingPx,
		MaxSheets:          DefaultMaxSheets,
		MaxHistory:         DefaultMaxHistory,
		MaxFieldRows:       DefaultMaxFieldRows,
		MaxMethodRows:      DefaultMaxMethodRows,
		TextFitFloor:       DefaultTextFitFloor,
		DefaultFontSize:    DefaultFontSize,
		DefaultStrokeWidth: DefaultStrokeWidth,
		MarkerAlpha:        DefaultMarkerAlpha,
		FreehandHitPx:      DefaultFreehandHitPx,
	}
}

var validate = validator.New()

// Validate checks the struct tags of c.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("config: %s fails %q (value %v)", f.Field(), f.Tag(), f.Value())
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// LoadConfig reads YAML from r on top of DefaultConfig and validates the
// result. Keys missing from the document keep their default values.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
