package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"load-consolidation-service/internal/domain"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultProfileYAML []byte

// Conversion is a unit change applied to a source value before it lands in its column.
type Conversion string

const (
	ConvertNone           Conversion = ""
	ConvertMinutesToHours Conversion = "minutes_to_hours"
	ConvertMinutesToDays  Conversion = "minutes_to_days"
)

// SourceSpec describes one extract file.
type SourceSpec struct {
	File      string              `yaml:"file"`
	Delimiter string              `yaml:"delimiter"`
	Fields    map[string][]string `yaml:"fields"`
	Convert   map[string]string   `yaml:"convert"`

	// Resolved by validate.
	Source      domain.Source                `yaml:"-"`
	Columns     map[domain.Column][]string   `yaml:"-"`
	Conversions map[domain.Column]Conversion `yaml:"-"`
	Comma       rune                         `yaml:"-"`
}

type MinSamples struct {
	Driver   int `yaml:"driver"`
	Customer int `yaml:"customer"`
	Weekday  int `yaml:"weekday"`
	Prefix   int `yaml:"prefix"`
}

type ServiceTimeSettings struct {
	MinMinutes         float64 `yaml:"min_minutes"`
	MaxMinutes         float64 `yaml:"max_minutes"`
	FloorMinutes       float64 `yaml:"floor_minutes"`
	CustomerMinSamples int     `yaml:"customer_min_samples"`
}

// KeywordRule assigns Value as transporter when a driver name contains Match.
type KeywordRule struct {
	Match string `yaml:"match"`
	Value string `yaml:"value"`
}

type TransporterSettings struct {
	DriverMinCount   int           `yaml:"driver_min_count"`
	CustomerMinCount int           `yaml:"customer_min_count"`
	PrefixMinSamples int           `yaml:"prefix_min_samples"`
	PrefixMinShare   float64       `yaml:"prefix_min_share"`
	Default          string        `yaml:"default"`
	Keywords         []KeywordRule `yaml:"keywords"`
}

type RepeatedValueSettings struct {
	MinRows int     `yaml:"min_rows"`
	Share   float64 `yaml:"share"`
}

// FillSettings tunes the gap-filling stages.
type FillSettings struct {
	MinSamples              MinSamples            `yaml:"min_samples"`
	PrefixLength            int                   `yaml:"prefix_length"`
	DefaultClockin          string                `yaml:"default_clockin"`
	DefaultPlannedDeparture string                `yaml:"default_planned_departure"`
	DefaultAveDeparture     string                `yaml:"default_ave_departure"`
	DistanceGlobalMedian    bool                  `yaml:"distance_global_median"`
	ServiceTime             ServiceTimeSettings   `yaml:"service_time"`
	Transporter             TransporterSettings   `yaml:"transporter"`
	RepeatedValue           RepeatedValueSettings `yaml:"repeated_value"`
}

// EstimatorSettings configure the optional routing-service distance estimate.
type EstimatorSettings struct {
	// Country is appended to customer names to form a searchable address.
	Country string `yaml:"country"`
	// BoundaryCountry restricts geocoding results (ISO 3166-1 alpha-2).
	BoundaryCountry string `yaml:"boundary_country"`
	Profile         string `yaml:"profile"`
}

// Profile is the full consolidation configuration.
type Profile struct {
	Warehouse     string                `yaml:"warehouse"`
	ModeOfCapture string                `yaml:"mode_of_capture"`
	Sources       map[string]SourceSpec `yaml:"sources"`
	Fill          FillSettings          `yaml:"fill"`
	Estimator     EstimatorSettings     `yaml:"estimator"`
}

// DefaultProfile returns the embedded profile.
func DefaultProfile() (*Profile, error) {
	p, err := ParseProfile(defaultProfileYAML)
	if err != nil {
		return nil, fmt.Errorf("default profile: %w", err)
	}
	return p, nil
}

// LoadProfile reads a profile from path, or returns the embedded default when path is empty.
func LoadProfile(path string) (*Profile, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultProfile()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile: read %q: %w", path, err)
	}

	p, err := ParseProfile(data)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", path, err)
	}
	return p, nil
}

// ParseProfile decodes and validates a YAML profile. Unknown keys are rejected.
func ParseProfile(data []byte) (*Profile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Profile
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}

	p.applyDefaults()
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	return &p, nil
}

// Source returns the resolved settings for s. ok is false when the profile does not configure it.
func (p *Profile) Source(s domain.Source) (SourceSpec, bool) {
	spec, ok := p.Sources[s.String()]
	return spec, ok
}

func (p *Profile) applyDefaults() {
	if p.Warehouse == "" {
		p.Warehouse = "jinja"
	}
	if p.ModeOfCapture == "" {
		p.ModeOfCapture = "DJ"
	}

	f := &p.Fill
	setInt(&f.MinSamples.Driver, 2)
	setInt(&f.MinSamples.Customer, 3)
	setInt(&f.MinSamples.Weekday, 10)
	setInt(&f.MinSamples.Prefix, 5)
	setInt(&f.PrefixLength, 2)
	setString(&f.DefaultClockin, "10:00")
	setString(&f.DefaultPlannedDeparture, "08:00")
	setString(&f.DefaultAveDeparture, "08:00")

	setFloat(&f.ServiceTime.MinMinutes, 10)
	setFloat(&f.ServiceTime.MaxMinutes, 600)
	setFloat(&f.ServiceTime.FloorMinutes, 15)
	setInt(&f.ServiceTime.CustomerMinSamples, 3)

	setInt(&f.Transporter.DriverMinCount, 2)
	setInt(&f.Transporter.CustomerMinCount, 3)
	setInt(&f.Transporter.PrefixMinSamples, 10)
	setFloat(&f.Transporter.PrefixMinShare, 0.7)
	setString(&f.Transporter.Default, "Own")

	setInt(&f.RepeatedValue.MinRows, 10)
	setFloat(&f.RepeatedValue.Share, 0.05)

	setString(&p.Estimator.Profile, "driving-car")
}

func (p *Profile) validate() error {
	if len(p.Sources) == 0 {
		return errors.New("no sources configured")
	}

	for name, spec := range p.Sources {
		src, ok := domain.ParseSource(name)
		if !ok {
			return fmt.Errorf("source %q: unknown source", name)
		}
		if strings.TrimSpace(spec.File) == "" {
			return fmt.Errorf("source %q: file must not be empty", name)
		}

		comma, err := parseDelimiter(spec.Delimiter)
		if err != nil {
			return fmt.Errorf("source %q: %w", name, err)
		}

		cols := make(map[domain.Column][]string, len(spec.Fields))
		for field, aliases := range spec.Fields {
			c, ok := domain.ColumnByName(field)
			if !ok {
				return fmt.Errorf("source %q: unknown column %q", name, field)
			}
			if len(aliases) == 0 {
				return fmt.Errorf("source %q: column %q has no aliases", name, field)
			}
			cols[c] = aliases
		}
		if _, ok := cols[domain.LoadNumber]; !ok {
			return fmt.Errorf("source %q: no %q field", name, domain.LoadNumber)
		}

		conv := make(map[domain.Column]Conversion, len(spec.Convert))
		for field, kind := range spec.Convert {
			c, ok := domain.ColumnByName(field)
			if !ok {
				return fmt.Errorf("source %q: convert: unknown column %q", name, field)
			}
			switch k := Conversion(kind); k {
			case ConvertMinutesToHours, ConvertMinutesToDays:
				conv[c] = k
			default:
				return fmt.Errorf("source %q: convert %q: unknown conversion %q", name, field, kind)
			}
		}

		spec.Source = src
		spec.Columns = cols
		spec.Conversions = conv
		spec.Comma = comma
		p.Sources[name] = spec
	}

	for _, v := range []string{p.Fill.DefaultClockin, p.Fill.DefaultPlannedDeparture, p.Fill.DefaultAveDeparture} {
		if _, err := ParseClock(v); err != nil {
			return fmt.Errorf("fill: %w", err)
		}
	}

	st := p.Fill.ServiceTime
	if st.MinMinutes > st.MaxMinutes {
		return fmt.Errorf("fill: service_time: min_minutes %.0f exceeds max_minutes %.0f", st.MinMinutes, st.MaxMinutes)
	}
	if s := p.Fill.Transporter.PrefixMinShare; s <= 0 || s > 1 {
		return fmt.Errorf("fill: transporter: prefix_min_share must be in (0, 1], got %v", s)
	}
	for i, k := range p.Fill.Transporter.Keywords {
		if strings.TrimSpace(k.Match) == "" || strings.TrimSpace(k.Value) == "" {
			return fmt.Errorf("fill: transporter: keyword #%d needs match and value", i+1)
		}
	}

	return nil
}

// ParseClock parses "HH:MM" into minutes after midnight.
func ParseClock(v string) (float64, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(v), ":")
	if !ok {
		return 0, fmt.Errorf("clock %q: want HH:MM", v)
	}
	hh, err := strconv.Atoi(h)
	if err != nil || hh < 0 || hh > 23 {
		return 0, fmt.Errorf("clock %q: bad hour", v)
	}
	mm, err := strconv.Atoi(m)
	if err != nil || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("clock %q: bad minute", v)
	}
	return float64(hh*60 + mm), nil
}

func parseDelimiter(v string) (rune, error) {
	switch strings.ToLower(v) {
	case "":
		return 0, nil
	case "tab", `\t`, "\t":
		return '\t', nil
	case ",", "comma":
		return ',', nil
	case ";", "semicolon":
		return ';', nil
	case "|", "pipe":
		return '|', nil
	}
	return 0, fmt.Errorf("unsupported delimiter %q", v)
}

func setInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func setFloat(v *float64, def float64) {
	if *v == 0 {
		*v = def
	}
}

func setString(v *string, def string) {
	if strings.TrimSpace(*v) == "" {
		*v = def
	}
}
