package ddseq

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// File is the on-disk form of a sequence. It either names a Scheme with its
// parameters or lists the pulses explicitly.
type File struct {
	Name               string    `yaml:"name" hcl:"name,optional"`
	Scheme             string    `yaml:"scheme" hcl:"scheme,optional"`
	Duration           float64   `yaml:"duration" hcl:"duration"`
	OffsetCount        int       `yaml:"offset_count" hcl:"offset_count,optional"`
	PaleyOrder         int       `yaml:"paley_order" hcl:"paley_order,optional"`
	OuterOffsetCount   int       `yaml:"outer_offset_count" hcl:"outer_offset_count,optional"`
	InnerOffsetCount   int       `yaml:"inner_offset_count" hcl:"inner_offset_count,optional"`
	ConcatenationOrder int       `yaml:"concatenation_order" hcl:"concatenation_order,optional"`
	PrePostRotation    bool      `yaml:"pre_post_rotation" hcl:"pre_post_rotation,optional"`
	Offsets            []float64 `yaml:"offsets" hcl:"offsets,optional"`
	RabiRotations      []float64 `yaml:"rabi_rotations" hcl:"rabi_rotations,optional"`
	AzimuthalAngles    []float64 `yaml:"azimuthal_angles" hcl:"azimuthal_angles,optional"`
	DetuningRotations  []float64 `yaml:"detuning_rotations" hcl:"detuning_rotations,optional"`
}

// Sequence builds the sequence the file describes. Scheme parameters left at
// zero, the duration included, take the scheme defaults; missing angle lists
// default to zeros.
func (f *File) Sequence() (*Sequence, error) {
	if f.Scheme != "" {
		scheme, err := ParseScheme(f.Scheme)
		if err != nil {
			return nil, err
		}
		p := DefaultParams(scheme)
		p.PrePostRotation = f.PrePostRotation
		if f.Duration != 0 {
			p.Duration = f.Duration
		}
		if f.OffsetCount > 0 {
			p.OffsetCount = f.OffsetCount
		}
		if f.PaleyOrder > 0 {
			p.PaleyOrder = f.PaleyOrder
		}
		if f.OuterOffsetCount > 0 {
			p.OuterOffsetCount = f.OuterOffsetCount
		}
		if f.InnerOffsetCount > 0 {
			p.InnerOffsetCount = f.InnerOffsetCount
		}
		if f.ConcatenationOrder > 0 {
			p.ConcatenationOrder = f.ConcatenationOrder
		}
		seq, err := NewFromScheme(scheme, p)
		if err != nil {
			return nil, err
		}
		if f.Name != "" {
			seq.Name = f.Name
		}
		return seq, nil
	}

	n := len(f.Offsets)
	return New(f.Duration, f.Offsets,
		orZeros(f.RabiRotations, n), orZeros(f.AzimuthalAngles, n), orZeros(f.DetuningRotations, n),
		f.Name)
}

func orZeros(v []float64, n int) []float64 {
	if v == nil {
		return make([]float64, n)
	}
	return v
}

// Decode parses a sequence file body. format is "yaml", "json" or "hcl";
// JSON is read by the YAML decoder.
func Decode(data []byte, format, filename string) (*Sequence, error) {
	var f File
	switch format {
	case "yaml", "yml", "json":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filename, err)
		}
	case "hcl":
		parser := hclparse.NewParser()
		hclFile, diags := parser.ParseHCL(data, filename)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parse %s: %w", filename, diags)
		}
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &f); diags.HasErrors() {
			return nil, fmt.Errorf("decode %s: %w", filename, diags)
		}
	default:
		return nil, fmt.Errorf("unsupported sequence format %q", format)
	}
	return f.Sequence()
}

// LoadFile reads a sequence from a .yaml, .yml, .json or .hcl file.
func LoadFile(path string) (*Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sequence: %w", err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	seq, err := Decode(data, format, path)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("loaded sequence",
		zap.String("path", path),
		zap.String("name", seq.Name),
		zap.Int("offsets", seq.Len()))
	return seq, nil
}
