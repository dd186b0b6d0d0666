// Package job reads transform jobs from YAML, TOML or JSON files. A job is
// the caller side of one transaction: the rigid transform and which entities
// to start from.
package job

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/siteshift/siteshift/internal/document"
	"github.com/siteshift/siteshift/internal/engine"
	"github.com/siteshift/siteshift/internal/errors"
	"github.com/siteshift/siteshift/internal/geom"
)

// Format is a job file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// DefaultTranslation is applied when a job names none.
var DefaultTranslation = []float64{50, 50, 0}

type Rotation struct {
	Degrees float64   `json:"degrees" yaml:"degrees" toml:"degrees"`
	Axis    []float64 `json:"axis,omitempty" yaml:"axis,omitempty" toml:"axis,omitempty"`
	Pivot   []float64 `json:"pivot,omitempty" yaml:"pivot,omitempty" toml:"pivot,omitempty"`
}

type Filter struct {
	Kinds      []string `json:"kinds,omitempty" yaml:"kinds,omitempty" toml:"kinds,omitempty"`
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty" toml:"categories,omitempty"`
}

// Job is one transform request as written by a person.
type Job struct {
	Name        string    `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Document    string    `json:"document,omitempty" yaml:"document,omitempty" toml:"document,omitempty"`
	Rotation    Rotation  `json:"rotation" yaml:"rotation" toml:"rotation"`
	Translation []float64 `json:"translation,omitempty" yaml:"translation,omitempty" toml:"translation,omitempty"`
	Candidates  []string  `json:"candidates,omitempty" yaml:"candidates,omitempty" toml:"candidates,omitempty"`
	Filter      *Filter   `json:"filter,omitempty" yaml:"filter,omitempty" toml:"filter,omitempty"`

	// Probe is the point Diagnose reports on; the origin when unset.
	Probe []float64 `json:"probe,omitempty" yaml:"probe,omitempty" toml:"probe,omitempty"`
}

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown job file extension %q", filepath.Ext(path))
}

// Load reads and parses a job file.
func Load(path string) (*Job, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, format)
}

// Parse decodes a job and fills in defaults.
func Parse(data []byte, format Format) (*Job, error) {
	var j Job
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &j)
	case FormatTOML:
		err = toml.Unmarshal(data, &j)
	case FormatJSON:
		err = json.Unmarshal(data, &j)
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown job format %q", format)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s job", format)
	}
	j.applyDefaults()
	return &j, nil
}

func (j *Job) applyDefaults() {
	if j.Translation == nil {
		j.Translation = append([]float64(nil), DefaultTranslation...)
	}
	if j.Rotation.Axis == nil {
		j.Rotation.Axis = []float64{0, 0, 1}
	}
	if j.Rotation.Pivot == nil {
		j.Rotation.Pivot = []float64{0, 0, 0}
	}
}

func vec(name string, v []float64) (geom.Vec3, error) {
	if len(v) != 3 {
		return geom.Vec3{}, errors.New(errors.ErrCodeInvalidInput, "%s needs 3 components, got %d", name, len(v))
	}
	return geom.V(v[0], v[1], v[2]), nil
}

// Transform builds the job's rigid transform.
func (j *Job) Transform() (geom.Rigid, error) {
	axis, err := vec("rotation.axis", j.Rotation.Axis)
	if err != nil {
		return geom.Rigid{}, err
	}
	pivot, err := vec("rotation.pivot", j.Rotation.Pivot)
	if err != nil {
		return geom.Rigid{}, err
	}
	move, err := vec("translation", j.Translation)
	if err != nil {
		return geom.Rigid{}, err
	}
	return geom.NewRigid(axis, geom.Degrees(j.Rotation.Degrees), pivot, move)
}

// ProbePoint returns the diagnostics probe.
func (j *Job) ProbePoint() (geom.Vec3, error) {
	if j.Probe == nil {
		return geom.Vec3{}, nil
	}
	return vec("probe", j.Probe)
}

// Request builds the engine request. A job that selects nothing starts from
// every entity in the document.
func (j *Job) Request() (engine.Request, error) {
	t, err := j.Transform()
	if err != nil {
		return engine.Request{}, err
	}
	req := engine.Request{Name: j.Name, Transform: t, Candidates: j.Candidates}

	switch {
	case j.Filter != nil:
		f := &document.Filter{Categories: j.Filter.Categories}
		for _, k := range j.Filter.Kinds {
			kind := document.Kind(k)
			if !kind.Supported() {
				return engine.Request{}, errors.New(errors.ErrCodeInvalidInput, "unknown entity kind %q in filter", k)
			}
			f.Kinds = append(f.Kinds, kind)
		}
		req.Filter = f
	case len(j.Candidates) == 0:
		req.Filter = &document.Filter{}
	}
	return req, nil
}
