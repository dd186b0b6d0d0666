package job

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteshift/siteshift/internal/document"
	"github.com/siteshift/siteshift/internal/errors"
	"github.com/siteshift/siteshift/internal/geom"
)

const yamlJob = `
name: Rotate wing
rotation:
  degrees: 90
  pivot: [10, 5, 0]
translation: [0, 0, 0]
filter:
  kinds: [curve, point]
  categories: [Walls, Doors]
`

const tomlJob = `
name = "Rotate wing"
translation = [0.0, 0.0, 0.0]

[rotation]
degrees = 90.0
pivot = [10.0, 5.0, 0.0]

[filter]
kinds = ["curve", "point"]
categories = ["Walls", "Doors"]
`

const jsonJob = `{
  "name": "Rotate wing",
  "rotation": {"degrees": 90, "pivot": [10, 5, 0]},
  "translation": [0, 0, 0],
  "filter": {"kinds": ["curve", "point"], "categories": ["Walls", "Doors"]}
}`

func TestFormatsAgree(t *testing.T) {
	tests := []struct {
		format Format
		data   string
	}{
		{FormatYAML, yamlJob},
		{FormatTOML, tomlJob},
		{FormatJSON, jsonJob},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			j, err := Parse([]byte(tt.data), tt.format)
			require.NoError(t, err)

			req, err := j.Request()
			require.NoError(t, err)
			assert.Equal(t, "Rotate wing", req.Name)
			require.NotNil(t, req.Filter)
			assert.Equal(t, []document.Kind{document.KindCurve, document.KindPoint}, req.Filter.Kinds)
			assert.Equal(t, []string{"Walls", "Doors"}, req.Filter.Categories)

			got := req.Transform.ApplyToPoint(geom.V(20, 5, 0))
			assert.True(t, geom.Near(geom.V(10, 15, 0), got, 1e-9), "got %v", got)
		})
	}
}

func TestDefaults(t *testing.T) {
	j, err := Parse([]byte("{}"), FormatJSON)
	require.NoError(t, err)

	req, err := j.Request()
	require.NoError(t, err)
	assert.True(t, req.Transform.IsTranslation())
	assert.Equal(t, geom.V(50, 50, 0), req.Transform.Translation)
	require.NotNil(t, req.Filter, "no selection means the whole document")
	assert.Empty(t, req.Filter.Kinds)

	p, err := j.ProbePoint()
	require.NoError(t, err)
	assert.Equal(t, geom.Vec3{}, p)
}

func TestCandidatesWithoutFilter(t *testing.T) {
	j, err := Parse([]byte("candidates: [crv_1]\n"), FormatYAML)
	require.NoError(t, err)
	req, err := j.Request()
	require.NoError(t, err)
	assert.Nil(t, req.Filter)
	assert.Equal(t, []string{"crv_1"}, req.Candidates)
}

func TestInvalidJobs(t *testing.T) {
	tests := map[string]string{
		"short translation": `{"translation": [1, 2]}`,
		"bad kind":          `{"filter": {"kinds": ["railing"]}}`,
		"zero axis":         `{"rotation": {"degrees": 10, "axis": [0, 0, 0]}}`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			j, err := Parse([]byte(data), FormatJSON)
			require.NoError(t, err)
			_, err = j.Request()
			require.Error(t, err)
			code := errors.GetCode(err)
			assert.Contains(t, []errors.Code{errors.ErrCodeInvalidInput, errors.ErrCodeMalformedTransform}, code)
		})
	}

	_, err := Parse([]byte("{"), FormatJSON)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "move.yml")
	require.NoError(t, os.WriteFile(path, []byte(yamlJob), 0o644))

	j, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 90.0, j.Rotation.Degrees)

	_, err = Load(filepath.Join(dir, "move.ini"))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}
