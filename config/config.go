// Package config reads linear Kalman filter models from YAML documents.
package config

import (
	"fmt"
	"os"

	filter "github.com/milosgajdos/go-kalman"
	"github.com/milosgajdos/go-kalman/kalman/kf"
	"github.com/milosgajdos/go-kalman/matrix"
	"github.com/milosgajdos/go-kalman/model"
	"github.com/milosgajdos/go-kalman/noise"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// symTol is tolerance used when checking covariance symmetry
const symTol = 1e-9

// Model is a linear Kalman filter model description.
// Matrices are given as lists of rows.
type Model struct {
	State            []float64   `yaml:"state"`
	Covariance       [][]float64 `yaml:"covariance"`
	Transition       [][]float64 `yaml:"transition"`
	Control          [][]float64 `yaml:"control,omitempty"`
	Observation      [][]float64 `yaml:"observation"`
	ProcessNoise     [][]float64 `yaml:"process_noise,omitempty"`
	MeasurementNoise [][]float64 `yaml:"measurement_noise,omitempty"`
}

// Default returns 1-D random walk model observed directly:
// F = 1, H = 1, Q = 0.01, R = 1.
func Default() *Model {
	return &Model{
		State:            []float64{0},
		Covariance:       [][]float64{{1}},
		Transition:       [][]float64{{1}},
		Observation:      [][]float64{{1}},
		ProcessNoise:     [][]float64{{0.01}},
		MeasurementNoise: [][]float64{{1}},
	}
}

// Parse parses YAML model description and validates it.
func Parse(data []byte) (*Model, error) {
	m := &Model{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// Load reads model description from the file at path.
func Load(path string) (*Model, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	m, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return m, nil
}

// Marshal encodes the model description as YAML.
func (m *Model) Marshal() ([]byte, error) {
	return yaml.Marshal(m)
}

// Validate checks that model matrices have consistent dimensions and
// covariance matrices are symmetric.
// It returns DimensionError if any of the dimensions does not match.
func (m *Model) Validate() error {
	n := len(m.State)
	if n == 0 {
		return &matrix.DimensionError{Op: "config: state", Want: [2]int{matrix.Any, 1}}
	}

	if err := checkShape("config: covariance", m.Covariance, n, n); err != nil {
		return err
	}

	if err := checkShape("config: transition", m.Transition, n, n); err != nil {
		return err
	}

	if err := checkShape("config: observation", m.Observation, matrix.Any, n); err != nil {
		return err
	}
	ny := len(m.Observation)

	if m.Control != nil {
		if err := checkShape("config: control", m.Control, n, matrix.Any); err != nil {
			return err
		}
	}

	if m.ProcessNoise != nil {
		if err := checkShape("config: process noise", m.ProcessNoise, n, n); err != nil {
			return err
		}
	}

	if m.MeasurementNoise != nil {
		if err := checkShape("config: measurement noise", m.MeasurementNoise, ny, ny); err != nil {
			return err
		}
	}

	for name, c := range map[string][][]float64{
		"covariance":        m.Covariance,
		"process noise":     m.ProcessNoise,
		"measurement noise": m.MeasurementNoise,
	} {
		if c != nil && !matrix.IsSymmetric(dense(c), symTol) {
			return fmt.Errorf("config: %s is not symmetric", name)
		}
	}

	return nil
}

// Build validates the model and creates Kalman filter from it.
func (m *Model) Build() (*kf.KF, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	var B *mat.Dense
	if m.Control != nil {
		B = dense(m.Control)
	}

	lin, err := model.NewLinear(dense(m.Transition), B, dense(m.Observation))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	p, err := matrix.Symmetrize(dense(m.Covariance))
	if err != nil {
		return nil, err
	}
	ic := model.NewInitCond(mat.NewVecDense(len(m.State), m.State), p)

	q, err := gaussian("process noise", m.ProcessNoise)
	if err != nil {
		return nil, err
	}

	r, err := gaussian("measurement noise", m.MeasurementNoise)
	if err != nil {
		return nil, err
	}

	return kf.New(lin, ic, q, r)
}

// gaussian returns zero mean Gaussian noise with covariance rows or nil if rows is nil
func gaussian(name string, rows [][]float64) (filter.Noise, error) {
	if rows == nil {
		return nil, nil
	}

	cov, err := matrix.Symmetrize(dense(rows))
	if err != nil {
		return nil, err
	}

	g, err := noise.NewGaussian(make([]float64, len(rows)), cov)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", name, err)
	}

	return g, nil
}

// checkShape returns DimensionError if rows is not a rows x cols matrix.
// Either of rows or cols can be matrix.Any.
func checkShape(op string, rows [][]float64, r, c int) error {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return &matrix.DimensionError{Op: op, Got: [2]int{len(rows), 0}, Want: [2]int{r, c}}
	}

	cols := len(rows[0])
	for _, row := range rows {
		if len(row) != cols {
			return &matrix.DimensionError{Op: op, Got: [2]int{len(rows), len(row)}, Want: [2]int{len(rows), cols}}
		}
	}

	return matrix.CheckDims(op, mat.NewDense(len(rows), cols, nil), r, c)
}

// dense returns matrix built from non-empty rectangular rows
func dense(rows [][]float64) *mat.Dense {
	d := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		d.SetRow(i, row)
	}

	return d
}
