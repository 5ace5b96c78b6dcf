package adapt

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type fileTransform struct {
	Class  int         `yaml:"class"`
	Matrix [][]float64 `yaml:"matrix"`
	Bias   []float64   `yaml:"bias"`
}

type fileSet struct {
	Name       string          `yaml:"name"`
	Default    *fileTransform  `yaml:"default"`
	Transforms []fileTransform `yaml:"transforms"`
}

// Load reads a transform set from a YAML file.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading transform set: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing transform set %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a YAML transform set:
//
//	name: spk01
//	default: {matrix: [[1, 0], [0, 1]], bias: [0, 0]}
//	transforms:
//	  - class: 1
//	    matrix: [[0.9, 0.1], [0, 1.1]]
//	    bias: [0.2, -0.1]
func Parse(data []byte) (*Set, error) {
	var fs fileSet
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return nil, err
	}
	s := NewSet(fs.Name)
	if fs.Default != nil {
		t, err := NewTransform(fs.Default.Matrix, fs.Default.Bias)
		if err != nil {
			return nil, fmt.Errorf("default transform: %w", err)
		}
		s.Default = t
	}
	for _, ft := range fs.Transforms {
		if _, dup := s.ByClass[ft.Class]; dup {
			return nil, fmt.Errorf("duplicate transform for class %d", ft.Class)
		}
		t, err := NewTransform(ft.Matrix, ft.Bias)
		if err != nil {
			return nil, fmt.Errorf("class %d: %w", ft.Class, err)
		}
		s.Add(ft.Class, t)
	}
	return s, nil
}
