// Package fixtures loads stop datasets from YAML for seeding the database
// and for running the map demo without one.
package fixtures

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/samirrijal/bilbomap/internal/core/domain"
)

//go:embed bilbao.yaml
var bilbaoYAML []byte

// Dataset is a named list of stops published by one agency.
type Dataset struct {
	Name     string        `yaml:"name"`
	AgencyID string        `yaml:"agency_id"`
	Stops    []domain.Stop `yaml:"stops"`
}

// Parse decodes a dataset. Stops inherit the dataset agency when they carry
// none, and get "<agency>:<stop_id>" as ID so they can be served without a
// database.
func Parse(data []byte) (Dataset, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Dataset{}, fmt.Errorf("fixtures: dataset is empty")
	}
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return Dataset{}, fmt.Errorf("fixtures: decode dataset: %w", err)
	}
	return ds.normalized()
}

// LoadFile reads and parses a dataset file.
func LoadFile(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("fixtures: read %s: %w", path, err)
	}
	ds, err := Parse(data)
	if err != nil {
		return Dataset{}, fmt.Errorf("fixtures: %s: %w", path, err)
	}
	return ds, nil
}

// Bilbao returns the built-in Metro Bilbao dataset.
func Bilbao() Dataset {
	ds, err := Parse(bilbaoYAML)
	if err != nil {
		panic("fixtures: built-in dataset: " + err.Error())
	}
	return ds
}

func (ds Dataset) normalized() (Dataset, error) {
	seen := make(map[string]bool, len(ds.Stops))
	for i := range ds.Stops {
		s := &ds.Stops[i]
		if s.StopID == "" {
			return Dataset{}, fmt.Errorf("stop %d: stop_id is required", i)
		}
		if s.Name == "" {
			return Dataset{}, fmt.Errorf("stop %s: name is required", s.StopID)
		}
		if s.AgencyID == "" {
			s.AgencyID = ds.AgencyID
		}
		if s.AgencyID == "" {
			return Dataset{}, fmt.Errorf("stop %s: agency_id is required", s.StopID)
		}
		if s.Location != nil {
			if err := s.Location.Validate(); err != nil {
				return Dataset{}, fmt.Errorf("stop %s: %w", s.StopID, err)
			}
		}
		if s.ID == "" {
			s.ID = s.AgencyID + ":" + s.StopID
		}
		if seen[s.ID] {
			return Dataset{}, fmt.Errorf("stop %s: duplicate id", s.ID)
		}
		seen[s.ID] = true
	}
	return ds, nil
}
