package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Fixture is a YAML document describing LMS records to import.
type Fixture struct {
	Users        []User         `yaml:"users"`
	Courses      []Course       `yaml:"courses"`
	Modules      []CourseModule `yaml:"modules"`
	Enrolments   []Enrolment    `yaml:"enrolments"`
	Capabilities []Capability   `yaml:"capabilities"`
	Scorms       []Scorm        `yaml:"scorms"`
	Scoes        []FixtureSco   `yaml:"scoes"`
	Tracks       []ScormTrack   `yaml:"tracks"`
}

// FixtureSco is a package item with its extra manifest data inline.
type FixtureSco struct {
	ScormSco `yaml:",inline"`
	Data     map[string]string `yaml:"data"`
}

// LoadFixture parses a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f Fixture
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// Seed imports a fixture in one transaction.
func (s *Store) Seed(f *Fixture) error {
	defer s.Purge()
	return s.Transaction(func(tx *gorm.DB) error {
		batches := []interface{}{
			f.Users, f.Courses, f.Modules, f.Enrolments, f.Capabilities, f.Scorms, f.Tracks,
		}
		for _, b := range batches {
			if err := createAll(tx, b); err != nil {
				return err
			}
		}
		for _, fs := range f.Scoes {
			sco := fs.ScormSco
			if len(fs.Data) > 0 {
				if err := sco.SetData(fs.Data); err != nil {
					return err
				}
			}
			if err := tx.Create(&sco).Error; err != nil {
				return fmt.Errorf("sco %s: %w", sco.Identifier, err)
			}
		}
		return nil
	})
}

func createAll(tx *gorm.DB, batch interface{}) error {
	switch v := batch.(type) {
	case []User:
		if len(v) > 0 {
			return tx.Create(&v).Error
		}
	case []Course:
		if len(v) > 0 {
			return tx.Create(&v).Error
		}
	case []CourseModule:
		if len(v) > 0 {
			return tx.Create(&v).Error
		}
	case []Enrolment:
		if len(v) > 0 {
			return tx.Create(&v).Error
		}
	case []Capability:
		if len(v) > 0 {
			return tx.Create(&v).Error
		}
	case []Scorm:
		if len(v) > 0 {
			return tx.Create(&v).Error
		}
	case []ScormTrack:
		if len(v) > 0 {
			return tx.Create(&v).Error
		}
	}
	return nil
}
