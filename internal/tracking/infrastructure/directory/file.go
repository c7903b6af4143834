// Package directory loads the owner directory, member roster and category
// overrides from a YAML file.
package directory

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/domain"
	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of the directory file.
type File struct {
	// Owners maps source tokens (user ids, spreadsheet names) to display names.
	Owners    map[string]string         `yaml:"owners"`
	Members   []domain.Member           `yaml:"members"`
	Overrides []domain.CategoryOverride `yaml:"overrides"`
}

// Parse decodes a directory file. Unknown keys are rejected.
func Parse(data []byte) (domain.ReferenceData, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return domain.ReferenceData{}, fmt.Errorf("parse directory: %w", err)
	}
	for i, o := range f.Overrides {
		if o.ExternalID == "" {
			return domain.ReferenceData{}, fmt.Errorf("parse directory: override %d has no external_id", i)
		}
	}
	return f.Reference(), nil
}

// Reference builds the immutable reference data for f.
func (f File) Reference() domain.ReferenceData {
	return domain.ReferenceData{
		Owners:    domain.NewOwnerDirectory(f.Owners, f.Members),
		Overrides: domain.NewOverrideTable(f.Overrides...),
	}
}

// LoadFile reads and parses the directory file at path.
func LoadFile(path string) (domain.ReferenceData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ReferenceData{}, fmt.Errorf("read directory: %w", err)
	}
	return Parse(data)
}
