package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/filterspec/internal/filter"
)

// Scenario defines a conformance test scenario: fixture data, one query
// and the assertions it must satisfy.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Table and Key address the relation the query pages through.
	Table string `yaml:"table"`
	Key   string `yaml:"key"`

	// Columns restricts the select list and the sortable columns.
	Columns []string `yaml:"columns,omitempty"`

	// Setup holds SQL statements run before fixtures are inserted, e.g.
	// CREATE TABLE for relations other than the built-in people table.
	Setup []string `yaml:"setup,omitempty"`

	// Fixtures are inserted after Setup.
	Fixtures []Fixture `yaml:"fixtures,omitempty"`

	// Macros map tokens onto static values.
	Macros map[string]any `yaml:"macros,omitempty"`

	// Query is the spec under test.
	Query filter.QuerySpec `yaml:"query"`

	// Assertions validate the outcome.
	Assertions []Assertion `yaml:"assertions"`
}

// Fixture is a set of rows for one table.
type Fixture struct {
	Table string           `yaml:"table"`
	Rows  []map[string]any `yaml:"rows"`
}

// Assertion validates one aspect of the outcome.
type Assertion struct {
	// Type specifies the assertion type, one of the Assert constants.
	Type string `yaml:"type"`

	// SQL is the expected fragment (used by where, order_by).
	SQL string `yaml:"sql,omitempty"`

	// Count is the expected total (used by total).
	Count *int64 `yaml:"count,omitempty"`

	// Keys are the expected key values of the page, in order (used by
	// page_keys). An empty list asserts an empty page.
	Keys []any `yaml:"keys,omitempty"`

	// Key selects a row and Expect lists fields it must hold (used by row).
	// Subset match - only specified fields are validated.
	Key    any            `yaml:"key,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`

	// Code is the expected filter error code (used by error).
	Code filter.ErrorCode `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertWhere    = "where"
	AssertOrderBy  = "order_by"
	AssertTotal    = "total"
	AssertPageKeys = "page_keys"
	AssertRow      = "row"
	AssertError    = "error"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// FindScenarios returns the scenario files under dir, sorted. A path that
// names a file is returned as is.
func FindScenarios(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ext := filepath.Ext(p); !d.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, p)
		}
		return nil
	})
	slices.Sort(files)
	return files, err
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Table == "" {
		return fmt.Errorf("table is required")
	}

	if s.Key == "" {
		return fmt.Errorf("key is required")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, f := range s.Fixtures {
		if !validIdentifier.MatchString(f.Table) {
			return fmt.Errorf("fixtures[%d]: invalid table name %q", i, f.Table)
		}
		for j, row := range f.Rows {
			if len(row) == 0 {
				return fmt.Errorf("fixtures[%d].rows[%d]: row is empty", i, j)
			}
			for col := range row {
				if !validIdentifier.MatchString(col) {
					return fmt.Errorf("fixtures[%d].rows[%d]: invalid column name %q", i, j, col)
				}
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertWhere, AssertOrderBy:
		if a.SQL == "" {
			return fmt.Errorf("assertions[%d]: sql is required for %s", index, a.Type)
		}
	case AssertTotal:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for total", index)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for total", index)
		}
	case AssertPageKeys:
		// nil and empty both assert an empty page
	case AssertRow:
		if a.Key == nil {
			return fmt.Errorf("assertions[%d]: key is required for row", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for row", index)
		}
	case AssertError:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// expectsError reports whether the scenario asserts a failure.
func (s *Scenario) expectsError() bool {
	return slices.ContainsFunc(s.Assertions, func(a Assertion) bool { return a.Type == AssertError })
}
