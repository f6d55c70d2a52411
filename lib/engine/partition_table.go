package engine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPartitionEntries is the capacity of the default partition in entries.
// It matches a 24 KB partition: 6 pages of 126 entries, one page kept free for
// garbage collection.
const DefaultPartitionEntries = 630

// PartitionSpec is one row of a partition table.
type PartitionSpec struct {
	// Name of the partition (e.g. "nvs")
	Name string `yaml:"name"`
	// Entries is the capacity of the partition in entries (items + namespaces)
	Entries int `yaml:"entries"`
}

// partitionTableFile is the YAML layout of a partition table file:
//
//	partitions:
//	  - name: nvs
//	    entries: 630
//	  - name: factory
//	    entries: 126
type partitionTableFile struct {
	Partitions []PartitionSpec `yaml:"partitions"`
}

// DefaultPartitionTable returns a partition table containing only the default partition.
func DefaultPartitionTable() []PartitionSpec {
	return []PartitionSpec{{Name: DefaultPartition, Entries: DefaultPartitionEntries}}
}

// ParsePartitionTable parses and validates a YAML partition table.
func ParsePartitionTable(data []byte) ([]PartitionSpec, error) {
	var file partitionTableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse partition table: %w", err)
	}
	if err := ValidatePartitionTable(file.Partitions); err != nil {
		return nil, err
	}
	return file.Partitions, nil
}

// LoadPartitionTable reads a YAML partition table from a file.
func LoadPartitionTable(path string) ([]PartitionSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read partition table %s: %w", path, err)
	}
	return ParsePartitionTable(data)
}

// ValidatePartitionTable checks that a partition table is non-empty, that names are
// unique and valid and that every partition can hold at least one namespace and one item.
func ValidatePartitionTable(table []PartitionSpec) error {
	if len(table) == 0 {
		return fmt.Errorf("partition table is empty")
	}
	seen := make(map[string]bool, len(table))
	for _, spec := range table {
		if spec.Name == "" || len(spec.Name) > MaxNameLength {
			return fmt.Errorf("invalid partition name %q", spec.Name)
		}
		if seen[spec.Name] {
			return fmt.Errorf("duplicate partition %q", spec.Name)
		}
		if spec.Entries < 2 {
			return fmt.Errorf("partition %q must hold at least 2 entries, got %d", spec.Name, spec.Entries)
		}
		seen[spec.Name] = true
	}
	return nil
}
