package generator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Dataset file names shared by the generator and the ingest command.
const (
	EntitiesFile = "entities.json"
	LinksFile    = "links.json"
)

// WriteDataset serializes the dataset into entities.json and links.json under the provided directory.
func WriteDataset(dataset Dataset, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if err := writeJSON(filepath.Join(dir, EntitiesFile), dataset.Entities); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, LinksFile), dataset.Links); err != nil {
		return err
	}
	return nil
}

// ReadDataset loads a dataset previously written by WriteDataset.
func ReadDataset(dir string) (Dataset, error) {
	var ds Dataset
	if err := readJSON(filepath.Join(dir, EntitiesFile), &ds.Entities); err != nil {
		return Dataset{}, err
	}
	if err := readJSON(filepath.Join(dir, LinksFile), &ds.Links); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

func writeJSON(path string, data any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encode json for %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, target any) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
