package settings

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// YAMLStore keeps settings in a YAML file.
type YAMLStore struct {
	Path string
}

func NewYAMLStore(path string) *YAMLStore { return &YAMLStore{Path: path} }

func (y *YAMLStore) Load() (*Raw, error) {
	data, err := os.ReadFile(y.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var r Raw
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Save writes a temp file and renames it over the target.
func (y *YAMLStore) Save(r Raw) error {
	data, err := yaml.Marshal(&r)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(y.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := y.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, y.Path)
}

var _ Store = (*YAMLStore)(nil)
