package container

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"tag-sync/core/codec"
	"tag-sync/core/pointer"
	"tag-sync/core/tags"

	"gopkg.in/yaml.v3"
)

// Manifest is the YAML index describing a container file.
type Manifest struct {
	// Name identifies the container; defaults to the file name without extension.
	Name     string          `yaml:"name,omitempty"`
	Endian   string          `yaml:"endian"`
	Mode     string          `yaml:"mode,omitempty"`
	Pointers pointer.Context `yaml:"pointers"`
	Layouts  *codec.Layouts  `yaml:"layouts,omitempty"`
	Strings  []string        `yaml:"strings"`
	Records  []RecordEntry   `yaml:"records"`
}

// RecordEntry is one record of the manifest.
type RecordEntry struct {
	Index uint32 `yaml:"index"`
	Group string `yaml:"group"`
	Name  string `yaml:"name"`
	Meta  int64  `yaml:"meta"`
}

// ReadManifest decodes a manifest.
func ReadManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// LoadManifest reads a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadManifest(f)
}

// Save writes the manifest to path.
func (m *Manifest) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Env builds the codec environment described by the manifest.
func (m *Manifest) Env() (codec.Env, error) {
	var order binary.ByteOrder
	switch m.Endian {
	case "", "little":
		order = binary.LittleEndian
	case "big":
		order = binary.BigEndian
	default:
		return codec.Env{}, fmt.Errorf("unknown endian %q", m.Endian)
	}

	mode, err := codec.ParseMode(m.Mode)
	if err != nil {
		return codec.Env{}, err
	}

	layouts := codec.DefaultLayouts()
	if m.Layouts != nil {
		layouts = *m.Layouts
	}

	records := make([]*tags.Record, 0, len(m.Records))
	for _, e := range m.Records {
		records = append(records, &tags.Record{
			Index: tags.DatumIndex(e.Index),
			Group: e.Group,
			Name:  e.Name,
			Meta:  e.Meta,
		})
	}

	return codec.Env{
		Order:    order,
		Pointers: m.Pointers,
		Layouts:  layouts,
		Records:  tags.NewTable(records),
		Strings:  tags.NewStringTable(m.Strings),
		Mode:     mode,
	}, nil
}
