package param

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Element is one TOC entry
type Element struct {
	ID       uint16 `yaml:"id"`
	Group    string `yaml:"group"`
	Name     string `yaml:"name"`
	Type     Type   `yaml:"type"`
	ReadOnly bool   `yaml:"readonly,omitempty"`
}

func (e Element) FullName() string {
	return e.Group + "." + e.Name
}

// TOC maps full parameter names to their elements
type TOC struct {
	CRC      uint32
	elements map[string]Element
}

func NewTOC(crc uint32, elements []Element) *TOC {
	toc := &TOC{
		CRC:      crc,
		elements: make(map[string]Element, len(elements)),
	}
	for _, e := range elements {
		toc.elements[e.FullName()] = e
	}
	return toc
}

func (t *TOC) Lookup(name string) (Element, bool) {
	e, ok := t.elements[name]
	return e, ok
}

func (t *TOC) Len() int {
	return len(t.elements)
}

// parseTOCItem decodes a TOC v2 item reply body: id, type, "group\0name\0"
func parseTOCItem(data []byte) (e Element, err error) {
	if len(data) < 5 {
		return e, fmt.Errorf("short toc item: %d bytes", len(data))
	}
	e.ID = uint16(data[0]) | uint16(data[1])<<8
	e.Type = Type(data[2] & typeMask)
	e.ReadOnly = data[2]&flagReadOnly != 0
	names := bytes.Split(data[3:], []byte{0})
	if len(names) < 2 {
		return e, fmt.Errorf("malformed toc item %d", e.ID)
	}
	e.Group, e.Name = string(names[0]), string(names[1])
	return
}

// Cache persists TOCs keyed by CRC so reconnecting to the same firmware
// skips the download
type Cache interface {
	Load(crc uint32) ([]Element, error)
	Store(crc uint32, elements []Element) error
}

var ErrCacheMiss = errors.New("toc cache miss")

// FileCache keeps one YAML file per TOC CRC in Dir
type FileCache struct {
	Dir string
}

func (c FileCache) path(crc uint32) string {
	return filepath.Join(c.Dir, fmt.Sprintf("%08X.yml", crc))
}

func (c FileCache) Load(crc uint32) ([]Element, error) {
	f, err := os.Open(c.path(crc))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	defer f.Close()
	var elements []Element
	if err = yaml.NewDecoder(f).Decode(&elements); err != nil {
		return nil, err
	}
	return elements, nil
}

func (c FileCache) Store(crc uint32, elements []Element) error {
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return err
	}
	f, err := os.Create(c.path(crc))
	if err != nil {
		return err
	}
	defer f.Close()
	logrus.Debugf("caching toc %08X (%d params) in %s", crc, len(elements), c.Dir)
	return yaml.NewEncoder(f).Encode(elements)
}
