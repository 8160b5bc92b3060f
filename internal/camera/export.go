package camera

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Document is the YAML form of a camera path consumed by the renderer
type Document struct {
	RecordID  string     `yaml:"recordId"`
	Duration  float64    `yaml:"duration"`
	Keyframes []Keyframe `yaml:"keyframes"`
}

// Document returns the exportable form of the path
func (p *Path) Document(recordID string) Document {
	return Document{
		RecordID:  recordID,
		Duration:  p.Duration(),
		Keyframes: p.Keyframes(),
	}
}

// WriteYAML encodes doc to w
func WriteYAML(w io.Writer, doc Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode camera path: %w", err)
	}
	return enc.Close()
}

// ReadYAML decodes a camera path document
func ReadYAML(r io.Reader) (Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("failed to decode camera path: %w", err)
	}
	return doc, nil
}
