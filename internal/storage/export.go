package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/ringmd/internal/experiment"
)

type ExportData struct {
	RunMetadata
	Samples []experiment.Sample `json:"samples"`
}

// ExportJSON writes a stored run as one indented JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	samples, err := s.LoadSamples(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{RunMetadata: *meta, Samples: samples})
}
