package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ehr/hl7ingest/internal/platform/hl7v2"
)

var sampleDemographics = []hl7v2.Demographics{
	{Family: "Meier", Given: "Anna", BirthDate: "19850315", Sex: "F", Street: "Hauptstr. 5", City: "Berlin", State: "BE", Zip: "10115", Country: "DE"},
	{Family: "Schmidt", Given: "Jonas", BirthDate: "19721102", Sex: "M", Street: "Lindenweg 12", City: "Hamburg", State: "HH", Zip: "20095", Country: "DE"},
	{Family: "Novak", Given: "Eva", BirthDate: "19990720", Sex: "F", City: "München", State: "BY", Zip: "80331", Country: "DE"},
	{Family: "Okafor", Given: "Chidi", BirthDate: "20010101", Sex: "M", Street: "Ring 1", City: "Köln", State: "NW", Zip: "50667", Country: "DE"},
	{Family: "Larsen", Given: "Ida", Sex: "F"},
}

var sampleEvents = []string{"A04", "A08", "A01"}

// WriteSamples writes count generated ADT messages into dir, creating it if
// needed, and returns the written paths. Patient ids are SAMPLE001 and up;
// existing files with the same name are overwritten.
func WriteSamples(dir string, count int, at time.Time) ([]string, error) {
	if count <= 0 {
		return nil, fmt.Errorf("count must be positive, got %d", count)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	paths := make([]string, 0, count)
	for i := 0; i < count; i++ {
		d := sampleDemographics[i%len(sampleDemographics)]
		d.ID = fmt.Sprintf("SAMPLE%03d", i+1)

		data, err := hl7v2.GenerateADT(sampleEvents[i%len(sampleEvents)], d, at.Add(time.Duration(i)*time.Second))
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, fmt.Sprintf("sample_%03d%s", i+1, Extension))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
