package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// diagramDocument mirrors the consumption diagram TOML file, which carries
// a 24-hour base load per weekday.
type diagramDocument struct {
	ConsumptionDiagram struct {
		Monday    []float64 `toml:"monday"`
		Tuesday   []float64 `toml:"tuesday"`
		Wednesday []float64 `toml:"wednesday"`
		Thursday  []float64 `toml:"thursday"`
		Friday    []float64 `toml:"friday"`
		Saturday  []float64 `toml:"saturday"`
		Sunday    []float64 `toml:"sunday"`
	} `toml:"consumption_diagram"`
}

// LoadDiagram loads the household consumption diagram file.
func LoadDiagram(path string) (*Diagram, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read consumption diagram: %w", err)
	}

	var doc diagramDocument
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse consumption diagram: %w", err)
	}

	days := [][]float64{
		doc.ConsumptionDiagram.Monday,
		doc.ConsumptionDiagram.Tuesday,
		doc.ConsumptionDiagram.Wednesday,
		doc.ConsumptionDiagram.Thursday,
		doc.ConsumptionDiagram.Friday,
		doc.ConsumptionDiagram.Saturday,
		doc.ConsumptionDiagram.Sunday,
	}

	names := []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

	var diagram Diagram
	for i, day := range days {
		if len(day) != 24 {
			return nil, fmt.Errorf("consumption_diagram.%s must have 24 values, got %d", names[i], len(day))
		}
		copy(diagram[i][:], day)
	}

	return &diagram, nil
}
