package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/climaqc/station-quality-service/internal/domain"
)

// limitsFile is the YAML shape of a variable-limits table.
type limitsFile struct {
	Variables []domain.VariableDefinition `yaml:"variables"`
}

// DefaultVariableTable returns the physical-limits table for the ten
// standard INMET daily variables. Bounds are closed intervals in the
// variable's native unit.
func DefaultVariableTable() []domain.VariableDefinition {
	return []domain.VariableDefinition{
		{Name: "PRECIPITACAO TOTAL, DIARIO (AUT)(mm)", ShortName: "Precipitação", Unit: "mm", LowerBound: 0, UpperBound: 500},
		{Name: "PRESSAO ATMOSFERICA MEDIA DIARIA (AUT)(mB)", ShortName: "Pressão", Unit: "mB", LowerBound: 900, UpperBound: 1050},
		{Name: "TEMPERATURA DO PONTO DE ORVALHO MEDIA DIARIA (AUT)(°C)", ShortName: "Temp. Orvalho", Unit: "°C", LowerBound: -50, UpperBound: 50},
		{Name: "TEMPERATURA MAXIMA, DIARIA (AUT)(°C)", ShortName: "Temp. Máxima", Unit: "°C", LowerBound: -50, UpperBound: 60},
		{Name: "TEMPERATURA MEDIA, DIARIA (AUT)(°C)", ShortName: "Temp. Média", Unit: "°C", LowerBound: -50, UpperBound: 60},
		{Name: "TEMPERATURA MINIMA, DIARIA (AUT)(°C)", ShortName: "Temp. Mínima", Unit: "°C", LowerBound: -50, UpperBound: 60},
		{Name: "UMIDADE RELATIVA DO AR, MEDIA DIARIA (AUT)(%)", ShortName: "Umidade Média", Unit: "%", LowerBound: 0, UpperBound: 100},
		{Name: "UMIDADE RELATIVA DO AR, MINIMA DIARIA (AUT)(%)", ShortName: "Umidade Mínima", Unit: "%", LowerBound: 0, UpperBound: 100},
		{Name: "VENTO, RAJADA MAXIMA DIARIA (AUT)(m/s)", ShortName: "Rajada Máxima", Unit: "m/s", LowerBound: 0, UpperBound: 100},
		{Name: "VENTO, VELOCIDADE MEDIA DIARIA (AUT)(m/s)", ShortName: "Velocidade Média", Unit: "m/s", LowerBound: 0, UpperBound: 50},
	}
}

// LoadVariableTable returns the variable definitions to validate
// against: the YAML table at path when given, otherwise the built-in
// INMET defaults. Bound sanity is the validation engine's concern; this
// only checks the file is well-formed and non-empty.
func LoadVariableTable(path string) ([]domain.VariableDefinition, error) {
	if path == "" {
		return DefaultVariableTable(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read limits file: %w", err)
	}
	return ParseVariableTable(data)
}

// ParseVariableTable parses a YAML variable-limits table.
func ParseVariableTable(data []byte) ([]domain.VariableDefinition, error) {
	var f limitsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse limits file: %w", err)
	}
	if len(f.Variables) == 0 {
		return nil, &domain.ConfigurationError{Field: "variables", Reason: "limits file defines no variables"}
	}
	return f.Variables, nil
}

// TableByName indexes a definition table by variable name, so display
// labels can be looked up without the engine.
func TableByName(defs []domain.VariableDefinition) map[string]domain.VariableDefinition {
	byName := make(map[string]domain.VariableDefinition, len(defs))
	for _, def := range defs {
		byName[def.Name] = def
		for _, alias := range def.Aliases {
			byName[alias] = def
		}
	}
	return byName
}
