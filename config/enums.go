package config

//go:generate go tool go-enum --marshal --names --nocase --mustparse

// Specification of requested dump output format.
// ENUM(text, yaml, ion)
type OutputFormat string

// Ext returns file name suffix for the dump output.
func (f OutputFormat) Ext() string {
	switch f {
	case OutputFormatYaml:
		return "-dump.yaml"
	case OutputFormatIon:
		return "-dump.ion"
	default:
		return "-dump.txt"
	}
}
