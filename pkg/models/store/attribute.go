package store

// AttributeRecord is one row of the attribute catalog (sdvattribute).
type AttributeRecord struct {
	Name            string            `yaml:"name"`
	Table           string            `yaml:"table"`
	Column          string            `yaml:"column"`
	FuzzyColumn     string            `yaml:"fuzzy_column,omitempty"`
	LogicalType     string            `yaml:"logical_type"` // Float, Integer, Choice, String
	Level           string            `yaml:"level"`        // mapunit, component, horizon, month, interpretation
	Algorithm       string            `yaml:"algorithm"`    // "Dominant Condition"
	TieBreak        string            `yaml:"tie_break"`    // Lower, Higher
	LowerLabel      string            `yaml:"lower_label,omitempty"`
	HigherLabel     string            `yaml:"higher_label,omitempty"`
	Precision       int               `yaml:"precision"`
	Unit            string            `yaml:"unit,omitempty"`
	NullReplacement *float64          `yaml:"null_replacement,omitempty"`
	NotRated        string            `yaml:"not_rated,omitempty"`
	DomainName      string            `yaml:"domain,omitempty"`
	PrimaryColumn   string            `yaml:"primary_column,omitempty"`
	SecondaryColumn string            `yaml:"secondary_column,omitempty"`
	Filters         map[string]string `yaml:"filters,omitempty"`
}

// DomainEntry is one legal value of a class domain (sdvdomain).
type DomainEntry struct {
	Sequence    int    `yaml:"sequence"`
	Value       string `yaml:"value"`
	Description string `yaml:"description,omitempty"`
}
