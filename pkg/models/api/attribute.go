package api

type Attribute struct {
	Name       string `json:"name"`
	Table      string `json:"table"`
	Column     string `json:"column"`
	DataType   string `json:"data_type"`
	Level      string `json:"level"`
	Method     string `json:"method"`
	TieBreak   string `json:"tie_break,omitempty"`
	Unit       string `json:"unit,omitempty"`
	Precision  int    `json:"precision"`
	DomainName string `json:"domain,omitempty"`
	// Constraint columns a request must supply values for.
	Primary   string `json:"primary_column,omitempty"`
	Secondary string `json:"secondary_column,omitempty"`
	Fuzzy     bool   `json:"fuzzy,omitempty"`
}

type Error struct {
	Error string `json:"error"`
}
