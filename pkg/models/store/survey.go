package store

// Tables and key columns of the soil survey schema the flattener joins.
const (
	MapUnitTable         = "mapunit"
	MapUnitKey           = "mukey"
	MapUnitAreaSymbol    = "areasymbol"
	MapUnitSymbol        = "musym"
	MapUnitName          = "muname"
	ComponentTable       = "component"
	ComponentKey         = "cokey"
	ComponentName        = "compname"
	ComponentPercent     = "comppct_r"
	ComponentMajor       = "majcompflag"
	ComponentKind        = "compkind"
	HorizonTable         = "chorizon"
	HorizonKey           = "chkey"
	HorizonTop           = "hzdept_r"
	HorizonBottom        = "hzdepb_r"
	MonthTable           = "comonth"
	MonthKey             = "comonthkey"
	MonthSequence        = "monthseq"
	InterpretationTable  = "cointerp"
	InterpretationKey    = "cointerpkey"
	InterpretationDepth  = "ruledepth"
	InterpretationRule   = "mrulename"
	CropYieldTable       = "cocropyld"
	AttributeCatalogName = "sdvattribute"
	DomainCatalogName    = "sdvdomain"
)
