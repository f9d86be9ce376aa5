package gasera

// GasInfo describes a gas component by its CAS registry number.
type GasInfo struct {
	CAS     string `yaml:"cas"`
	Name    string `yaml:"name"`
	Formula string `yaml:"formula"`
	Color   string `yaml:"color"`
}

// DefaultGasColor is the chart color of gases missing from the table.
const DefaultGasColor = "#999"

var gasTable = map[string]GasInfo{
	"74-82-8":    {CAS: "74-82-8", Name: "Methane", Formula: "CH₄", Color: "#1f77b4"},
	"124-38-9":   {CAS: "124-38-9", Name: "Carbon Dioxide", Formula: "CO₂", Color: "#ff7f0e"},
	"7732-18-5":  {CAS: "7732-18-5", Name: "Water Vapor", Formula: "H₂O", Color: "#2ca02c"},
	"630-08-0":   {CAS: "630-08-0", Name: "Carbon Monoxide", Formula: "CO", Color: "#d62728"},
	"10024-97-2": {CAS: "10024-97-2", Name: "Nitrous Oxide", Formula: "N₂O", Color: "#9467bd"},
	"7664-41-7":  {CAS: "7664-41-7", Name: "Ammonia", Formula: "NH₃", Color: "#8c564b"},
	"7446-09-5":  {CAS: "7446-09-5", Name: "Sulfur Dioxide", Formula: "SO₂", Color: "#e377c2"},
	"7782-44-7":  {CAS: "7782-44-7", Name: "Oxygen", Formula: "O₂", Color: "#7f7f7f"},
	"75-07-0":    {CAS: "75-07-0", Name: "Acetaldehyde", Formula: "C₂H₄O", Color: "#bcbd22"},
	"64-17-5":    {CAS: "64-17-5", Name: "Ethanol", Formula: "C₂H₆O", Color: "#17becf"},
	"67-56-1":    {CAS: "67-56-1", Name: "Methanol", Formula: "CH₄O", Color: "#a05d56"},
}

// LookupGas returns the table entry for cas.
func LookupGas(cas string) (GasInfo, bool) {
	info, ok := gasTable[cas]
	return info, ok
}

// GasColor returns the chart color for cas, DefaultGasColor for unknown gases.
func GasColor(cas string) string {
	if info, ok := gasTable[cas]; ok {
		return info.Color
	}

	return DefaultGasColor
}

// GasLabel returns "Name (Formula, CAS)" for known gases and the bare CAS number otherwise.
func GasLabel(cas string) string {
	info, ok := gasTable[cas]
	if !ok {
		return cas
	}

	return info.Name + " (" + info.Formula + ", " + cas + ")"
}
