package placement

// Sector is an economic sector label used to scope search queries.
type Sector string

// PlacementType is the kind of work-experience opportunity being sought.
type PlacementType string

// DefaultSectors is the sector list a scan covers when none is configured.
var DefaultSectors = []Sector{
	"Agribusiness & Forestry",
	"Healthcare & Medical",
	"Media & ICT",
	"Finance & Commerce",
	"Tourism & Hospitality",
	"Engineering & Technical",
	"Legal & Professional Services",
}

// DefaultPlacementTypes is the placement type list a scan covers when none is configured.
var DefaultPlacementTypes = []PlacementType{
	"industrial training",
	"undergraduate internship",
	"graduate trainee",
}

// Hit is one surviving search result link, tagged with the sector, placement
// type and query that produced it.
type Hit struct {
	Sector        Sector        `json:"sector" yaml:"sector"`
	PlacementType PlacementType `json:"placement_type" yaml:"placement_type"`
	Query         string        `json:"query" yaml:"query"`
	URL           string        `json:"url" yaml:"url"`
}

// Catalog holds the sectors and placement types a scan iterates over.
// It is built once at startup and never mutated; accessors hand out copies.
type Catalog struct {
	sectors        []Sector
	placementTypes []PlacementType
}

// NewCatalog copies the given lists into a Catalog. Nil or empty lists fall back
// to the defaults.
func NewCatalog(sectors []Sector, placementTypes []PlacementType) Catalog {
	if len(sectors) == 0 {
		sectors = DefaultSectors
	}
	if len(placementTypes) == 0 {
		placementTypes = DefaultPlacementTypes
	}
	c := Catalog{
		sectors:        make([]Sector, len(sectors)),
		placementTypes: make([]PlacementType, len(placementTypes)),
	}
	copy(c.sectors, sectors)
	copy(c.placementTypes, placementTypes)
	return c
}

// DefaultCatalog returns a Catalog over DefaultSectors and DefaultPlacementTypes.
func DefaultCatalog() Catalog {
	return NewCatalog(nil, nil)
}

// Sectors returns a copy of the catalog's sectors.
func (c Catalog) Sectors() []Sector {
	out := make([]Sector, len(c.sectors))
	copy(out, c.sectors)
	return out
}

// PlacementTypes returns a copy of the catalog's placement types.
func (c Catalog) PlacementTypes() []PlacementType {
	out := make([]PlacementType, len(c.placementTypes))
	copy(out, c.placementTypes)
	return out
}

// SectorsFromStrings converts raw labels, as read from flags or config, to Sectors.
func SectorsFromStrings(raw []string) []Sector {
	out := make([]Sector, 0, len(raw))
	for _, s := range raw {
		out = append(out, Sector(s))
	}
	return out
}

// PlacementTypesFromStrings converts raw labels to PlacementTypes.
func PlacementTypesFromStrings(raw []string) []PlacementType {
	out := make([]PlacementType, 0, len(raw))
	for _, s := range raw {
		out = append(out, PlacementType(s))
	}
	return out
}
