package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/FranksOps/scout/internal/placement"
)

// VariantCount is the number of query strings Build produces per pair.
const VariantCount = 6

// VariantLabels names each Build variant, index for index.
var VariantLabels = [VariantCount]string{
	"General search",
	"General search (repeat)",
	"Local and commercial domains",
	"NGO & Govt internships",
	"Graduate trainee tracks",
	"City-focused internships",
}

var (
	ErrEmptySector        = errors.New("sector must not be empty")
	ErrEmptyPlacementType = errors.New("placement type must not be empty")
)

// Builder turns a (sector, placement type, region) triple into search queries
// using fixed templates. The zero value is not useful; use DefaultBuilder.
type Builder struct {
	Country string
	Year    string
	// SiteDomains restricts variant 3 to these TLDs / suffixes.
	SiteDomains []string
	// OrgGovSites restricts variant 4 to these site: filters.
	OrgGovSites []string
	Cities      []string
}

// DefaultBuilder targets Ugandan placements for the 2025 intake.
func DefaultBuilder() *Builder {
	return &Builder{
		Country:     "Uganda",
		Year:        "2025",
		SiteDomains: []string{".ug", ".com", ".org", ".net", ".dev", ".co.ug", ".ac.ug"},
		OrgGovSites: []string{"org", "gov", "org.ug", "go.ug"},
		Cities:      []string{"Kampala", "Entebbe", "Mbarara", "Jinja"},
	}
}

// Build returns the query variants for one pair, in order: plain, plain again,
// domain-restricted, org/gov-restricted, graduate-trainee with job boards
// excluded, and city-list. The region, when set, is appended verbatim to the
// first four.
func (b *Builder) Build(sector placement.Sector, placementType placement.PlacementType, region string) ([]string, error) {
	s := strings.TrimSpace(string(sector))
	if s == "" {
		return nil, ErrEmptySector
	}
	if strings.TrimSpace(string(placementType)) == "" {
		return nil, ErrEmptyPlacementType
	}

	base := fmt.Sprintf(`%s "%s" %s %s`, b.Country, sector, placementType, b.Year)
	regionPart := ""
	if region != "" {
		regionPart = " " + region
	}

	sites := make([]string, len(b.OrgGovSites))
	for i, site := range b.OrgGovSites {
		sites[i] = "site:" + site
	}

	return []string{
		base + regionPart,
		base + regionPart,
		base + regionPart + " site:(" + strings.Join(b.SiteDomains, " OR ") + ")",
		base + regionPart + " (" + strings.Join(sites, " OR ") + ")",
		fmt.Sprintf("%s graduate trainee %s %s -job-boards", sector, b.Country, b.Year),
		base + " (" + strings.Join(b.Cities, " OR ") + ")",
	}, nil
}
