package models

import "fmt"

// MarketRegion identifies which trading venue an instrument, prediction or
// schedule slot belongs to. The two regions run on different wall clocks:
// domestic sessions follow Asia/Seoul, foreign sessions follow
// America/New_York.
type MarketRegion uint8

const (
	RegionDomestic MarketRegion = iota
	RegionForeign
)

func (r MarketRegion) String() string {
	switch r {
	case RegionDomestic:
		return "DOMESTIC"
	case RegionForeign:
		return "FOREIGN"
	default:
		return fmt.Sprintf("MarketRegion(%d)", uint8(r))
	}
}

// Timezone returns the IANA zone name for the region's exchange.
func (r MarketRegion) Timezone() string {
	if r == RegionForeign {
		return "America/New_York"
	}
	return "Asia/Seoul"
}

// ParseRegion maps the wire/config spelling back to a MarketRegion.
func ParseRegion(s string) (MarketRegion, error) {
	switch s {
	case "DOMESTIC", "domestic":
		return RegionDomestic, nil
	case "FOREIGN", "foreign":
		return RegionForeign, nil
	}
	return RegionDomestic, fmt.Errorf("unknown market region %q", s)
}

// AllRegions lists every region the pipeline serves, in a stable order.
func AllRegions() []MarketRegion {
	return []MarketRegion{RegionDomestic, RegionForeign}
}

func (r MarketRegion) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *MarketRegion) UnmarshalText(b []byte) error {
	parsed, err := ParseRegion(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
