package itemmodel

// Zones holds the four LCN boundaries that partition the volume into three contiguous regions:
// directories Z0=[Zones[0],Zones[1]), regular files Z1=[Zones[1],Zones[2]), space-hogs
// Z2=[Zones[2],Zones[3]). Zones[0] is always 0; Zones[3] is bounded by total_clusters, though
// some phases only ever iterate the first three entries and treat the volume end as implicit
// (§9 design note on zones_[3]).
type Zones [4]LCN

// ZoneOf returns the zone index (0, 1 or 2) that lcn falls into. An lcn at or beyond Zones[2]
// is treated as zone 2 (space-hogs) even past Zones[3], since the space-hog zone has no upper
// bound other than the volume end.
func (z Zones) ZoneOf(lcn LCN) int {
	switch {
	case lcn < z[1]:
		return 0
	case lcn < z[2]:
		return 1
	default:
		return 2
	}
}

// Start returns the starting LCN of zone z (0, 1 or 2).
func (z Zones) Start(zone int) LCN { return z[zone] }

// End returns the ending LCN of zone z (0, 1 or 2); for zone 2 this is z[3], the volume end.
func (z Zones) End(zone int) LCN { return z[zone+1] }
