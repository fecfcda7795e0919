package catalog

// ClassStatistics aggregates the trips of one vehicle class.
type ClassStatistics struct {
	TripCount       int     `json:"tripCount"`
	TotalDistanceKm float64 `json:"totalDistanceKm"`
	TotalEnergyWh   float64 `json:"totalEnergyWh"`
	AvgEnergyPerKm  float64 `json:"avgEnergyPerKm"`
}

// Statistics is keyed by vehicle class.
type Statistics struct {
	PerClass map[string]ClassStatistics `json:"perClass"`
}

// Statistics computes per-class totals. AvgEnergyPerKm is 0 when a class has no distance.
func (c *Catalog) Statistics() Statistics {
	out := Statistics{PerClass: make(map[string]ClassStatistics, len(c.classes))}
	for name, cl := range c.classes {
		var s ClassStatistics
		s.TripCount = len(cl.Trips)
		for _, t := range cl.Trips {
			s.TotalDistanceKm += t.DistanceKm
			s.TotalEnergyWh += t.EnergyConsumedWh
		}
		if s.TotalDistanceKm > 0 {
			s.AvgEnergyPerKm = s.TotalEnergyWh / s.TotalDistanceKm
		}
		out.PerClass[name] = s
	}
	return out
}
