package models

// Location represents a geographical location with latitude and longitude coordinates.
type Location struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lon float64 `bson:"lon" json:"lon"`
}

// Position is a planar trip coordinate as recorded in the trip catalog.
// X maps to latitude and Y to longitude.
type Position struct {
	X float64 `bson:"x" json:"x" yaml:"x"`
	Y float64 `bson:"y" json:"y" yaml:"y"`
}

// Location converts the position to a latitude/longitude pair.
func (p Position) Location() Location {
	return Location{Lat: p.X, Lon: p.Y}
}
