package grid

// NoOccupant is the occupant id of an empty tile
const NoOccupant = -1

// Tile is the addressable unit of the grid
type Tile struct {
	Coord    Coord  `json:"coord"`
	Occupant int    `json:"occupant"`
	Char     string `json:"char"`
	Seq      string `json:"seq"`
	// Now counts label changes. Requests carry the value the requester last
	// saw so the authority can refuse moves made against a stale label.
	Now    int `json:"now"`
	Health int `json:"health"`
}

// IsOccupied reports whether a player stands on the tile
func (t *Tile) IsOccupied() bool {
	return t.Occupant != NoOccupant
}

// reset clears occupancy, label and pickup. The update counter is kept.
func (t *Tile) reset() {
	t.Occupant = NoOccupant
	t.Char = ""
	t.Seq = ""
	t.Health = 0
}
