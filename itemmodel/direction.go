package itemmodel

// Direction records which way a move is conceptually headed (up toward the end of the disk, or
// down toward the start). Phases pass it to the mover, which accepts it and does not use it: it
// has no effect on the move, and it is neither logged nor passed to the observer.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}
