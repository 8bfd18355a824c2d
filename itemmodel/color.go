package itemmodel

// Color enumerates the cluster states an observer's draw_cluster callback can paint, grounded
// on the original DiskColorMap's per-cluster bit set (empty/allocated/unfragmented/unmovable/
// fragmented/busy/mft/spacehog). Kept here so any observer implementation derives the same
// color for the same item state instead of re-deriving the precedence rules itself.
type Color int

const (
	ColorEmpty Color = iota
	ColorAllocated
	ColorUnfragmented
	ColorFragmented
	ColorUnmovable
	ColorMft
	ColorSpaceHog
	ColorDirectory
	ColorBusy
)

// ColorOf returns the color an item should be painted with, given its current flags. Precedence
// (highest first) follows the original DiskColorMap bit priority: busy > unmovable > mft >
// directory > space-hog > fragmented > unfragmented.
func ColorOf(it *Item, busy, isMft bool) Color {
	switch {
	case busy:
		return ColorBusy
	case it.IsUnmovable:
		return ColorUnmovable
	case isMft:
		return ColorMft
	case it.IsDir:
		return ColorDirectory
	case it.IsHog:
		return ColorSpaceHog
	case it.IsFragmented():
		return ColorFragmented
	default:
		return ColorUnfragmented
	}
}
