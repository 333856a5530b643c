// Package layout solves planar placement for planetary gear trains:
// whether a meshing angle exists at all (triangle inequality and law
// of cosines), where each planet sits, and how much free clearance the
// solved layout leaves between non-meshing gears.
package layout
