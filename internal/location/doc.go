// Package location describes "where" a field is evaluated.
//
// # Kinds
//
// A Location is one of:
//   - **Element/xi:** an element plus up to three local (xi) coordinates
//   - **Node:** a single node
//   - **Coordinates:** a raw coordinate vector with no mesh attached
//
// Every location also carries a time. Locations are plain values; the field
// cache compares them with Equal to decide whether memoized values are still
// valid.
//
// The Element and Node contracts are implemented by the mesh layer. The
// engine only needs an identifier, the element dimension and the highest
// local-coordinate derivative order the element's shape supports.
package location
