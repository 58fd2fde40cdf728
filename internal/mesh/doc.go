// Package mesh defines the contracts the field engine needs from the
// finite-element mesh layer.
//
// # Why Mesh Is Only an Interface
//
// The engine does not own mesh topology or node storage. It needs three
// things from whoever does:
//   - **Location supplier:** elements and nodes that can be turned into a
//     location.Location
//   - **Nodesets:** named groups of nodes that reduction fields fold over
//   - **Definedness query:** whether a stored parameter has a value at a node,
//     answered without evaluating anything
//
// The reference implementation lives in internal/inmemorymesh.
package mesh
