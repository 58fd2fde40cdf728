// Package dag orders named definitions by their dependencies.
//
// Descriptions list fields in any order and may refer to fields defined
// further down. Before a description is applied, its fields are added to a
// Graph with an edge from every source to the field that uses it, and
// TopologicalOrder yields an order in which every field comes after its
// sources. Ties are broken by name so the order is stable between runs.
package dag
