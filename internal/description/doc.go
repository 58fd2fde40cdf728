// Package description reads and writes field definitions as HCL.
//
// A description lists mesh elements, nodes with their parameter values,
// nodesets and fields:
//
//	element {
//	  id        = 1
//	  dimension = 2
//	}
//
//	node {
//	  id     = 1
//	  values = { temperature = [12.5] }
//	}
//
//	nodeset "inlet" {
//	  node { id = 1 }
//	}
//
//	field "mean_t" {
//	  type          = "nodeset_mean"
//	  source_fields = ["t"]
//	  nodeset       = "inlet"
//	}
//
// Every field block names a registered field type. Attributes other than
// type, source_fields, managed and component_names are handed to the type's
// decoder. Fields may refer to fields defined later in the same description
// or already present in the region; they are created in dependency order
// inside a single change batch, so observers see one notification.
//
// # Writing
//
// Write renders the mesh and every field of a region back into the same
// grammar. Loading the output into an empty region reproduces fields with
// the same command strings.
package description
