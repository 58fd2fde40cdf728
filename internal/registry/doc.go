// Package registry provides the central "glue" between field type names used
// in descriptions (e.g. "nodeset_mean") and the Go code that builds their
// cores.
//
// Each family of field types lives in its own package under modules/ and
// exposes a Module whose Register method adds its FieldTypes. During
// startup the registry is populated and validated, so a type that declares
// attributes it cannot decode is caught before any description is loaded.
package registry
