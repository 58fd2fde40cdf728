// Package app loads a description into a region and evaluates one field,
// independent of the command line that configures it.
package app
