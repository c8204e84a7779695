// Package formats reads and writes the MMD file formats: PMX 2.0 models and
// VMD motions.
package formats
