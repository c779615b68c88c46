// Package formats provides parsers for legacy binary game asset formats.
package formats
