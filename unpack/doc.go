// Package unpack extracts fields from match responses and flattens keyed
// result sets into columnar frames.
package unpack
