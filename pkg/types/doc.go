// Package types defines the canvas data model (metric cards, relationships,
// groups, canvas projects), the Backend and Identity interfaces, and the
// standard error values shared by the canvas stores.
package types
