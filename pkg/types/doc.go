// Package types defines the vocabulary shared by the tabula packages: the
// Columns collaborator interface, sort keys, change notifications, refresh
// strategies, CLI configuration and the standard errors.
package types
