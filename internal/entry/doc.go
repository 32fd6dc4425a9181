// Package entry defines the data model shared across the client: log
// positions, encoded entries as they travel to and from the node, decoded
// operations, and the entry records the materializer folds.
package entry
