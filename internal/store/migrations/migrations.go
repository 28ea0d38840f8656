// Package migrations holds the schema migrations. They register with
// goose at init time and are embedded so the store can run them from
// any working directory.
package migrations

import "embed"

//go:embed 0*.go
var FS embed.FS
