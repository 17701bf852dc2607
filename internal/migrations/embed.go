package migrations

import "embed"

// FS holds the forward/reverse scripts, one directory per dialect.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
