package migrations

import "embed"

// The schema ships inside the binary so a fresh deployment needs no
// external migration files.

//go:embed postgres/*.sql
var PostgresFS embed.FS

//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
