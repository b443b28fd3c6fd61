package cli

// Backends compiled into the binary register themselves on import.
import (
	_ "github.com/ekaya-inc/ekaya-logscope/pkg/adapters/backend/mssql"
	_ "github.com/ekaya-inc/ekaya-logscope/pkg/adapters/backend/oracle"
	_ "github.com/ekaya-inc/ekaya-logscope/pkg/adapters/backend/postgres"
	_ "github.com/ekaya-inc/ekaya-logscope/pkg/adapters/backend/sqlite"
	_ "github.com/ekaya-inc/ekaya-logscope/pkg/adapters/backend/ssh"
)
