// Package repomanager wires the metadata store: it opens the database,
// runs migrations, and hands out repositories.
package repomanager

import (
	"database/sql"

	"github.com/dmitrijs2005/filedrop/internal/server/repositories/shares"
)

type RepositoryManager interface {
	Conn() *sql.DB
	Shares() shares.Repository
	Close() error
}
