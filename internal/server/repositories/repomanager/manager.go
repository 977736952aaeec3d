package repomanager

import (
	"context"
	"database/sql"

	"github.com/vmaksimov/homesense/internal/dbx"
	"github.com/vmaksimov/homesense/internal/server/repositories/devices"
	"github.com/vmaksimov/homesense/internal/server/repositories/readings"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Devices(db dbx.DBTX) devices.Repository
	Readings(db dbx.DBTX) readings.Repository
}
