// Package db provides the database driver factory.
package db

import (
	"github.com/pkg/errors"

	"github.com/glowmatch/glowmatch/internal/profile"
	"github.com/glowmatch/glowmatch/store"
	"github.com/glowmatch/glowmatch/store/db/postgres"
	"github.com/glowmatch/glowmatch/store/db/sqlite"
)

// NewDBDriver creates a new database driver based on the profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "postgres":
		return postgres.NewDB(profile)
	case "sqlite":
		return sqlite.NewDB(profile)
	default:
		return nil, errors.Errorf("unsupported database driver: %s", profile.Driver)
	}
}
