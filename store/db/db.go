// Package db bootstraps the storage driver from the profile.
package db

import (
	"github.com/pkg/errors"

	"github.com/animus-chat/animus/internal/profile"
	"github.com/animus-chat/animus/store"
	"github.com/animus-chat/animus/store/db/sqlite"
)

// NewDBDriver creates a new db driver based on the profile. Sessions are
// partitioned one database file per session key, so sqlite is the only
// supported driver.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "sqlite":
		driver, err := sqlite.NewDB(profile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create sqlite driver")
		}
		return driver, nil
	default:
		return nil, errors.Errorf("unknown db driver %q: only sqlite is supported", profile.Driver)
	}
}
