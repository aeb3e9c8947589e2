package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/VIDA-NYU/openclean-geo/pkg/zipcode"
)

// openStore opens the gazetteer store configured under store.*.
func openStore(ctx context.Context) (zipcode.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.Store.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, eris.Wrapf(err, "store: create %s", dir)
			}
		}
		return zipcode.NewSQLite(cfg.Store.Path)
	case "postgres":
		return zipcode.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Store.Driver)
	}
}
