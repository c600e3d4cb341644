// Package db embeds the storefront schema migrations and the default catalog.
package db

import (
	"embed"
	"io/fs"
	"path"
	"sort"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SeedProducts is the catalog loaded by storefront-ctl seed when no products
// file is given.
//
//go:embed seed/products.json
var SeedProducts []byte

// Migration is one schema script.
type Migration struct {
	Name string
	SQL  string
}

// Migrations returns the embedded scripts ordered by file name. Every script
// is idempotent, so applying the full list to an existing database is safe.
func Migrations() ([]Migration, error) {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		data, err := migrations.ReadFile(name)
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{Name: path.Base(name), SQL: string(data)})
	}
	return out, nil
}
