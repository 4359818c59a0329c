// Package sqlite provides a persistent catalog backed by an embedded SQLite
// database, with a schema shaped after the engine's own type and attribute
// tables. Text input/output delegates to the builtin registry, since text
// parsing is engine logic rather than catalog data.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/pgstar/pgstar/pkg/catalog"
	"github.com/pgstar/pgstar/pkg/catalogs/memory"
	"github.com/pgstar/pgstar/pkg/datum"
)

//go:embed migrations/*.sql
var migrations embed.FS

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("run catalog migrations: %w", err)
	}
	return nil
}

// Catalog reads type metadata from SQLite.
type Catalog struct {
	db     *sql.DB
	textIO *memory.Catalog
}

// Open opens (or creates) the catalog database at path. Use ":memory:" for an
// ephemeral catalog.
func Open(ctx context.Context, path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}
	if path == ":memory:" {
		// Every pool connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Catalog{db: db, textIO: memory.New()}, nil
}

// Close releases the underlying database handle.
func (c *Catalog) Close() error { return c.db.Close() }

// MigrationVersion reports the schema version the catalog database is at.
func (c *Catalog) MigrationVersion() (int64, error) {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite"); err != nil {
		return 0, fmt.Errorf("set migration dialect: %w", err)
	}
	return goose.GetDBVersion(c.db)
}

// Seed copies the builtin registry into the database. Existing rows are
// replaced, so seeding is idempotent.
func (c *Catalog) Seed(ctx context.Context) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	typeStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO types
		(oid, name, len, byval, align, category, is_domain, elem_oid, domain_base)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	defer typeStmt.Close()

	attrStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO attributes (rel_oid, num, name, type_oid)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	defer attrStmt.Close()

	for _, e := range c.textIO.Entries() {
		_, err := typeStmt.ExecContext(ctx,
			e.OID, e.Name, e.Layout.Len, e.Layout.ByVal,
			string(e.Layout.Align), string(e.Layout.Category),
			e.Layout.IsDomain, e.ElemOID, e.DomainBase)
		if err != nil {
			return fmt.Errorf("seed type %s: %w", e.Name, err)
		}
		for i, f := range e.Fields {
			if _, err := attrStmt.ExecContext(ctx, e.OID, i+1, f.Name, f.TypeOID); err != nil {
				return fmt.Errorf("seed fields of %s: %w", e.Name, err)
			}
		}
	}
	return tx.Commit()
}

type typeRow struct {
	layout     catalog.Layout
	elemOID    uint32
	domainBase uint32
	name       string
}

func (c *Catalog) lookup(oid uint32) (*typeRow, error) {
	var (
		r        typeRow
		align    string
		category string
	)
	err := c.db.QueryRow(`
		SELECT name, len, byval, align, category, is_domain, elem_oid, domain_base
		FROM types WHERE oid = ?`, oid).
		Scan(&r.name, &r.layout.Len, &r.layout.ByVal, &align, &category,
			&r.layout.IsDomain, &r.elemOID, &r.domainBase)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &catalog.LookupError{OID: oid, What: "unknown type"}
	}
	if err != nil {
		return nil, fmt.Errorf("catalog query: %w", err)
	}
	if align != "" {
		r.layout.Align = align[0]
	}
	if category != "" {
		r.layout.Category = catalog.Category(category[0])
	}
	return &r, nil
}

// LookupLayout implements catalog.Catalog.
func (c *Catalog) LookupLayout(oid uint32) (catalog.Layout, error) {
	r, err := c.lookup(oid)
	if err != nil {
		return catalog.Layout{}, err
	}
	return r.layout, nil
}

// LookupElementType implements catalog.Catalog.
func (c *Catalog) LookupElementType(arrayOID uint32) (uint32, error) {
	r, err := c.lookup(arrayOID)
	if err != nil {
		return 0, err
	}
	return r.elemOID, nil
}

// LookupDomainBase implements catalog.Catalog.
func (c *Catalog) LookupDomainBase(domainOID uint32) (uint32, string, error) {
	r, err := c.lookup(domainOID)
	if err != nil {
		return 0, "", err
	}
	if r.domainBase == 0 {
		return 0, "", &catalog.LookupError{OID: domainOID, What: "not a domain"}
	}
	return r.domainBase, r.name, nil
}

// LookupRowFields implements catalog.Catalog.
func (c *Catalog) LookupRowFields(compositeOID uint32) ([]catalog.Field, error) {
	if _, err := c.lookup(compositeOID); err != nil {
		return nil, err
	}
	rows, err := c.db.Query(`
		SELECT name, type_oid FROM attributes WHERE rel_oid = ? ORDER BY num`, compositeOID)
	if err != nil {
		return nil, fmt.Errorf("catalog query: %w", err)
	}
	defer rows.Close()

	var fields []catalog.Field
	for rows.Next() {
		var f catalog.Field
		if err := rows.Scan(&f.Name, &f.TypeOID); err != nil {
			return nil, fmt.Errorf("catalog scan: %w", err)
		}
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog rows: %w", err)
	}
	if fields == nil {
		return nil, &catalog.LookupError{OID: compositeOID, What: "not a composite type"}
	}
	return fields, nil
}

// RegisterRowType stores a composite type definition.
func (c *Catalog) RegisterRowType(ctx context.Context, oid uint32, name string, fields []catalog.Field) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("register row type: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO types (oid, name, len, byval, align, category, is_domain)
		VALUES (?, ?, -1, 0, 'd', ?, 0)`, oid, name, string(catalog.CategoryComposite))
	if err != nil {
		return fmt.Errorf("register row type %s: %w", name, err)
	}
	for i, f := range fields {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO attributes (rel_oid, num, name, type_oid) VALUES (?, ?, ?, ?)`,
			oid, i+1, f.Name, f.TypeOID)
		if err != nil {
			return fmt.Errorf("register field %s.%s: %w", name, f.Name, err)
		}
	}
	return tx.Commit()
}

// ParseText implements catalog.TextIO by delegating to the builtin registry.
func (c *Catalog) ParseText(oid uint32, text string) (datum.Datum, error) {
	return c.textIO.ParseText(oid, text)
}

// RenderText implements catalog.TextIO by delegating to the builtin registry.
func (c *Catalog) RenderText(oid uint32, d datum.Datum) (string, error) {
	return c.textIO.RenderText(oid, d)
}
