package sqlite

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgstar/pgstar/pkg/catalog"
	"github.com/pgstar/pgstar/pkg/catalogs/memory"
)

func openSeeded(t *testing.T) *Catalog {
	t.Helper()
	ctx := context.Background()
	c, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Seed(ctx))
	return c
}

func TestMigrationsApplyOnOpen(t *testing.T) {
	c := openSeeded(t)

	version, err := c.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

func TestSeededLookups(t *testing.T) {
	c := openSeeded(t)

	l, err := c.LookupLayout(pgtype.Int4OID)
	require.NoError(t, err)
	assert.Equal(t, int16(4), l.Len)
	assert.Equal(t, catalog.CategoryNumeric, l.Category)

	elem, err := c.LookupElementType(pgtype.Int4ArrayOID)
	require.NoError(t, err)
	assert.Equal(t, uint32(pgtype.Int4OID), elem)

	base, name, err := c.LookupDomainBase(memory.DomainFloat8ArrayOID)
	require.NoError(t, err)
	assert.Equal(t, uint32(pgtype.Float8ArrayOID), base)
	assert.Equal(t, "pgstar_float8array", name)
}

func TestUnknownOID(t *testing.T) {
	c := openSeeded(t)

	_, err := c.LookupLayout(424242)
	var lookupErr *catalog.LookupError
	require.ErrorAs(t, err, &lookupErr)
}

func TestRegisterAndLookupRowType(t *testing.T) {
	c := openSeeded(t)
	ctx := context.Background()

	fields := []catalog.Field{
		{Name: "x", TypeOID: pgtype.Int4OID},
		{Name: "y", TypeOID: pgtype.TextOID},
	}
	require.NoError(t, c.RegisterRowType(ctx, 77001, "point_label", fields))

	got, err := c.LookupRowFields(77001)
	require.NoError(t, err)
	assert.Equal(t, fields, got)
}

func TestSeedIsIdempotent(t *testing.T) {
	c := openSeeded(t)
	require.NoError(t, c.Seed(context.Background()))

	l, err := c.LookupLayout(pgtype.BoolOID)
	require.NoError(t, err)
	assert.True(t, l.ByVal)
}
