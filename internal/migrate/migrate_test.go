package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesOrdered(t *testing.T) {
	names, err := Files()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_init.sql", names[0])
	assert.IsNonDecreasing(t, names)
}

func TestInitDeclaresOverlapConstraint(t *testing.T) {
	b, err := files.ReadFile("0001_init.sql")
	require.NoError(t, err)
	sql := string(b)
	assert.Contains(t, sql, "btree_gist")
	assert.Contains(t, sql, "EXCLUDE USING gist")
	assert.Contains(t, sql, "tstzrange(start_at, end_at, '[)') WITH &&")
	assert.Contains(t, sql, "WHERE (status = 'confirmed')")
}
