package sqltwoway

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chahine-tech/sqltwoway/pkg/dialect"
	"github.com/Chahine-tech/sqltwoway/pkg/loader"
	"github.com/Chahine-tech/sqltwoway/pkg/template"
	"github.com/Chahine-tech/sqltwoway/pkg/value"
)

func TestTemplateCacheLoadsOnceAndServesHits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "q.sql")
	require.NoError(t, os.WriteFile(path, []byte("SELECT 1"), 0o644))

	c := newTemplateCache()
	l := loader.NewLoader(dir)

	text, err := c.load("q.sql", dialect.Sqlite, l)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", text)

	// A hit survives deletion of the backing file.
	require.NoError(t, os.Remove(path))
	text, err = c.load("q.sql", dialect.Sqlite, l)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", text)
}

func TestTemplateCacheKeyedByDialect(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "q.sql"), []byte("SELECT 1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "q.oracle.sql"), []byte("SELECT 1 FROM dual"), 0o644))

	c := newTemplateCache()
	l := loader.NewLoader(dir)

	text, err := c.load("q.sql", dialect.Sqlite, l)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", text)

	text, err = c.load("q.sql", dialect.Oracle, l)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 FROM dual", text)
}

func TestTemplateCacheEvict(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "q.sql")
	require.NoError(t, os.WriteFile(path, []byte("SELECT 1"), 0o644))

	c := newTemplateCache()
	l := loader.NewLoader(dir)

	_, err := c.load("q.sql", dialect.Sqlite, l)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("SELECT 2"), 0o644))
	c.evict("q.sql")

	text, err := c.load("q.sql", dialect.Sqlite, l)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 2", text)
}

func TestTemplateCacheConcurrentFills(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "q.sql"), []byte("SELECT 1"), 0o644))

	c := newTemplateCache()
	l := loader.NewLoader(dir)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text, err := c.load("q.sql", dialect.Sqlite, l)
			assert.NoError(t, err)
			assert.Equal(t, "SELECT 1", text)
		}()
	}
	wg.Wait()
}

func TestBindArgsPositional(t *testing.T) {
	res := &template.CompileResult{
		Positional: []value.Value{value.IntValue(1), value.TextValue("x")},
		Named:      map[string]value.Value{"ignored": value.IntValue(9)},
	}
	args := bindArgs(res, dialect.Question)
	require.Len(t, args, 2)
	assert.Equal(t, int64(1), args[0])
	assert.Equal(t, "x", args[1])
}

func TestBindArgsNamed(t *testing.T) {
	res := &template.CompileResult{
		Named: map[string]value.Value{"a": value.IntValue(1)},
	}
	args := bindArgs(res, dialect.Named)
	require.Len(t, args, 1)
}

func TestDialectDetectionRejectsUnknownDriver(t *testing.T) {
	d, ok := dialect.FromDriverName("no-such-driver")
	assert.False(t, ok)
	assert.Equal(t, dialect.Dialect{}, d)
}
