package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chahine-tech/sqltwoway/pkg/value"
)

type user struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
	Age  int
}

func row(m map[string]any) map[string]value.Value {
	return value.FromAnyMap(m)
}

func TestMapRow(t *testing.T) {
	m, err := NewMapper[user]()
	require.NoError(t, err)

	u, err := m.MapRow(row(map[string]any{"id": 7, "name": "alice", "Age": 30}))
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, "alice", u.Name)
	assert.Equal(t, 30, u.Age)
}

func TestMapRowIgnoresUnknownColumns(t *testing.T) {
	m, err := NewMapper[user]()
	require.NoError(t, err)

	u, err := m.MapRow(row(map[string]any{"id": 1, "mystery": "x"}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	assert.Empty(t, u.Name, "unmatched fields keep their zero value")
}

func TestMapRowTypeMismatch(t *testing.T) {
	m, err := NewMapper[user]()
	require.NoError(t, err)

	_, err = m.MapRow(row(map[string]any{"id": "not-an-int"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ID")
	assert.Contains(t, err.Error(), "id")
}

func TestMapRows(t *testing.T) {
	m, err := NewMapper[user]()
	require.NoError(t, err)

	us, err := m.MapRows([]map[string]value.Value{
		row(map[string]any{"id": 1, "name": "a"}),
		row(map[string]any{"id": 2, "name": "b"}),
	})
	require.NoError(t, err)
	require.Len(t, us, 2)
	assert.Equal(t, "b", us[1].Name)
}

type snakeUser struct {
	UserId    int64
	FirstName string
}

func TestNamingStrategies(t *testing.T) {
	t.Run("snake columns against camel fields", func(t *testing.T) {
		m, err := NewMapper[snakeUser](WithNamingStrategy(SnakeToCamel))
		require.NoError(t, err)
		u, err := m.MapRow(row(map[string]any{"user_id": 9, "first_name": "ada"}))
		require.NoError(t, err)
		assert.Equal(t, int64(9), u.UserId)
		assert.Equal(t, "ada", u.FirstName)
	})

	t.Run("camel columns against camel fields", func(t *testing.T) {
		m, err := NewMapper[snakeUser](WithNamingStrategy(CamelToSnake))
		require.NoError(t, err)
		u, err := m.MapRow(row(map[string]any{"userId": 9, "firstName": "ada"}))
		require.NoError(t, err)
		assert.Equal(t, int64(9), u.UserId)
		assert.Equal(t, "ada", u.FirstName)
	})
}

func TestInvalidNamingStrategyRejectedAtConstruction(t *testing.T) {
	_, err := NewMapper[user](WithNamingStrategy(NamingStrategy(42)))
	require.Error(t, err)
}

func TestNonStructTargetRejected(t *testing.T) {
	_, err := NewMapper[int]()
	require.Error(t, err)
}

func TestNullAndPointerFields(t *testing.T) {
	type rec struct {
		Note *string `db:"note"`
	}
	m, err := NewMapper[rec]()
	require.NoError(t, err)

	r, err := m.MapRow(row(map[string]any{"note": nil}))
	require.NoError(t, err)
	assert.Nil(t, r.Note)

	r, err = m.MapRow(row(map[string]any{"note": "hi"}))
	require.NoError(t, err)
	require.NotNil(t, r.Note)
	assert.Equal(t, "hi", *r.Note)
}

func TestMapInto(t *testing.T) {
	rows := []map[string]value.Value{
		row(map[string]any{"id": 1, "name": "a"}),
		row(map[string]any{"id": 2, "name": "b"}),
	}

	var us []user
	require.NoError(t, MapInto(&us, rows, AsIs))
	require.Len(t, us, 2)
	assert.Equal(t, int64(2), us[1].ID)

	var ps []*user
	require.NoError(t, MapInto(&ps, rows, AsIs))
	require.Len(t, ps, 2)
	assert.Equal(t, "a", ps[0].Name)

	assert.Error(t, MapInto(us, rows, AsIs), "non-pointer dest must be rejected")
	var n int
	assert.Error(t, MapInto(&n, rows, AsIs), "non-slice dest must be rejected")
}

func TestCamelToSnakeDerivation(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"UserId", "user_id"},
		{"FirstName", "first_name"},
		{"A", "a"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, camelToSnake(tt.in))
	}
}
