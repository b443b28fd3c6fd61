package testhelpers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestDB_Seeded(t *testing.T) {
	testDB := GetTestDB(t)

	var count int
	err := testDB.Pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM app_log").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	params := testDB.Params()
	assert.Equal(t, testDB.Host+":"+testDB.Port, params["host"])
	assert.Equal(t, "logs", params["database"])
}
