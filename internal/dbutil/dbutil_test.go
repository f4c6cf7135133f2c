package dbutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	q := "SELECT id FROM sales_order_item WHERE order_id = ? AND product_id IN (?, ?)"
	assert.Equal(t, q, Rebind(DriverSQLite, q))
	assert.Equal(t,
		"SELECT id FROM sales_order_item WHERE order_id = $1 AND product_id IN ($2, $3)",
		Rebind(DriverPostgres, q))
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "root@/shop")
	assert.Error(t, err)
}

func TestOpenMemory(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	var one int
	require.NoError(t, db.QueryRowContext(context.Background(), "SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)
}
