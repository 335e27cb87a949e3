package database

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate(t *testing.T) {
	mock, err := pgxmock.NewConn()
	require.NoError(t, err)
	defer mock.Close(context.Background())

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS zones")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, Migrate(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_Error(t *testing.T) {
	mock, err := pgxmock.NewConn()
	require.NoError(t, err)
	defer mock.Close(context.Background())

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))

	err = Migrate(context.Background(), mock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply schema")
}

func TestSchemaDeclaresStockConstraints(t *testing.T) {
	assert.Contains(t, schema, "UNIQUE (sku_id, bin_id)")
	assert.Contains(t, schema, "quantity   INTEGER NOT NULL CHECK (quantity >= 0)")
	assert.Contains(t, schema, "CHECK (quantity > 0)")
}

func TestSchemaAllowsOnePendingApprovalPerItem(t *testing.T) {
	assert.Contains(t, schema, "CREATE UNIQUE INDEX IF NOT EXISTS idx_approvals_one_pending_per_item ON approvals(shipment_item_id) WHERE status = 'PENDING'")
}

func TestNewPool_InvalidURL(t *testing.T) {
	_, err := NewPool(context.Background(), "postgres://%zz")
	assert.Error(t, err)
}
