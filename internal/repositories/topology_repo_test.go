package repositories

import (
	"context"
	"testing"

	"wmscore/internal/common"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var binRowColumns = []string{"id", "rack_id", "zone_id", "code", "name", "capacity", "rack_name", "zone_name"}

type TopologyRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    TopologyRepository
	context context.Context
}

func (suite *TopologyRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	require.NoError(suite.T(), err)
	suite.mock = mock
	suite.repo = NewTopologyRepo(mock)
	suite.context = context.Background()
}

func (suite *TopologyRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestTopologyRepoTestSuite(t *testing.T) {
	suite.Run(t, new(TopologyRepoTestSuite))
}

func (suite *TopologyRepoTestSuite) TestGetBin() {
	capacity := 10
	suite.mock.ExpectQuery(q("WHERE b.id = $1")).
		WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows(binRowColumns).AddRow(int64(4), int64(2), int64(1), "A-01", "Bin A-01", &capacity, "Rack 1", "Zone A"))

	bin, err := suite.repo.GetBin(suite.context, 4)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), bin.Capacity)
	assert.Equal(suite.T(), 10, *bin.Capacity)
	assert.Equal(suite.T(), "Zone A / Rack 1 / Bin A-01 (A-01)", bin.FullLocation())
}

func (suite *TopologyRepoTestSuite) TestGetBin_NotFound() {
	suite.mock.ExpectQuery(q("WHERE b.id = $1")).
		WithArgs(int64(99)).
		WillReturnError(pgx.ErrNoRows)

	_, err := suite.repo.GetBin(suite.context, 99)
	assert.ErrorIs(suite.T(), err, common.ErrNotFound)
}

func (suite *TopologyRepoTestSuite) TestFirstBin_EmptyWarehouse() {
	suite.mock.ExpectQuery(q("ORDER BY b.id ASC LIMIT 1")).
		WillReturnError(pgx.ErrNoRows)

	_, err := suite.repo.FirstBin(suite.context)
	assert.ErrorIs(suite.T(), err, common.ErrNoBinAvailable)
}

func (suite *TopologyRepoTestSuite) TestGetZone_NotFound() {
	suite.mock.ExpectQuery(q("FROM zones WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnError(pgx.ErrNoRows)

	_, err := suite.repo.GetZone(suite.context, 3)
	assert.ErrorIs(suite.T(), err, common.ErrNotFound)
}

func (suite *TopologyRepoTestSuite) TestListZoneBinUsage() {
	capacity := 10
	columns := append(append([]string(nil), binRowColumns...), "used", "holds_sku")
	suite.mock.ExpectQuery(q("LEFT JOIN inventory_stock s ON s.bin_id = b.id")).
		WithArgs(int64(1), int64(7)).
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow(int64(4), int64(2), int64(1), "A-01", "Bin A-01", &capacity, "Rack 1", "Zone A", 6, true).
			AddRow(int64(5), int64(2), int64(1), "A-02", "Bin A-02", nil, "Rack 1", "Zone A", 0, false))

	usages, err := suite.repo.ListZoneBinUsage(suite.context, 1, 7)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), usages, 2)

	available, bounded := usages[0].Available()
	assert.True(suite.T(), bounded)
	assert.Equal(suite.T(), 4, available)
	assert.True(suite.T(), usages[0].HoldsSKU)

	_, bounded = usages[1].Available()
	assert.False(suite.T(), bounded)
}
