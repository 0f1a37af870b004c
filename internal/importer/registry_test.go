package importer

import (
	"context"
	"testing"
	"time"

	"github.com/LurkingFox/Tradeworth-sub000/internal/logger"
	"github.com/LurkingFox/Tradeworth-sub000/internal/types"
	"github.com/LurkingFox/Tradeworth-sub000/mocks"
	"github.com/LurkingFox/Tradeworth-sub000/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type RegistryTestSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	repo     *mocks.MockRepository
	pipeline *Pipeline
	registry *Registry
	clock    time.Time
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (suite *RegistryTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.repo = mocks.NewMockRepository(suite.ctrl)
	suite.clock = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	suite.pipeline = NewPipeline(suite.repo, nil, nil, nil, DefaultConfig(), logger.NewNopLogger())
	suite.pipeline.now = func() time.Time { return suite.clock }
	suite.registry = NewRegistry(suite.pipeline, time.Minute, logger.NewNopLogger())
}

func (suite *RegistryTestSuite) expectImport(records int) {
	suite.repo.EXPECT().Ping(gomock.Any()).Return(nil)
	suite.repo.EXPECT().CountTrades(gomock.Any(), "u1").Return(0, nil)
	suite.repo.EXPECT().InsertTrades(gomock.Any(), gomock.Len(records)).Return(records, nil)
	suite.repo.EXPECT().CountTrades(gomock.Any(), "u1").Return(records, nil)
}

func (suite *RegistryTestSuite) TestStartAndPoll() {
	suite.expectImport(20)

	ctx, cancel := context.WithCancel(context.Background())
	id := suite.registry.Start(ctx, mocks.GenerateUnique(20), Options{UserID: "u1"})
	cancel()

	suite.NotEmpty(id)
	suite.registry.Wait()

	job, err := suite.registry.Get(id)
	suite.Require().NoError(err)
	suite.Equal(types.ImportStatusCompleted, job.Status)
	suite.Equal(20, job.Totals.Succeeded)

	view := job.StatusView()
	suite.Equal(id, view.ID)
	suite.Equal(float64(100), view.Progress)

	err = suite.registry.Cancel(id)
	suite.True(errors.HasCode(err, errors.ErrCodeImportNotCancelable))
}

func (suite *RegistryTestSuite) TestRunRegistersJob() {
	suite.expectImport(5)

	job, err := suite.registry.Run(context.Background(), mocks.GenerateUnique(5), Options{UserID: "u1"})
	suite.Require().NoError(err)

	polled, err := suite.registry.Get(job.ID)
	suite.Require().NoError(err)
	suite.Equal(job.Totals, polled.Totals)

	// the returned job is a copy
	job.Totals.Succeeded = 99

	polled, err = suite.registry.Get(job.ID)
	suite.Require().NoError(err)
	suite.Equal(5, polled.Totals.Succeeded)
}

func (suite *RegistryTestSuite) TestUnknownJob() {
	_, err := suite.registry.Get("missing")
	suite.True(errors.HasCode(err, errors.ErrCodeImportNotFound))

	err = suite.registry.Cancel("missing")
	suite.True(errors.HasCode(err, errors.ErrCodeImportNotFound))
}

func (suite *RegistryTestSuite) TestCancelPendingJob() {
	j := suite.registry.register(Options{UserID: "u1"})

	suite.NoError(suite.registry.Cancel(j.state.ID))

	suite.repo.EXPECT().Ping(gomock.Any()).Return(nil)
	suite.repo.EXPECT().CountTrades(gomock.Any(), "u1").Return(0, nil)

	err := suite.pipeline.execute(context.Background(), j, mocks.GenerateUnique(5), Options{UserID: "u1"})
	suite.True(errors.HasCode(err, errors.ErrCodeCanceled))

	job, err := suite.registry.Get(j.state.ID)
	suite.Require().NoError(err)
	suite.Equal(types.ImportStatusCancelled, job.Status)
}

func (suite *RegistryTestSuite) TestSweepRemovesExpiredTerminalJobs() {
	suite.expectImport(3)

	done, err := suite.registry.Run(context.Background(), mocks.GenerateUnique(3), Options{UserID: "u1"})
	suite.Require().NoError(err)

	pending := suite.registry.register(Options{UserID: "u1"})

	suite.Zero(suite.registry.Sweep())
	suite.Equal(2, suite.registry.Len())

	suite.clock = suite.clock.Add(2 * time.Minute)

	suite.Equal(1, suite.registry.Sweep())
	suite.Equal(1, suite.registry.Len())

	_, err = suite.registry.Get(done.ID)
	suite.True(errors.HasCode(err, errors.ErrCodeImportNotFound))

	_, err = suite.registry.Get(pending.state.ID)
	suite.NoError(err)
}
