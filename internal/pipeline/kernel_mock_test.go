package pipeline_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/baiguoname/qust-sub001/internal/di"
	"github.com/baiguoname/qust-sub001/internal/pipeline"
	"github.com/baiguoname/qust-sub001/internal/pricestore"
	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/mocks"
	qerrors "github.com/baiguoname/qust-sub001/pkg/errors"
)

type KernelMockTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller
	ta   *mocks.MockTa
	di   *di.DataInstance
}

func TestKernelMockSuite(t *testing.T) {
	suite.Run(t, new(KernelMockTestSuite))
}

func (suite *KernelMockTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.ta = mocks.NewMockTa(suite.ctrl)
	suite.ta.EXPECT().String().Return("mock").AnyTimes()

	cfg := mocks.DefaultConfig()
	cfg.Count = 20

	bars := mocks.NewDataGenerator(7).GenerateBars(cfg)
	suite.di = di.New(types.Contract{Ticker: "rb", Code: "rb2405"}, pricestore.FromBars(bars))
}

func (suite *KernelMockTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *KernelMockTestSuite) TestComputedOncePerInstance() {
	closes := suite.di.Store().Column(pricestore.ColClose)

	suite.ta.EXPECT().SelectInputs(gomock.Any()).Return([][]float64{closes}).Times(1)
	suite.ta.EXPECT().Compute(gomock.Any(), gomock.Any()).
		DoAndReturn(func(inputs [][]float64, _ di.Scope) ([][]float64, error) {
			return [][]float64{inputs[0]}, nil
		}).Times(1)

	p := pipeline.OnOri(suite.ta)

	first, err := p.Materialise(suite.di)
	suite.Require().NoError(err)

	second, err := p.Materialise(suite.di)
	suite.Require().NoError(err)

	suite.Equal(first, second)
	suite.Len(first[0], 20)
}

func (suite *KernelMockTestSuite) TestShortColumnRejected() {
	suite.ta.EXPECT().SelectInputs(gomock.Any()).Return([][]float64{make([]float64, 20)})
	suite.ta.EXPECT().Compute(gomock.Any(), gomock.Any()).Return([][]float64{make([]float64, 19)}, nil)

	_, err := pipeline.OnOri(suite.ta).Materialise(suite.di)
	suite.True(qerrors.HasCode(err, qerrors.ErrCodeColumnLength))
}

func (suite *KernelMockTestSuite) TestKernelErrorWrapped() {
	cause := errors.New("boom")

	suite.ta.EXPECT().SelectInputs(gomock.Any()).Return([][]float64{make([]float64, 20)})
	suite.ta.EXPECT().Compute(gomock.Any(), gomock.Any()).Return(nil, cause)

	_, err := pipeline.OnOri(suite.ta).Materialise(suite.di)
	suite.True(qerrors.HasCode(err, qerrors.ErrCodeIndicatorCalculation))
	suite.ErrorIs(err, cause)
}
