package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zapcore"
)

type RouterTestSuite struct {
	suite.Suite
	dir string
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func (suite *RouterTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()
}

func (suite *RouterTestSuite) readLines(target string) []map[string]any {
	f, err := os.Open(filepath.Join(suite.dir, target+".log"))
	suite.Require().NoError(err)
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var line map[string]any
		suite.Require().NoError(json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}

	return lines
}

func (suite *RouterTestSuite) TestAggregateFilesCreated() {
	router, err := NewRouter(suite.dir, zapcore.InfoLevel)
	suite.Require().NoError(err)
	defer router.Close()

	for _, target := range []string{TargetCtp, TargetSpy, TargetStra} {
		_, err := os.Stat(filepath.Join(suite.dir, target+".log"))
		suite.NoError(err, target)
	}
}

func (suite *RouterTestSuite) TestEventFields() {
	router, err := NewRouter(suite.dir, zapcore.InfoLevel)
	suite.Require().NoError(err)

	router.Ticker("rb").Info("bar finished")
	router.Close()

	lines := suite.readLines("rb")
	suite.Require().Len(lines, 1)

	line := lines[0]
	suite.Equal("bar finished", line["message"])
	suite.Equal("rb", line["target"])
	suite.Equal("router_test.go", line["file"])
	suite.Contains(line, "line")
	suite.Contains(line, "timestamp_ms")

	ts, ok := line["timestamp_ms"].(float64)
	suite.True(ok)
	suite.Greater(ts, float64(1_600_000_000_000))
}

func (suite *RouterTestSuite) TestSameTargetReused() {
	router, err := NewRouter(suite.dir, zapcore.InfoLevel)
	suite.Require().NoError(err)
	defer router.Close()

	a, err := router.For("ag")
	suite.Require().NoError(err)
	b, err := router.For("ag")
	suite.Require().NoError(err)
	suite.Same(a, b)
}

func (suite *RouterTestSuite) TestLevelFilter() {
	router, err := NewRouter(suite.dir, zapcore.WarnLevel)
	suite.Require().NoError(err)

	l, err := router.For(TargetStra)
	suite.Require().NoError(err)
	l.Info("dropped")
	l.Warn("kept")
	router.Close()

	lines := suite.readLines(TargetStra)
	suite.Require().Len(lines, 1)
	suite.Equal("kept", lines[0]["message"])
}
