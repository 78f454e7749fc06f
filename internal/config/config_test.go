package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marlinquant/marlin/pkg/errors"
	"github.com/stretchr/testify/suite"
)

const validSettings = `
symbols:
  BTCUSDT:
    granularity: 5m
    risk_pct: 0.02
    trailing:
      trailing_trigger_pct: 0.01
      trailing_stop_pct: 0.005
  ETHUSDT:
    granularity: 1m
    risk_pct: 0.01
    trailing:
      trailing_trigger_pct: 0.02
      trailing_stop_pct: 0.01
poll_timeout: 1s
position_poll_interval: 2s
use_testnet: true
`

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (s *ConfigTestSuite) TestParseValidSettings() {
	settings, err := Parse([]byte(validSettings))
	s.Require().NoError(err)

	s.Len(settings.Symbols, 2)
	s.Equal(time.Second, settings.PollTimeout.Std())
	s.Equal(2*time.Second, settings.PositionPollInterval.Std())
	s.True(settings.UseTestnet)

	btc := settings.Symbols["BTCUSDT"]
	s.Equal("5m", btc.Granularity)
	s.Equal(0.02, btc.RiskPct)
	s.Equal(0.01, btc.Trailing.TriggerPct)
	s.Equal(0.005, btc.Trailing.TrailPct)

	granularity, err := btc.GranularityDuration()
	s.Require().NoError(err)
	s.Equal(5*time.Minute, granularity)
}

func (s *ConfigTestSuite) TestLoadFromFile() {
	path := filepath.Join(s.T().TempDir(), "settings.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(validSettings), 0o600))

	settings, err := Load(path)
	s.Require().NoError(err)
	s.Len(settings.Symbols, 2)
}

func (s *ConfigTestSuite) TestLoadMissingFile() {
	_, err := Load(filepath.Join(s.T().TempDir(), "absent.yaml"))
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (s *ConfigTestSuite) TestParseRejectsMalformedYAML() {
	_, err := Parse([]byte("symbols: ["))
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (s *ConfigTestSuite) TestParseRejectsEmptySymbols() {
	_, err := Parse([]byte("symbols: {}\n"))
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (s *ConfigTestSuite) TestParseRejectsUnknownGranularity() {
	raw := `
symbols:
  BTCUSDT:
    granularity: 7m
    risk_pct: 0.02
`
	_, err := Parse([]byte(raw))
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (s *ConfigTestSuite) TestParseRejectsNegativePollTimeout() {
	raw := `
symbols:
  BTCUSDT:
    granularity: 1m
    risk_pct: 0.02
poll_timeout: -1s
`
	_, err := Parse([]byte(raw))
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (s *ConfigTestSuite) TestParseRejectsRiskAboveOne() {
	raw := `
symbols:
  BTCUSDT:
    granularity: 1m
    risk_pct: 1.5
`
	_, err := Parse([]byte(raw))
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}
