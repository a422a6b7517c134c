package reports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transstats/internal/core"
)

func TestDecodeValidReport(t *testing.T) {
	data := []byte(`{
		"channellist": ["A", "B"],
		"perChannel": [
			{"channel": "A", "toJP": 2, "toEN": 3},
			{"channel": "B", "toJP": 1, "toEN": 1}
		],
		"Month": {"toJP": 3, "toEN": 4},
		"Total": {"toJP": 120, "toEN": 50}
	}`)

	raw, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, raw.ChannelList)
	assert.Equal(t, []core.ChannelStat{
		{Channel: "A", ToJP: 2, ToEN: 3},
		{Channel: "B", ToJP: 1, ToEN: 1},
	}, raw.PerChannel)
	assert.Equal(t, core.Counts{ToJP: 3, ToEN: 4}, raw.Month)
	assert.Equal(t, core.Counts{ToJP: 120, ToEN: 50}, raw.Total)
}

func TestDecodeChannelListIsOptional(t *testing.T) {
	raw, err := Decode([]byte(`{"perChannel": [], "Month": {"toJP": 0, "toEN": 0}, "Total": {"toJP": 9, "toEN": 1}}`))
	require.NoError(t, err)
	assert.Empty(t, raw.PerChannel)
	assert.Equal(t, int64(10), raw.Total.Total())
}

func TestDecodeMissingChannelCountsAreZero(t *testing.T) {
	raw, err := Decode([]byte(`{"perChannel": [{"channel": "A", "toJP": 4}], "Month": {"toJP": 4, "toEN": 0}, "Total": {"toJP": 4, "toEN": 0}}`))
	require.NoError(t, err)
	assert.Equal(t, int64(0), raw.PerChannel[0].ToEN)
}

func TestDecodeIntegralFloatCounts(t *testing.T) {
	raw, err := Decode([]byte(`{"perChannel": [{"channel": "A", "toJP": 5.0, "toEN": 1e2}], "Month": {"toJP": 5.0, "toEN": 100}, "Total": {"toJP": 5, "toEN": 100.00}}`))
	require.NoError(t, err)
	assert.Equal(t, []core.ChannelStat{{Channel: "A", ToJP: 5, ToEN: 100}}, raw.PerChannel)
	assert.Equal(t, core.Counts{ToJP: 5, ToEN: 100}, raw.Month)
	assert.Equal(t, core.Counts{ToJP: 5, ToEN: 100}, raw.Total)
}

func TestDecodeRejectsInvalidReports(t *testing.T) {
	cases := map[string]string{
		"missing Month":      `{"perChannel": [], "Total": {"toJP": 1, "toEN": 1}}`,
		"missing Total":      `{"perChannel": [], "Month": {"toJP": 1, "toEN": 1}}`,
		"missing perChannel": `{"Month": {"toJP": 1, "toEN": 1}, "Total": {"toJP": 1, "toEN": 1}}`,
		"partial Total":      `{"perChannel": [], "Month": {"toJP": 1, "toEN": 1}, "Total": {"toJP": 1}}`,
		"string count":       `{"perChannel": [{"channel": "A", "toJP": "2"}], "Month": {"toJP": 1, "toEN": 1}, "Total": {"toJP": 1, "toEN": 1}}`,
		"fractional count":   `{"perChannel": [], "Month": {"toJP": 1.5, "toEN": 1}, "Total": {"toJP": 1, "toEN": 1}}`,
		"negative count":     `{"perChannel": [], "Month": {"toJP": -1, "toEN": 1}, "Total": {"toJP": 1, "toEN": 1}}`,
		"unnamed channel":    `{"perChannel": [{"toJP": 2}], "Month": {"toJP": 1, "toEN": 1}, "Total": {"toJP": 1, "toEN": 1}}`,
		"not an object":      `[1, 2, 3]`,
		"not json":           `<html>404</html>`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(body))
			require.ErrorIs(t, err, ErrInvalidReport)
		})
	}
}
