package chart

import (
	"bytes"
	"testing"
	"time"

	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transstats/internal/core"
)

var testNow = time.Date(2021, time.November, 14, 0, 0, 0, 0, time.UTC)

func testViews(langs ...core.Language) core.Views {
	months := []core.NormalizedMonth{
		{
			Period:           "2021-09",
			Label:            "Sep 2021",
			PerChannel:       map[string]core.Counts{"A": {ToJP: 5}},
			MonthTotals:      core.Counts{ToJP: 5},
			CumulativeTotals: core.Counts{ToJP: 5},
		},
		{
			Period:           "2021-11",
			Label:            "Nov 2021",
			PerChannel:       map[string]core.Counts{"A": {ToJP: 2, ToEN: 3}, "B": {ToJP: 1, ToEN: 1}},
			MonthTotals:      core.Counts{ToJP: 3, ToEN: 4},
			CumulativeTotals: core.Counts{ToJP: 8, ToEN: 4},
		},
	}
	f := core.Filters{
		SelectedChannels:  []string{"A", "B"},
		SelectedLanguages: langs,
		StartPeriod:       "2021-09",
		EndPeriod:         "2021-11",
		ViewMode:          core.Monthly,
	}
	return core.BuildViews(months, f)
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	k, err := ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindTimeSeries, k)

	k, err = ParseKind("stacked")
	require.NoError(t, err)
	assert.Equal(t, KindStacked, k)

	_, err = ParseKind("pie")
	require.Error(t, err)
}

func TestTimeSeriesHasOneSeriesPerSelectedLanguage(t *testing.T) {
	t.Parallel()

	line := TimeSeries(testViews(core.ToJP, core.ToEN))
	require.Len(t, line.MultiSeries, 2)
	assert.Equal(t, "toJP", line.MultiSeries[0].Name)
	assert.Equal(t, "toEN", line.MultiSeries[1].Name)

	data, ok := line.MultiSeries[0].Data.([]opts.LineData)
	require.True(t, ok)
	require.Len(t, data, 2)
	assert.Equal(t, int64(5), data[0].Value)
	assert.Equal(t, int64(3), data[1].Value)
}

func TestTimeSeriesSkipsDeselectedLanguages(t *testing.T) {
	t.Parallel()

	line := TimeSeries(testViews(core.ToEN))
	require.Len(t, line.MultiSeries, 1)
	assert.Equal(t, "toEN", line.MultiSeries[0].Name)

	assert.Empty(t, TimeSeries(testViews()).MultiSeries)
}

func TestStackedHasOneSeriesPerChannel(t *testing.T) {
	t.Parallel()

	bar := Stacked(testViews(core.ToJP, core.ToEN))
	require.Len(t, bar.MultiSeries, 2)
	assert.Equal(t, "A", bar.MultiSeries[0].Name)
	assert.Equal(t, "B", bar.MultiSeries[1].Name)

	data, ok := bar.MultiSeries[1].Data.([]opts.BarData)
	require.True(t, ok)
	require.Len(t, data, 2)
	assert.Equal(t, int64(0), data[0].Value)
	assert.Equal(t, int64(2), data[1].Value)
}

func TestRenderWritesHTMLPage(t *testing.T) {
	t.Parallel()

	for _, kind := range []Kind{KindTimeSeries, KindStacked} {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, kind, testViews(core.ToJP, core.ToEN)))
		assert.Contains(t, buf.String(), "echarts")
		assert.Contains(t, buf.String(), "Nov 2021")
	}
}

func TestRenderEmptyViews(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, KindStacked, core.BuildViews(nil, core.DefaultFilters("2021-09", testNow))))
	assert.Contains(t, buf.String(), emptySubtext)
}

func TestRenderUnknownKind(t *testing.T) {
	t.Parallel()

	require.Error(t, Render(&bytes.Buffer{}, Kind("pie"), core.Views{}))
}
