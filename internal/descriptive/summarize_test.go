package descriptive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entrain/internal/biosignal"
)

func channelSeries(t *testing.T, resp biosignal.Respondent, channels map[biosignal.Band][]biosignal.Value) biosignal.Series {
	t.Helper()
	var length int
	for _, column := range channels {
		length = len(column)
		break
	}
	times := make([]float64, length)
	for i := range times {
		times[i] = float64(i)
	}
	s, err := biosignal.NewSeries(resp, times, channels)
	require.NoError(t, err)
	return s
}

func observedColumn(values ...float64) []biosignal.Value {
	out := make([]biosignal.Value, len(values))
	for i, v := range values {
		out[i] = biosignal.Present(v)
	}
	return out
}

func TestSummarizeOrdersRowsAndComputesCells(t *testing.T) {
	series := []biosignal.Series{
		channelSeries(t, biosignal.Respondent{ID: "r2"}, map[biosignal.Band][]biosignal.Value{
			"smile": observedColumn(10, 20, 30),
		}),
		channelSeries(t, biosignal.Respondent{ID: "r1"}, map[biosignal.Band][]biosignal.Value{
			"smile":     observedColumn(1, 2, 3),
			"attention": observedColumn(4, 4, 4),
		}),
	}
	stats, err := ParseStatistics([]string{"mean", "max"})
	require.NoError(t, err)

	table, warnings := Summarize(series, stats)

	assert.Empty(t, warnings)
	require.Len(t, table.Rows, 3)

	assert.Equal(t, "r1", table.Rows[0].Respondent.ID)
	assert.Equal(t, biosignal.Band("attention"), table.Rows[0].Channel)
	assert.Equal(t, "r1", table.Rows[1].Respondent.ID)
	assert.Equal(t, biosignal.Band("smile"), table.Rows[1].Channel)
	assert.Equal(t, "r2", table.Rows[2].Respondent.ID)

	mean, ok := table.Rows[1].Cells[0].Float()
	require.True(t, ok)
	assert.InDelta(t, 2, mean, 1e-12)
	max, ok := table.Rows[2].Cells[1].Float()
	require.True(t, ok)
	assert.InDelta(t, 30, max, 1e-12)
}

func TestSummarizeDropsMissingBeforeComputing(t *testing.T) {
	series := []biosignal.Series{
		channelSeries(t, biosignal.Respondent{ID: "r1"}, map[biosignal.Band][]biosignal.Value{
			"smile": {biosignal.Present(1), biosignal.Missing(), biosignal.Present(3), biosignal.NotApplicable()},
		}),
	}
	stats, err := ParseStatistics([]string{"mean"})
	require.NoError(t, err)

	table, warnings := Summarize(series, stats)

	assert.Empty(t, warnings)
	require.Len(t, table.Rows, 1)
	mean, ok := table.Rows[0].Cells[0].Float()
	require.True(t, ok)
	assert.InDelta(t, 2, mean, 1e-12)
}

func TestSummarizeEmptyChannelWarnsAndStaysMissing(t *testing.T) {
	series := []biosignal.Series{
		channelSeries(t, biosignal.Respondent{ID: "r1", Name: "Ada"}, map[biosignal.Band][]biosignal.Value{
			"smile": {biosignal.Missing(), biosignal.Missing()},
		}),
	}
	stats, err := ParseStatistics([]string{"mean", "std"})
	require.NoError(t, err)

	table, warnings := Summarize(series, stats)

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "Ada")
	assert.Contains(t, warnings[0], "smile")
	require.Len(t, table.Rows, 1)
	for i, cell := range table.Rows[0].Cells {
		assert.True(t, cell.IsMissing(), "cell %d should be missing", i)
	}
}

func TestSummarizeDegenerateStatisticsGoMissing(t *testing.T) {
	series := []biosignal.Series{
		channelSeries(t, biosignal.Respondent{ID: "r1"}, map[biosignal.Band][]biosignal.Value{
			"smile": observedColumn(5),
		}),
	}
	stats, err := ParseStatistics([]string{"mean", "std", "skewness", "kurtosis"})
	require.NoError(t, err)

	table, warnings := Summarize(series, stats)

	assert.Empty(t, warnings)
	require.Len(t, table.Rows, 1)
	cells := table.Rows[0].Cells
	mean, ok := cells[0].Float()
	require.True(t, ok)
	assert.Equal(t, 5.0, mean)
	for _, i := range []int{1, 2, 3} {
		assert.True(t, cells[i].IsMissing(), "cell %d should be missing for a single sample", i)
	}
}

func TestSummarizeEmptyInput(t *testing.T) {
	stats, err := ParseStatistics([]string{"mean"})
	require.NoError(t, err)
	table, warnings := Summarize(nil, stats)
	assert.Empty(t, warnings)
	assert.Empty(t, table.Rows)
	assert.Equal(t, stats, table.Statistics)
}
