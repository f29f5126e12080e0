package main

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dreamware/quartzdb/internal/cache"
	"github.com/dreamware/quartzdb/internal/cache/eviction"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    eviction.Strategy
		wantErr bool
	}{
		{name: "none", input: "none", want: eviction.None},
		{name: "lru", input: "lru", want: eviction.LRU},
		{name: "lirs", input: "lirs", want: eviction.LIRS},
		{name: "unknown", input: "fifo", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStrategy(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestRunDrivesWorkloadAgainstCache(t *testing.T) {
	c, err := cache.New[int, int64](cache.Config[int, int64]{
		InitialCapacity:  200,
		ConcurrencyLevel: 4,
		Strategy:         eviction.LRU,
	})
	require.NoError(t, err)

	result := run(c, 100, 2000, 4, 0.3)
	require.Equal(t, result.Hits+result.Misses+result.Writes, int64(2000/4)*4)
}

func TestReportDoesNotPanicOnEmptyResult(t *testing.T) {
	require.NotPanics(t, func() {
		report(zap.NewNop(), benchResult{})
	})
}
