package engine

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	Acquisitions        atomic.Int64
	AcquisitionFailures atomic.Int64
	StrategyAttempts    atomic.Int64
	StrategyFailures    atomic.Int64
	StrategyTimeouts    atomic.Int64
	LLMCalls            atomic.Int64
	LLMErrors           atomic.Int64
	TestsGenerated      atomic.Int64
	TestsParsed         atomic.Int64
}

// sourceWins counts successful acquisitions per strategy name.
var sourceWins sync.Map // string → *atomic.Int64

func IncrAcquisition()        { metrics.Acquisitions.Add(1) }
func IncrAcquisitionFailure() { metrics.AcquisitionFailures.Add(1) }
func IncrStrategyAttempt()    { metrics.StrategyAttempts.Add(1) }
func IncrStrategyFailure()    { metrics.StrategyFailures.Add(1) }
func IncrStrategyTimeout()    { metrics.StrategyTimeouts.Add(1) }
func IncrTestGenerated()      { metrics.TestsGenerated.Add(1) }
func IncrTestParsed()         { metrics.TestsParsed.Add(1) }

// IncrSourceWin records that the named strategy produced the final outcome.
func IncrSourceWin(source string) {
	v, _ := sourceWins.LoadOrStore(source, new(atomic.Int64))
	v.(*atomic.Int64).Add(1)
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	m := map[string]int64{
		"acquisitions":         metrics.Acquisitions.Load(),
		"acquisition_failures": metrics.AcquisitionFailures.Load(),
		"strategy_attempts":    metrics.StrategyAttempts.Load(),
		"strategy_failures":    metrics.StrategyFailures.Load(),
		"strategy_timeouts":    metrics.StrategyTimeouts.Load(),
		"llm_calls":            metrics.LLMCalls.Load(),
		"llm_errors":           metrics.LLMErrors.Load(),
		"tests_generated":      metrics.TestsGenerated.Load(),
		"tests_parsed":         metrics.TestsParsed.Load(),
		"cache_hits":           hits,
		"cache_misses":         misses,
	}
	sourceWins.Range(func(k, v any) bool {
		m["source_wins_"+k.(string)] = v.(*atomic.Int64).Load()
		return true
	})
	return m
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}
