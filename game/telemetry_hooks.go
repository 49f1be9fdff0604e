package game

import "log/slog"

// flushTelemetry checks if the stats window should be flushed.
func (l *Loop) flushTelemetry() {
	if !l.collector.ShouldFlush(l.frame) {
		return
	}

	stats := l.collector.Flush(l.frame, l.population(), l.phase)
	perfStats := l.perfCollector.Stats()

	// Call stats callback if provided
	if l.statsCallback != nil {
		l.statsCallback(stats)
	}

	// Log stats if enabled (console output)
	if l.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	// Write to CSV if output manager is enabled
	if l.outputManager != nil {
		if err := l.outputManager.WriteWindow(stats); err != nil {
			slog.Error("failed to write frame stats", "error", err)
		}
		if err := l.outputManager.WritePerf(perfStats, stats.WindowEndFrame); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}
}
