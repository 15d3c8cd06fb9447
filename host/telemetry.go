package host

import (
	"context"
	"fmt"

	"github.com/pthm-cable/signals/telemetry"
)

// flushTelemetry closes the stats window when it is due, writes the
// records and reacts to bookmarks.
func (d *Driver) flushTelemetry() {
	tick := d.eng.Ticks()
	if !d.collector.ShouldFlush(tick) {
		return
	}

	stats := d.collector.Flush(tick, telemetry.SampleGraph(d.eng))
	perfStats := d.perf.Stats()
	d.lastStats = stats
	d.lastPerf = perfStats

	if d.opts.OnWindow != nil {
		d.opts.OnWindow(stats)
	}
	if d.opts.LogStats {
		stats.LogStats()
		perfStats.LogStats()
	}
	if err := d.output.WriteTelemetry(stats); err != nil {
		d.log.Error("failed to write telemetry", "error", err)
	}
	if err := d.output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		d.log.Error("failed to write perf", "error", err)
	}

	for _, bm := range d.bookmarks.Check(stats) {
		if d.opts.LogStats {
			bm.LogBookmark()
		}
		if err := d.output.WriteBookmark(bm); err != nil {
			d.log.Error("failed to write bookmark", "error", err)
		}
		if d.opts.SaveOnBookmark && d.store != nil {
			d.saveBookmark(bm)
		}
	}
}

// saveBookmark stores the current state under an ID naming the bookmark.
func (d *Driver) saveBookmark(bm telemetry.Bookmark) {
	id := fmt.Sprintf("%s-%s-%d", d.eng.RunID(), bm.Type, bm.Tick)
	meta, err := d.store.SaveState(context.Background(), id, d.eng.Save())
	if err != nil {
		d.log.Error("failed to save bookmark state", "id", id, "error", err)
		return
	}
	d.log.Info("bookmark state saved", "id", meta.ID, "nodes", meta.Nodes, "links", meta.Links)
}
