package telemetry

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkMergeCascade   BookmarkType = "merge_cascade"
	BookmarkPopulationDrop BookmarkType = "population_drop"
	BookmarkPermaNetwork   BookmarkType = "perma_network"
	BookmarkDepthRecord    BookmarkType = "depth_record"
	BookmarkStableGraph    BookmarkType = "stable_graph"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        uint64       `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in a run.
type BookmarkDetector struct {
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	livePeak           int
	deepest            int
	permaSeen          bool
	stableWindowsCount int
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // stable graph detection looks back 4 windows
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark
	add := func(b *Bookmark) {
		if b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	if bd.historyFull || bd.historyIdx > 0 {
		add(bd.checkMergeCascade(stats))
		add(bd.checkPopulationDrop(stats))
		add(bd.checkStableGraph(stats))
	}
	add(bd.checkPermaNetwork(stats))
	add(bd.checkDepthRecord(stats))

	bd.addToHistory(stats)
	if stats.LiveNodes > bd.livePeak {
		bd.livePeak = stats.LiveNodes
	}
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// getHistory returns the recorded windows, oldest first.
func (bd *BookmarkDetector) getHistory() []WindowStats {
	if !bd.historyFull {
		return bd.history[:bd.historyIdx]
	}
	out := make([]WindowStats, 0, bd.historySize)
	out = append(out, bd.history[bd.historyIdx:]...)
	return append(out, bd.history[:bd.historyIdx]...)
}

func (bd *BookmarkDetector) checkMergeCascade(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 || stats.Merges < 3 {
		return nil
	}

	var total int
	for _, h := range history {
		total += h.Merges
	}
	avg := float64(total) / float64(len(history))
	if float64(stats.Merges) > avg*2 {
		return &Bookmark{
			Type:        BookmarkMergeCascade,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("%d merges against an average of %.1f", stats.Merges, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkPopulationDrop(stats WindowStats) *Bookmark {
	if bd.livePeak == 0 {
		return nil
	}

	drop := 1 - float64(stats.LiveNodes)/float64(bd.livePeak)
	if drop > 0.30 && stats.LiveNodes < bd.livePeak-5 {
		oldPeak := bd.livePeak
		bd.livePeak = stats.LiveNodes
		return &Bookmark{
			Type:        BookmarkPopulationDrop,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Live nodes fell %.0f%% from %d to %d", drop*100, oldPeak, stats.LiveNodes),
		}
	}
	return nil
}

// checkPermaNetwork fires once when perma links first make up a tenth of
// the graph, and re-arms when they all disappear.
func (bd *BookmarkDetector) checkPermaNetwork(stats WindowStats) *Bookmark {
	if stats.PermaLinks == 0 {
		bd.permaSeen = false
		return nil
	}
	total := stats.WeakLinks + stats.StrongLinks + stats.PermaLinks
	if bd.permaSeen || stats.PermaLinks < 3 || stats.PermaLinks*10 < total {
		return nil
	}
	bd.permaSeen = true
	return &Bookmark{
		Type:        BookmarkPermaNetwork,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("%d of %d links are perma bonds", stats.PermaLinks, total),
	}
}

func (bd *BookmarkDetector) checkDepthRecord(stats WindowStats) *Bookmark {
	if stats.MaxLevel <= bd.deepest {
		return nil
	}
	prev := bd.deepest
	bd.deepest = stats.MaxLevel
	if stats.MaxLevel < 2 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkDepthRecord,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Hierarchy reached level %d (was %d)", stats.MaxLevel, prev),
	}
}

func (bd *BookmarkDetector) checkStableGraph(stats WindowStats) *Bookmark {
	if stats.LiveNodes < 10 {
		bd.stableWindowsCount = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}

	live := make([]float64, 0, 4)
	links := make([]float64, 0, 4)
	for _, h := range history[len(history)-4:] {
		live = append(live, float64(h.LiveNodes))
		links = append(links, float64(h.WeakLinks+h.StrongLinks+h.PermaLinks))
	}

	if cv(live) < 0.2 && cv(links) < 0.2 {
		bd.stableWindowsCount++
	} else {
		bd.stableWindowsCount = 0
	}

	if bd.stableWindowsCount == 5 { // trigger exactly once at 5 windows
		return &Bookmark{
			Type:        BookmarkStableGraph,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Stable graph with %d live nodes over 5+ windows", stats.LiveNodes),
		}
	}
	return nil
}

// cv is the coefficient of variation; zero-mean samples count as stable
// only when every value is zero.
func cv(x []float64) float64 {
	mean, std := stat.MeanStdDev(x, nil)
	if mean == 0 {
		return std
	}
	return std / mean
}
