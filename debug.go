package lantern

import (
	"fmt"
	"log/slog"
	"time"
)

// globalDebug mirrors the most recently set Stage debug flag so that node
// operations (which may run before a node is attached) can check it cheaply.
// Only valid with a single Stage; multiple Stages with differing debug modes
// reflect whichever called SetDebugMode last.
var globalDebug bool

// FrameStats holds per-frame counters and timings. Timings are only measured
// in debug mode.
type FrameStats struct {
	Frame               int64
	NodesUpdated        int
	ZContextsSorted     int
	Events              int
	Quads               int
	Runs                int
	TexturizersRendered int
	TexturizersReused   int
	UpdateTime          time.Duration
	RenderTime          time.Duration
	Atlas               AtlasStats
}

// SetDebugMode enables or disables debug mode. When enabled, disposed-node
// access panics, tree depth and child count warnings are logged, and per-frame
// stats are logged at debug level (the default logger is lowered to debug
// level while enabled).
func (s *Stage) SetDebugMode(enabled bool) {
	s.debug = enabled
	globalDebug = enabled
	if enabled {
		s.logLevel.Set(slog.LevelDebug)
	} else {
		s.logLevel.Set(slog.LevelInfo)
	}
}

// Stats returns the counters of the most recent frame.
func (s *Stage) Stats() FrameStats {
	return s.stats
}

func (s *Stage) atlasStats() AtlasStats {
	if s.atlas == nil {
		return AtlasStats{}
	}
	return s.atlas.Stats()
}

// debugLog writes the frame's stats to the stage logger.
func (s *Stage) debugLog() {
	st := &s.stats
	s.logger.Debug("frame",
		"frame", st.Frame,
		"update", st.UpdateTime,
		"render", st.RenderTime,
		"nodes", st.NodesUpdated,
		"zsorts", st.ZContextsSorted,
		"quads", st.Quads,
		"runs", st.Runs,
		"offscreen", st.TexturizersRendered,
		"cached", st.TexturizersReused,
		"events", st.Events,
	)
	s.logger.Debug("textures",
		"sources", s.textures.NumSources(),
		"memory", s.textures.UsedMemory(),
		"atlas", st.Atlas.String(),
	)
}

// debugLogger returns the logger of n's stage, or the default logger for
// detached nodes.
func debugLogger(n *Node) *slog.Logger {
	if n.stage != nil {
		return n.stage.logger
	}
	return slog.Default()
}

// debugCheckDisposed panics with a descriptive message when a disposed node is
// used in a tree operation.
func debugCheckDisposed(n *Node, op string) {
	if n.disposed {
		panic(fmt.Sprintf("lantern debug: %s on disposed node %q", op, n.Name))
	}
}

const debugMaxTreeDepth = 32

// debugCheckTreeDepth warns when the tree gets deeper than debugMaxTreeDepth.
func debugCheckTreeDepth(n *Node) {
	depth := 0
	for p := n; p != nil; p = p.parent {
		depth++
	}
	if depth > debugMaxTreeDepth {
		debugLogger(n).Warn("tree depth exceeds threshold", "node", n.Name, "depth", depth, "threshold", debugMaxTreeDepth)
	}
}

const debugMaxChildCount = 1000

// debugCheckChildCount warns when a node has more than debugMaxChildCount
// children.
func debugCheckChildCount(n *Node) {
	if len(n.children) > debugMaxChildCount {
		debugLogger(n).Warn("child count exceeds threshold", "node", n.Name, "children", len(n.children), "threshold", debugMaxChildCount)
	}
}
