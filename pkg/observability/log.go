package observability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// LogNotifier reports workflow outcomes as log lines. Messages read like
// the canvas toasts they stand in for.
type LogNotifier struct {
	Logger *log.Logger
}

// NewLogNotifier returns a notifier writing to l. A nil logger selects
// log.Default().
func NewLogNotifier(l *log.Logger) *LogNotifier {
	if l == nil {
		l = log.Default()
	}
	return &LogNotifier{Logger: l}
}

func (n *LogNotifier) NodeAdded(_ context.Context, id, kind string) {
	n.Logger.Info(fmt.Sprintf("Added a new %s node to the workflow", kind), "id", id)
}

func (n *LogNotifier) NodeDeleted(_ context.Context, id string) {
	n.Logger.Debug("Deleted node", "id", id)
}

func (n *LogNotifier) EdgeAdded(_ context.Context, id, source, target string) {
	n.Logger.Debug("Connected nodes", "id", id, "source", source, "target", target)
}

func (n *LogNotifier) SelectionDeleted(_ context.Context, nodes, edges int) {
	n.Logger.Info(fmt.Sprintf("Deleted %d nodes and %d edges", nodes, edges))
}

func (n *LogNotifier) ValidationFailed(_ context.Context, id string, fields []string) {
	n.Logger.Warn("Please fill in the required fields: "+strings.Join(fields, ", "), "id", id)
}

func (n *LogNotifier) Imported(_ context.Context, nodes, edges int) {
	n.Logger.Info("Your workflow has been imported successfully", "nodes", nodes, "edges", edges)
}

func (n *LogNotifier) ImportFailed(_ context.Context, err error) {
	n.Logger.Error("Failed to import workflow. Invalid format.", "err", err)
}

func (n *LogNotifier) Exported(_ context.Context, nodes, edges int) {
	n.Logger.Info("Your workflow has been exported as JSON", "nodes", nodes, "edges", edges)
}

func (n *LogNotifier) HistoryChanged(_ context.Context, canUndo, canRedo bool) {
	n.Logger.Debug("History changed", "undo", canUndo, "redo", canRedo)
}

// LogHTTPHooks logs API traffic at debug level.
type LogHTTPHooks struct {
	Logger *log.Logger
}

// NewLogHTTPHooks returns HTTP hooks writing to l.
func NewLogHTTPHooks(l *log.Logger) *LogHTTPHooks {
	if l == nil {
		l = log.Default()
	}
	return &LogHTTPHooks{Logger: l}
}

func (h *LogHTTPHooks) OnRequest(_ context.Context, method, path string) {}

func (h *LogHTTPHooks) OnResponse(_ context.Context, method, path string, status int, d time.Duration) {
	h.Logger.Debug(method+" "+path, "status", status, "took", d.Round(time.Microsecond))
}
