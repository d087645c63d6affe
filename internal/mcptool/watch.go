package mcptool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	defaultWatchSeconds = 10
	maxWatchSeconds     = 300
)

// WatchInput is the MCP tool input for observing filesystem changes.
type WatchInput struct {
	Path            string `json:"path" jsonschema:"directory or file to watch"`
	DurationSeconds int    `json:"duration_seconds,omitempty" jsonschema:"how long to watch (default 10, max 300)"`
}

// ChangeEvent is one observed filesystem change.
type ChangeEvent struct {
	Path string `json:"path" jsonschema:"path that changed"`
	Op   string `json:"op" jsonschema:"operation: CREATE, WRITE, REMOVE, RENAME or CHMOD"`
	At   string `json:"at" jsonschema:"RFC3339 timestamp of the event"`
}

// WatchResult is the MCP tool output for a watch window.
type WatchResult struct {
	Events []ChangeEvent `json:"events" jsonschema:"changes observed during the window"`
	Count  int           `json:"count" jsonschema:"number of changes observed"`
}

// WatchTool defines the MCP tool schema for watching a path.
func WatchTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "watch_path",
		Description: "Watch a file or directory for a bounded time window and report every change",
	}
}

// WatchHandler collects fsnotify events until the window closes or the
// call is canceled.
func WatchHandler() mcp.ToolHandlerFor[WatchInput, WatchResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input WatchInput) (*mcp.CallToolResult, WatchResult, error) {
		path := strings.TrimSpace(input.Path)
		if path == "" {
			return nil, WatchResult{}, fmt.Errorf("path is required")
		}

		seconds := input.DurationSeconds
		if seconds <= 0 {
			seconds = defaultWatchSeconds
		}
		if seconds > maxWatchSeconds {
			seconds = maxWatchSeconds
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, WatchResult{}, fmt.Errorf("create watcher failed: %w", err)
		}
		defer watcher.Close()

		if err := watcher.Add(path); err != nil {
			return nil, WatchResult{}, fmt.Errorf("watch %s failed: %w", path, err)
		}

		deadline := time.After(time.Duration(seconds) * time.Second)
		events := []ChangeEvent{}
		for {
			select {
			case <-ctx.Done():
				return nil, WatchResult{Events: events, Count: len(events)}, nil
			case <-deadline:
				return nil, WatchResult{Events: events, Count: len(events)}, nil
			case ev, ok := <-watcher.Events:
				if !ok {
					return nil, WatchResult{Events: events, Count: len(events)}, nil
				}
				events = append(events, ChangeEvent{
					Path: ev.Name,
					Op:   ev.Op.String(),
					At:   time.Now().Format(time.RFC3339),
				})
			case watchErr, ok := <-watcher.Errors:
				if !ok {
					return nil, WatchResult{Events: events, Count: len(events)}, nil
				}
				return nil, WatchResult{}, fmt.Errorf("watch failed: %w", watchErr)
			}
		}
	}
}
