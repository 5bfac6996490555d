package notify

import (
	"encoding/json"
	"sync"

	"github.com/mschirtzinger/rsmlwatch/internal/pathutil"
)

// Artifact is a compiled sheet. Paths are relative to the input and output
// roots.
type Artifact struct {
	Source string `json:"source"`
	Output string `json:"output"`
}

// Failure is a sheet that did not compile.
type Failure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// RebuildData is everything one build pass did. Lists are never null.
type RebuildData struct {
	Pass           int        `json:"pass"`
	Written        []Artifact `json:"written"`
	Removed        []string   `json:"removed"`
	Failed         []Failure  `json:"failed"`
	ConfigReloaded bool       `json:"config_reloaded"`
	ChangedAliases []string   `json:"changed_aliases"`
}

func (d *RebuildData) empty() bool {
	return len(d.Written) == 0 && len(d.Removed) == 0 && len(d.Failed) == 0 && !d.ConfigReloaded
}

// HelloData is sent on connect.
type HelloData struct {
	InputRoot  string `json:"input_root"`
	OutputRoot string `json:"output_root"`
	Passes     int    `json:"passes"`
	Written    int    `json:"written"`
	Failed     int    `json:"failed"`
}

// Notifier collects build notifications and publishes one rebuild message
// per pass. It satisfies build.Observer.
type Notifier struct {
	server *Server
	input  string
	output string

	mu      sync.Mutex
	pending RebuildData
	passes  int
	written int
	failed  int
}

// NewNotifier creates a Notifier that publishes through server.
func NewNotifier(server *Server, inputRoot, outputRoot string) *Notifier {
	n := &Notifier{server: server, input: inputRoot, output: outputRoot}
	server.hello = n.hello
	return n
}

func (n *Notifier) ArtifactWritten(src, out string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.written++
	n.pending.Written = append(n.pending.Written, Artifact{
		Source: relative(src, n.input),
		Output: relative(out, n.output),
	})
}

func (n *Notifier) ArtifactRemoved(out string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending.Removed = append(n.pending.Removed, relative(out, n.output))
}

func (n *Notifier) CompileFailed(src string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed++
	n.pending.Failed = append(n.pending.Failed, Failure{Source: relative(src, n.input), Error: msg})
}

func (n *Notifier) ConfigReloaded(changed []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending.ConfigReloaded = true
	n.pending.ChangedAliases = append(n.pending.ChangedAliases, changed...)
}

// PassFinished publishes what the pass did. Passes with no visible effect
// publish nothing.
func (n *Notifier) PassFinished() {
	n.mu.Lock()
	data := n.pending
	n.pending = RebuildData{}
	if data.empty() {
		n.mu.Unlock()
		return
	}
	n.passes++
	data.Pass = n.passes
	n.mu.Unlock()

	data.Written = nonNil(data.Written)
	data.Removed = nonNil(data.Removed)
	data.Failed = nonNil(data.Failed)
	data.ChangedAliases = nonNil(data.ChangedAliases)

	raw, err := json.Marshal(data)
	if err != nil {
		n.server.logger.Printf("Failed to encode pass %d: %v", data.Pass, err)
		return
	}
	n.server.Publish(Message{Type: MessageTypeRebuild, Data: raw})
}

func (n *Notifier) hello() Message {
	n.mu.Lock()
	data := HelloData{
		InputRoot:  n.input,
		OutputRoot: n.output,
		Passes:     n.passes,
		Written:    n.written,
		Failed:     n.failed,
	}
	n.mu.Unlock()

	raw, err := json.Marshal(data)
	if err != nil {
		return Message{Type: MessageTypeHello}
	}
	return Message{Type: MessageTypeHello, Data: raw}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func relative(path, root string) string {
	if rel, ok := pathutil.Relative(path, root); ok {
		return rel
	}
	return path
}
