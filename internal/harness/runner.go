package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/driftsync/driftsync/internal/engine"
	"github.com/driftsync/driftsync/internal/ids"
	"github.com/driftsync/driftsync/internal/keyhive"
	"github.com/driftsync/driftsync/internal/protocol"
	"github.com/driftsync/driftsync/internal/store"
	"github.com/driftsync/driftsync/internal/transport"
)

const stepTimeout = 5 * time.Second

// TraceEvent is one resolved scenario step. Field order is the golden file
// layout; keep it stable.
type TraceEvent struct {
	Step      int    `json:"step"`
	Op        string `json:"op"`
	Encrypted bool   `json:"encrypted,omitempty"`

	Status     string `json:"status"`
	Identifier string `json:"identifier,omitempty"`

	Doc      string `json:"doc,omitempty"`
	Stream   string `json:"stream,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
	Entity   string `json:"entity,omitempty"`

	Commits  int      `json:"commits,omitempty"`
	Contents []string `json:"contents,omitempty"`

	DocStatus *StatusTrace `json:"doc_status,omitempty"`
}

// StatusTrace is the introspection snapshot in trace form.
type StatusTrace struct {
	Exists      bool     `json:"exists"`
	Durable     bool     `json:"durable"`
	CommitCount int      `json:"commit_count"`
	BundleCount int      `json:"bundle_count"`
	Heads       []string `json:"heads,omitempty"`
}

// Result is a finished scenario run.
type Result struct {
	Scenario string       `json:"scenario"`
	Trace    []TraceEvent `json:"trace"`
}

// runner holds one scenario execution's live pieces and label tables.
type runner struct {
	eng *engine.Engine
	in  *engine.Ingress

	docs      map[string]ids.DocumentID
	streams   map[string]ids.StreamID
	endpoints map[string]ids.EndpointID
}

// Run executes a scenario against a fully wired engine. Identifier sources
// are fixed counting sources, so the trace is deterministic.
func Run(sc *Scenario, baseDir string) (*Result, error) {
	dir, err := os.MkdirTemp("", "driftsync-harness-*")
	if err != nil {
		return nil, fmt.Errorf("harness temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "harness.db"))
	if err != nil {
		return nil, fmt.Errorf("harness store: %w", err)
	}
	defer st.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	khOpts := []keyhive.Option{keyhive.WithTokenSource(ids.NewPrefixedSource("e"))}
	if sc.Policy != "" {
		policy, err := keyhive.LoadPolicy(filepath.Join(baseDir, sc.Policy))
		if err != nil {
			return nil, fmt.Errorf("harness policy: %w", err)
		}
		khOpts = append(khOpts, keyhive.WithPolicy(policy))
	}
	kh := keyhive.New(khOpts...)

	net := transport.NewLoopback(log)

	var eng *engine.Engine
	exec := store.NewExecutor(st, log, func(res engine.IoResult) {
		eng.Submit(eng.Ingress().IoComplete(res))
	})
	defer exec.Close()

	eng = engine.New(exec, kh, net,
		engine.WithTokenSource(ids.NewPrefixedSource("t")),
		engine.WithLogger(log),
	)
	net.Attach(eng)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	r := &runner{
		eng:       eng,
		in:        eng.Ingress(),
		docs:      make(map[string]ids.DocumentID),
		streams:   make(map[string]ids.StreamID),
		endpoints: make(map[string]ids.EndpointID),
	}

	result := &Result{Scenario: sc.Name}
	for i, step := range sc.Steps {
		ev, err := r.runStep(i+1, step)
		if err != nil {
			return nil, err
		}
		if ev != nil {
			result.Trace = append(result.Trace, *ev)
		}
	}

	eng.Submit(eng.Ingress().Stop())
	select {
	case <-done:
	case <-time.After(stepTimeout):
		return nil, fmt.Errorf("engine did not stop")
	}

	return result, nil
}

func (r *runner) runStep(num int, step Step) (*TraceEvent, error) {
	if step.Op == OpTick {
		count := step.Count
		if count == 0 {
			count = 1
		}
		for i := 0; i < count; i++ {
			if !r.eng.Submit(r.in.Tick()) {
				return nil, fmt.Errorf("step %d: tick rejected", num)
			}
		}
		return nil, nil
	}

	cmdID, ev, err := r.buildEvent(num, step)
	if err != nil {
		return nil, err
	}
	if !r.eng.Submit(ev) {
		return nil, fmt.Errorf("step %d: submit rejected", num)
	}

	var res engine.Result
	select {
	case res = <-r.eng.Claim(cmdID):
	case <-time.After(stepTimeout):
		return nil, fmt.Errorf("step %d (%s): no result within %s", num, step.Op, stepTimeout)
	}

	trace := r.record(num, step, res)

	want := step.Expect
	if want == "" {
		want = "ok"
	}
	if trace.Status != want {
		return nil, fmt.Errorf("step %d (%s): status %q, expected %q", num, step.Op, trace.Status, want)
	}

	if step.As != "" && res.OK() {
		r.label(step.As, res)
	}
	return trace, nil
}

func (r *runner) buildEvent(num int, step Step) (ids.CommandID, engine.Event, error) {
	switch step.Op {
	case OpCreateDoc:
		cmdID, ev := r.in.CreateDoc(protocol.Commit{
			Hash:     protocol.CommitHash(step.Hash),
			Parents:  hashes(step.Parents),
			Contents: []byte(step.Contents),
		}, nil)
		return cmdID, ev, nil
	case OpAddCommits:
		doc, err := r.resolveDoc(num, step.Doc)
		if err != nil {
			return ids.CommandID{}, engine.Event{}, err
		}
		cmdID, ev := r.in.AddCommits(doc, []protocol.Commit{{
			Hash:     protocol.CommitHash(step.Hash),
			Parents:  hashes(step.Parents),
			Contents: []byte(step.Contents),
		}})
		return cmdID, ev, nil
	case OpLoadDoc:
		doc, err := r.resolveDoc(num, step.Doc)
		if err != nil {
			return ids.CommandID{}, engine.Event{}, err
		}
		if step.Encrypted {
			cmdID, ev := r.in.LoadDocEncrypted(doc)
			return cmdID, ev, nil
		}
		cmdID, ev := r.in.LoadDoc(doc)
		return cmdID, ev, nil
	case OpAddBundle:
		doc, err := r.resolveDoc(num, step.Doc)
		if err != nil {
			return ids.CommandID{}, engine.Event{}, err
		}
		cmdID, ev := r.in.AddBundle(doc, protocol.CommitBundle{
			Start:       protocol.CommitHash(step.Start),
			End:         protocol.CommitHash(step.End),
			Checkpoints: hashes(step.Checkpoints),
			Contents:    []byte(step.Contents),
		})
		return cmdID, ev, nil
	case OpQueryStatus:
		doc, err := r.resolveDoc(num, step.Doc)
		if err != nil {
			return ids.CommandID{}, engine.Event{}, err
		}
		cmdID, ev := r.in.QueryStatus(doc)
		return cmdID, ev, nil
	case OpQueryAccess:
		doc, err := r.resolveDoc(num, step.Doc)
		if err != nil {
			return ids.CommandID{}, engine.Event{}, err
		}
		cmdID, ev := r.in.QueryAccess(doc)
		return cmdID, ev, nil
	case OpCreateStream:
		cmdID, ev := r.in.CreateStream(protocol.Initiate(protocol.ServiceName(step.Audience)))
		return cmdID, ev, nil
	case OpDisconnectStream:
		cmdID, ev := r.in.DisconnectStream(r.resolveStream(step.Stream))
		return cmdID, ev, nil
	case OpRegisterEndpoint:
		cmdID, ev := r.in.RegisterEndpoint(protocol.ServiceName(step.Audience))
		return cmdID, ev, nil
	case OpUnregisterEndpoint:
		cmdID, ev := r.in.UnregisterEndpoint(r.resolveEndpoint(step.Endpoint))
		return cmdID, ev, nil
	case OpCreateGroup:
		cmdID, ev := r.in.CreateGroup(nil)
		return cmdID, ev, nil
	case OpCreateContactCard:
		cmdID, ev := r.in.CreateContactCard()
		return cmdID, ev, nil
	default:
		return ids.CommandID{}, engine.Event{}, fmt.Errorf("step %d: unknown op %q", num, step.Op)
	}
}

func (r *runner) record(num int, step Step, res engine.Result) *TraceEvent {
	ev := &TraceEvent{
		Step:      num,
		Op:        step.Op,
		Encrypted: step.Encrypted,
		Status:    "ok",
	}
	if res.Err != nil {
		ev.Status = string(res.Err.Code)
		ev.Identifier = res.Err.Identifier
		return ev
	}

	if !res.Doc.IsZero() {
		ev.Doc = res.Doc.String()
	}
	if !res.Stream.IsZero() {
		ev.Stream = res.Stream.String()
	}
	if !res.Endpoint.IsZero() {
		ev.Endpoint = res.Endpoint.String()
	}
	if !res.Entity.IsZero() {
		ev.Entity = res.Entity.String()
	}
	if res.Kind == engine.CmdKeyhive && res.Card.Card != nil {
		ev.Entity = res.Card.Entity.String()
	}
	if res.Kind == engine.CmdLoadDoc {
		ev.Commits = len(res.Commits)
		for _, c := range res.Commits {
			ev.Contents = append(ev.Contents, string(c.Contents))
		}
	}
	if res.Kind == engine.CmdQueryStatus {
		st := &StatusTrace{
			Exists:      res.Status.Exists,
			Durable:     res.Status.Durable,
			CommitCount: res.Status.CommitCount,
			BundleCount: res.Status.BundleCount,
		}
		for _, h := range res.Status.Heads {
			st.Heads = append(st.Heads, string(h))
		}
		ev.DocStatus = st
	}
	return ev
}

// label binds a step's "as" name to whichever identifier the result minted.
func (r *runner) label(name string, res engine.Result) {
	switch {
	case !res.Doc.IsZero():
		r.docs[name] = res.Doc
	case !res.Stream.IsZero():
		r.streams[name] = res.Stream
	case !res.Endpoint.IsZero():
		r.endpoints[name] = res.Endpoint
	}
}

// resolveDoc maps a label to its minted DocumentID, or treats the name as a
// literal token so scenarios can reference documents that do not exist.
func (r *runner) resolveDoc(num int, name string) (ids.DocumentID, error) {
	if doc, ok := r.docs[name]; ok {
		return doc, nil
	}
	doc, ok := ids.ParseDocumentID(name)
	if !ok {
		return ids.DocumentID{}, fmt.Errorf("step %d: unresolvable document %q", num, name)
	}
	return doc, nil
}

func (r *runner) resolveStream(name string) ids.StreamID {
	return r.streams[name]
}

func (r *runner) resolveEndpoint(name string) ids.EndpointID {
	return r.endpoints[name]
}

func hashes(ss []string) []protocol.CommitHash {
	if len(ss) == 0 {
		return nil
	}
	out := make([]protocol.CommitHash, len(ss))
	for i, s := range ss {
		out[i] = protocol.CommitHash(s)
	}
	return out
}
