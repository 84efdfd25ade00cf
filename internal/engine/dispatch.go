package engine

import (
	"fmt"

	"github.com/driftsync/driftsync/internal/ids"
	"github.com/driftsync/driftsync/internal/protocol"
)

// handleEvent routes one dequeued event. Runs only on the Run goroutine.
func (e *Engine) handleEvent(ev Event) {
	switch ev.kind {
	case evIoComplete:
		e.handleIoComplete(ev.io)
	case evBeginCommand:
		if e.stopping {
			e.deliver(Result{CommandID: ev.cmdID, Kind: ev.cmd.kind, Err: newStopped()})
			return
		}
		e.dispatchCommand(ev.cmdID, ev.cmd)
	case evStreamMessage:
		e.handleStreamMessage(ev.streamID, ev.message)
	case evTick:
		e.handleTick()
	default:
		e.log.Error("event with unknown tag dropped", "kind", int(ev.kind))
	}
}

func (e *Engine) handleIoComplete(res IoResult) {
	pt, ok := e.pendingIo[res.TaskID]
	if !ok {
		// Either a collaborator bug or a completion racing shutdown. There
		// is no command to fail, so the log line is the whole report.
		e.log.Warn("completion for unknown storage task dropped",
			"task_id", res.TaskID,
			"action", res.Action.String())
		return
	}
	delete(e.pendingIo, res.TaskID)

	pt.complete(res)

	if !pt.doc.IsZero() {
		e.releaseDoc(pt.doc)
	}
}

func (e *Engine) handleStreamMessage(stream ids.StreamID, message []byte) {
	if _, ok := e.streams[stream]; !ok {
		e.log.Warn("message on unknown stream dropped", "stream_id", stream)
		return
	}
	if err := e.network.HandleMessage(stream, message); err != nil {
		e.log.Warn("stream message handling failed",
			"stream_id", stream,
			"err", err)
	}
}

func (e *Engine) handleTick() {
	e.ticks++

	for reqID, rec := range e.outbound {
		if e.ticks-rec.issued >= outboundExpiryTicks {
			e.log.Debug("outbound request expired",
				"request_id", reqID,
				"endpoint_id", rec.endpoint)
			delete(e.outbound, reqID)
		}
	}

	if e.ticks%announceEveryTicks == 0 {
		e.announce()
	}
}

// announce advertises the local document set to every registered endpoint.
func (e *Engine) announce() {
	if len(e.endpoints) == 0 {
		return
	}

	known := e.index.Docs()
	docTokens := make([]string, len(known))
	for i, d := range known {
		docTokens[i] = d.String()
	}
	payload, err := protocol.EncodeAnnouncement(protocol.Announcement{
		Sender: e.name,
		Docs:   docTokens,
	})
	if err != nil {
		e.log.Error("announcement encoding failed", "err", err)
		return
	}

	for endpoint, audience := range e.endpoints {
		reqID := e.minter.OutboundRequestID()
		e.outbound[reqID] = outboundRecord{endpoint: endpoint, issued: e.ticks}
		if err := e.network.SendRequest(reqID, endpoint, audience, payload); err != nil {
			e.log.Warn("announcement send failed",
				"endpoint_id", endpoint,
				"err", err)
			delete(e.outbound, reqID)
		}
	}
}

// dispatchCommand executes one command. Every arm ends in exactly one
// deliver for the command's CommandID, either here or in a storage
// continuation.
func (e *Engine) dispatchCommand(cmdID ids.CommandID, cmd *Command) {
	e.log.Debug("command dispatched", "command_id", cmdID, "kind", cmd.kind.String())

	switch cmd.kind {
	case CmdHandleRequest:
		e.runHandleRequest(cmdID, cmd.handleRequest)
	case CmdHandleResponse:
		e.runHandleResponse(cmdID, cmd.handleResponse)
	case CmdAddCommits, CmdLoadDoc, CmdAddBundle:
		e.dispatchDocCommand(cmdID, cmd)
	case CmdCreateDoc:
		e.runCreateDoc(cmdID, cmd.createDoc)
	case CmdCreateStream:
		e.runCreateStream(cmdID, *cmd.createStream)
	case CmdDisconnectStream:
		e.runDisconnectStream(cmdID, cmd.streamID)
	case CmdRegisterEndpoint:
		e.runRegisterEndpoint(cmdID, cmd.audience)
	case CmdUnregisterEndpoints:
		e.runUnregisterEndpoint(cmdID, cmd.endpointID)
	case CmdStop:
		e.deliver(Result{CommandID: cmdID, Kind: CmdStop})
		e.shutdown()
	case CmdKeyhive:
		e.runKeyhive(cmdID, cmd.keyhive)
	case CmdQueryStatus:
		e.runQueryStatus(cmdID, cmd.statusDoc)
	default:
		e.deliver(Result{CommandID: cmdID, Kind: cmd.kind, Err: &EngineError{
			Code:    ErrCodeInternal,
			Message: "command with unknown tag",
		}})
	}
}

// dispatchDocCommand applies per-document serialization: a command for a
// document with a storage task in flight waits until the task completes.
// Waiters run in arrival order.
func (e *Engine) dispatchDocCommand(cmdID ids.CommandID, cmd *Command) {
	doc := cmd.docTarget()
	if !e.index.Known(doc) {
		e.deliver(Result{
			CommandID: cmdID,
			Kind:      cmd.kind,
			Err:       NewUnknownIdentifier("document", doc.String()),
		})
		return
	}
	if e.docBusy[doc] {
		e.docWaiting[doc] = append(e.docWaiting[doc], queuedCommand{cmdID: cmdID, cmd: cmd})
		return
	}
	e.runDocCommand(cmdID, cmd)
}

// docTarget returns the document a doc-scoped command addresses.
func (c *Command) docTarget() ids.DocumentID {
	switch c.kind {
	case CmdAddCommits:
		return c.addCommits.doc
	case CmdLoadDoc:
		return c.loadDoc.doc
	case CmdAddBundle:
		return c.addBundle.doc
	default:
		return ids.DocumentID{}
	}
}

// releaseDoc frees a document's serialization slot and starts the oldest
// waiter, if any. Waiters revalidate existence: the document may have been
// dropped by a failed creation while they waited.
func (e *Engine) releaseDoc(doc ids.DocumentID) {
	delete(e.docBusy, doc)

	waiting := e.docWaiting[doc]
	if len(waiting) == 0 {
		delete(e.docWaiting, doc)
		return
	}
	next := waiting[0]
	waiting[0] = queuedCommand{}
	if len(waiting) == 1 {
		delete(e.docWaiting, doc)
	} else {
		e.docWaiting[doc] = waiting[1:]
	}

	if !e.index.Known(doc) {
		e.deliver(Result{
			CommandID: next.cmdID,
			Kind:      next.cmd.kind,
			Err:       NewUnknownIdentifier("document", doc.String()),
		})
		e.releaseDoc(doc)
		return
	}
	e.runDocCommand(next.cmdID, next.cmd)
}

func (e *Engine) runDocCommand(cmdID ids.CommandID, cmd *Command) {
	switch cmd.kind {
	case CmdAddCommits:
		e.runAddCommits(cmdID, cmd.addCommits)
	case CmdLoadDoc:
		e.runLoadDoc(cmdID, cmd.loadDoc)
	case CmdAddBundle:
		e.runAddBundle(cmdID, cmd.addBundle)
	default:
		e.deliver(Result{CommandID: cmdID, Kind: cmd.kind, Err: &EngineError{
			Code:    ErrCodeInternal,
			Message: "non-document command in document queue",
		}})
	}
}

func (e *Engine) runCreateDoc(cmdID ids.CommandID, p *createDocPayload) {
	doc := e.minter.DocumentID()

	if err := e.access.RegisterDoc(doc, p.otherOwners); err != nil {
		e.deliver(Result{CommandID: cmdID, Kind: CmdCreateDoc, Err: asEngineError(err)})
		return
	}

	// Visible immediately so follow-up commands queue behind the creation
	// instead of bouncing off an unknown identifier.
	e.index.Create(doc, p.initial)
	e.docBusy[doc] = true

	initial := p.initial
	initial.Contents = e.access.Seal(doc, initial.Contents)
	payload, err := protocol.EncodeCommits([]protocol.Commit{initial})
	if err != nil {
		e.index.Drop(doc)
		e.deliver(Result{CommandID: cmdID, Kind: CmdCreateDoc, Err: asEngineError(err)})
		e.releaseDoc(doc)
		return
	}

	key := e.commitKey(doc)
	e.submitIo(cmdID, CmdCreateDoc, doc, IoPut, key, payload, func(res IoResult) {
		if !res.OK() {
			e.index.Drop(doc)
			e.deliver(Result{CommandID: cmdID, Kind: CmdCreateDoc, Err: NewIoError(key, res.Err)})
			return
		}
		e.index.Confirm(doc)
		e.deliver(Result{CommandID: cmdID, Kind: CmdCreateDoc, Doc: doc})
	})
}

func (e *Engine) runAddCommits(cmdID ids.CommandID, p *addCommitsPayload) {
	doc := p.doc
	commits := p.commits

	if len(commits) == 0 {
		e.deliver(Result{CommandID: cmdID, Kind: CmdAddCommits, Doc: doc})
		return
	}

	sealed := make([]protocol.Commit, len(commits))
	for i, c := range commits {
		c.Contents = e.access.Seal(doc, c.Contents)
		sealed[i] = c
	}
	payload, err := protocol.EncodeCommits(sealed)
	if err != nil {
		e.deliver(Result{CommandID: cmdID, Kind: CmdAddCommits, Err: asEngineError(err)})
		return
	}

	e.docBusy[doc] = true
	key := e.commitKey(doc)
	e.submitIo(cmdID, CmdAddCommits, doc, IoPut, key, payload, func(res IoResult) {
		if !res.OK() {
			e.deliver(Result{CommandID: cmdID, Kind: CmdAddCommits, Err: NewIoError(key, res.Err)})
			return
		}
		e.index.RecordCommits(doc, commits)
		e.deliver(Result{CommandID: cmdID, Kind: CmdAddCommits, Doc: doc})
	})
}

func (e *Engine) runLoadDoc(cmdID ids.CommandID, p *loadDocPayload) {
	doc := p.doc
	decrypt := p.decrypt

	e.docBusy[doc] = true
	prefix := doc.String() + "/commits/"
	e.submitIo(cmdID, CmdLoadDoc, doc, IoLoadRange, prefix, nil, func(res IoResult) {
		if !res.OK() {
			e.deliver(Result{CommandID: cmdID, Kind: CmdLoadDoc, Err: NewIoError(prefix, res.Err)})
			return
		}

		var commits []protocol.Commit
		for _, entry := range res.Entries {
			batch, err := protocol.DecodeCommits(entry.Value)
			if err != nil {
				e.deliver(Result{CommandID: cmdID, Kind: CmdLoadDoc, Err: &EngineError{
					Code:       ErrCodeInternal,
					Message:    "stored commit batch corrupt: " + err.Error(),
					Identifier: entry.Key,
				}})
				return
			}
			commits = append(commits, batch...)
		}

		if decrypt {
			for i := range commits {
				plain, err := e.access.Decrypt(doc, commits[i].Contents)
				if err != nil {
					e.deliver(Result{CommandID: cmdID, Kind: CmdLoadDoc, Err: asEngineError(err)})
					return
				}
				commits[i].Contents = plain
			}
		}

		e.deliver(Result{CommandID: cmdID, Kind: CmdLoadDoc, Doc: doc, Commits: commits})
	})
}

func (e *Engine) runAddBundle(cmdID ids.CommandID, p *addBundlePayload) {
	doc := p.doc
	bundle := p.bundle

	bundle.Contents = e.access.Seal(doc, bundle.Contents)
	payload, err := protocol.EncodeBundle(bundle)
	if err != nil {
		e.deliver(Result{CommandID: cmdID, Kind: CmdAddBundle, Err: asEngineError(err)})
		return
	}

	e.docBusy[doc] = true
	key := fmt.Sprintf("%s/bundles/%016d", doc, e.keyClock.Next())
	e.submitIo(cmdID, CmdAddBundle, doc, IoPut, key, payload, func(res IoResult) {
		if !res.OK() {
			e.deliver(Result{CommandID: cmdID, Kind: CmdAddBundle, Err: NewIoError(key, res.Err)})
			return
		}
		e.index.RecordBundle(doc, bundle)
		e.deliver(Result{CommandID: cmdID, Kind: CmdAddBundle, Doc: doc})
	})
}

// commitKey returns the next storage key for a commit batch. Keys are
// zero-padded so lexicographic range order matches write order. Keys
// draw from their own counter so result sequence numbers stay dense.
func (e *Engine) commitKey(doc ids.DocumentID) string {
	return fmt.Sprintf("%s/commits/%016d", doc, e.keyClock.Next())
}

func (e *Engine) runHandleRequest(cmdID ids.CommandID, p *handleRequestPayload) {
	resp, err := e.network.HandleRequest(p.request, p.receiveAudience)
	if err != nil {
		e.deliver(Result{CommandID: cmdID, Kind: CmdHandleRequest, Err: asEngineError(err)})
		return
	}
	e.deliver(Result{CommandID: cmdID, Kind: CmdHandleRequest, Response: resp})
}

func (e *Engine) runHandleResponse(cmdID ids.CommandID, p *handleResponsePayload) {
	rec, ok := e.outbound[p.requestID]
	if !ok {
		// Never issued, already resolved, or expired on a tick.
		e.deliver(Result{
			CommandID: cmdID,
			Kind:      CmdHandleResponse,
			Err:       NewUnknownIdentifier("outbound request", p.requestID.String()),
		})
		return
	}
	delete(e.outbound, p.requestID)

	ann, err := protocol.DecodeAnnouncement(p.response.Payload)
	if err == nil {
		e.log.Debug("peer announcement received",
			"endpoint_id", rec.endpoint,
			"peer", ann.Sender,
			"docs", len(ann.Docs))
	}
	e.deliver(Result{CommandID: cmdID, Kind: CmdHandleResponse, Endpoint: rec.endpoint})
}

func (e *Engine) runCreateStream(cmdID ids.CommandID, direction protocol.StreamDirection) {
	stream := e.minter.StreamID()
	e.streams[stream] = direction
	e.network.StreamOpened(stream, direction)
	e.log.Info("stream opened", "stream_id", stream, "direction", direction.String())
	e.deliver(Result{CommandID: cmdID, Kind: CmdCreateStream, Stream: stream})
}

func (e *Engine) runDisconnectStream(cmdID ids.CommandID, stream ids.StreamID) {
	if _, ok := e.streams[stream]; !ok {
		e.deliver(Result{
			CommandID: cmdID,
			Kind:      CmdDisconnectStream,
			Err:       NewUnknownIdentifier("stream", stream.String()),
		})
		return
	}
	delete(e.streams, stream)
	e.network.StreamClosed(stream)
	e.log.Info("stream closed", "stream_id", stream)
	e.deliver(Result{CommandID: cmdID, Kind: CmdDisconnectStream, Stream: stream})
}

func (e *Engine) runRegisterEndpoint(cmdID ids.CommandID, audience protocol.Audience) {
	endpoint := e.minter.EndpointID()
	e.endpoints[endpoint] = audience
	e.network.EndpointRegistered(endpoint, audience)
	e.log.Info("endpoint registered", "endpoint_id", endpoint, "audience", audience.String())
	e.deliver(Result{CommandID: cmdID, Kind: CmdRegisterEndpoint, Endpoint: endpoint})
}

func (e *Engine) runUnregisterEndpoint(cmdID ids.CommandID, endpoint ids.EndpointID) {
	if _, ok := e.endpoints[endpoint]; !ok {
		e.deliver(Result{
			CommandID: cmdID,
			Kind:      CmdUnregisterEndpoints,
			Err:       NewUnknownIdentifier("endpoint", endpoint.String()),
		})
		return
	}
	delete(e.endpoints, endpoint)

	// In-flight requests toward the endpoint lose their destination; any
	// response that still arrives is rejected as unknown.
	for reqID, rec := range e.outbound {
		if rec.endpoint == endpoint {
			delete(e.outbound, reqID)
		}
	}

	e.network.EndpointUnregistered(endpoint)
	e.log.Info("endpoint unregistered", "endpoint_id", endpoint)
	e.deliver(Result{CommandID: cmdID, Kind: CmdUnregisterEndpoints, Endpoint: endpoint})
}

func (e *Engine) runKeyhive(cmdID ids.CommandID, kc *KeyhiveCommand) {
	res := Result{CommandID: cmdID, Kind: CmdKeyhive}

	switch kc.kind {
	case KeyhiveAddMemberToDoc:
		if !e.index.Known(kc.doc) {
			res.Err = NewUnknownIdentifier("document", kc.doc.String())
			break
		}
		if err := e.access.AddMemberToDoc(kc.doc, kc.member, kc.access); err != nil {
			res.Err = asEngineError(err)
			break
		}
		res.Doc = kc.doc

	case KeyhiveRemoveMemberFromDoc:
		if !e.index.Known(kc.doc) {
			res.Err = NewUnknownIdentifier("document", kc.doc.String())
			break
		}
		if err := e.access.RemoveMemberFromDoc(kc.doc, kc.member); err != nil {
			res.Err = asEngineError(err)
			break
		}
		res.Doc = kc.doc

	case KeyhiveQueryAccess:
		if !e.index.Known(kc.doc) {
			res.Err = NewUnknownIdentifier("document", kc.doc.String())
			break
		}
		access, err := e.access.QueryAccess(kc.doc)
		if err != nil {
			res.Err = asEngineError(err)
			break
		}
		res.Doc = kc.doc
		res.Access = access

	case KeyhiveCreateGroup:
		group, err := e.access.CreateGroup(kc.owners)
		if err != nil {
			res.Err = asEngineError(err)
			break
		}
		res.Entity = group

	case KeyhiveAddMemberToGroup:
		if err := e.access.AddMemberToGroup(kc.add); err != nil {
			res.Err = asEngineError(err)
		}

	case KeyhiveRemoveMemberFromGroup:
		if err := e.access.RemoveMemberFromGroup(kc.remove); err != nil {
			res.Err = asEngineError(err)
		}

	case KeyhiveCreateContactCard:
		card, err := e.access.CreateContactCard()
		if err != nil {
			res.Err = asEngineError(err)
			break
		}
		res.Card = card

	default:
		res.Err = &EngineError{Code: ErrCodeInternal, Message: "keyhive command with unknown tag"}
	}

	e.deliver(res)
}

func (e *Engine) runQueryStatus(cmdID ids.CommandID, doc ids.DocumentID) {
	status := e.index.Status(doc)
	if !status.Exists {
		e.deliver(Result{
			CommandID: cmdID,
			Kind:      CmdQueryStatus,
			Err:       NewUnknownIdentifier("document", doc.String()),
		})
		return
	}
	e.deliver(Result{CommandID: cmdID, Kind: CmdQueryStatus, Doc: doc, Status: status})
}
