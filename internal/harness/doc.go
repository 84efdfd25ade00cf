// Package harness runs declarative YAML scenarios against a fully wired
// engine: real storage, access control, and loopback transport, with
// deterministic identifier sources so two runs of one scenario produce
// byte-identical traces.
//
// Scenarios drive the public ingress surface only. The trace they produce is
// the observable contract (which command resolved, with what outcome, in
// what order) and is compared against golden files in tests.
package harness
