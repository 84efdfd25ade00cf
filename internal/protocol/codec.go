package protocol

import (
	cbor "github.com/fxamacker/cbor/v2"
)

// Storage and loopback framing use deterministic CBOR (RFC 8949 core
// profile): the same value always encodes to the same bytes, which keeps
// golden traces and content comparisons stable. This is a host-side
// convenience encoding, not a wire format commitment.

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic("protocol: cbor enc mode: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("protocol: cbor dec mode: " + err.Error())
	}
}

type wireCommit struct {
	Hash     string   `cbor:"1,keyasint"`
	Parents  []string `cbor:"2,keyasint"`
	Contents []byte   `cbor:"3,keyasint"`
}

type wireBundle struct {
	Start       string   `cbor:"1,keyasint"`
	End         string   `cbor:"2,keyasint"`
	Checkpoints []string `cbor:"3,keyasint"`
	Contents    []byte   `cbor:"4,keyasint"`
}

// EncodeCommits serializes a batch of commits.
func EncodeCommits(commits []Commit) ([]byte, error) {
	out := make([]wireCommit, len(commits))
	for i, c := range commits {
		out[i] = wireCommit{
			Hash:     string(c.Hash),
			Parents:  hashStrings(c.Parents),
			Contents: c.Contents,
		}
	}
	return encMode.Marshal(out)
}

// DecodeCommits parses a batch previously written by EncodeCommits.
func DecodeCommits(data []byte) ([]Commit, error) {
	var in []wireCommit
	if err := decMode.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	out := make([]Commit, len(in))
	for i, w := range in {
		out[i] = Commit{
			Hash:     CommitHash(w.Hash),
			Parents:  stringHashes(w.Parents),
			Contents: w.Contents,
		}
	}
	return out, nil
}

// EncodeBundle serializes a commit bundle.
func EncodeBundle(b CommitBundle) ([]byte, error) {
	return encMode.Marshal(wireBundle{
		Start:       string(b.Start),
		End:         string(b.End),
		Checkpoints: hashStrings(b.Checkpoints),
		Contents:    b.Contents,
	})
}

// DecodeBundle parses a bundle previously written by EncodeBundle.
func DecodeBundle(data []byte) (CommitBundle, error) {
	var w wireBundle
	if err := decMode.Unmarshal(data, &w); err != nil {
		return CommitBundle{}, err
	}
	return CommitBundle{
		Start:       CommitHash(w.Start),
		End:         CommitHash(w.End),
		Checkpoints: stringHashes(w.Checkpoints),
		Contents:    w.Contents,
	}, nil
}

// Announcement is the periodic peer advertisement: which documents the
// sender holds and what it calls itself.
type Announcement struct {
	Sender string   `cbor:"1,keyasint"`
	Docs   []string `cbor:"2,keyasint"`
}

// EncodeAnnouncement serializes a peer announcement.
func EncodeAnnouncement(a Announcement) ([]byte, error) {
	return encMode.Marshal(a)
}

// DecodeAnnouncement parses an announcement payload.
func DecodeAnnouncement(data []byte) (Announcement, error) {
	var a Announcement
	if err := decMode.Unmarshal(data, &a); err != nil {
		return Announcement{}, err
	}
	return a, nil
}

func hashStrings(hs []CommitHash) []string {
	if hs == nil {
		return nil
	}
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = string(h)
	}
	return out
}

func stringHashes(ss []string) []CommitHash {
	if ss == nil {
		return nil
	}
	out := make([]CommitHash, len(ss))
	for i, s := range ss {
		out[i] = CommitHash(s)
	}
	return out
}
