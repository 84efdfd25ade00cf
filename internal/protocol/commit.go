package protocol

// CommitHash is the content hash naming one commit. The hashing scheme
// belongs to the document engine; this layer only compares hashes for
// equality and carries them around.
type CommitHash string

// Commit is one unit of document history.
type Commit struct {
	Hash     CommitHash
	Parents  []CommitHash
	Contents []byte
}

// CommitBundle is a compressed run of commits, used to transfer long
// stretches of history without shipping every intermediate commit.
type CommitBundle struct {
	Start       CommitHash
	End         CommitHash
	Checkpoints []CommitHash
	Contents    []byte
}
