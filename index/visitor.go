package index

import "github.com/wkalt/ckpt/checkpoint"

/*
Searches are driven by a visitor: the tree walks nodes and asks the visitor to
compare each entry it lands on, and the visitor keeps whatever it learns. The
same encoding comes out of every backend: the rank of an exact match, or
-(floorRank+1)-1 where the floor is the greatest checkpoint below the key
(floorRank is -1 if there is none).
*/

////////////////////////////////////////////////////////////////////////////////

// Visitor is called on the entries a tree search visits.
type Visitor interface {
	// Compare returns the sign of entry relative to the searched key: -1 if
	// entry sorts before it, 0 on a match, 1 after.
	Compare(entry *checkpoint.Checkpoint) int
}

// CheckpointVisitor finds a checkpoint or its floor.
type CheckpointVisitor struct {
	key   *checkpoint.Checkpoint
	floor *checkpoint.Checkpoint
	exact bool
}

// NewCheckpointVisitor returns a visitor searching for key.
func NewCheckpointVisitor(key *checkpoint.Checkpoint) *CheckpointVisitor {
	return &CheckpointVisitor{key: key}
}

func (v *CheckpointVisitor) Compare(entry *checkpoint.Checkpoint) int {
	c := entry.Compare(v.key)
	if c <= 0 && !v.exact {
		v.floor = entry
		v.exact = c == 0
	}
	return c
}

// Found reports whether an exact match was visited.
func (v *CheckpointVisitor) Found() bool {
	return v.exact
}

// Checkpoint returns the match or the floor, or nil if neither was visited.
func (v *CheckpointVisitor) Checkpoint() *checkpoint.Checkpoint {
	return v.floor
}

// Rank returns the encoded search result.
func (v *CheckpointVisitor) Rank() int64 {
	if v.floor == nil {
		return -1
	}
	if v.exact {
		return v.floor.Rank
	}
	return -(v.floor.Rank + 1) - 1
}
