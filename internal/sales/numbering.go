package sales

import (
	"fmt"
	"sync/atomic"

	"github.com/bwmarrin/snowflake"
)

// Numberer hands out order numbers. Each call returns a value greater than
// every value it returned before.
type Numberer interface {
	Next() int64
}

// SnowflakeNumberer generates time-ordered order numbers that stay unique
// across nodes with distinct node ids.
type SnowflakeNumberer struct {
	node *snowflake.Node
}

// NewSnowflakeNumberer creates a numberer for the given node id (0-1023).
func NewSnowflakeNumberer(nodeID int64) (*SnowflakeNumberer, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}
	return &SnowflakeNumberer{node: node}, nil
}

func (n *SnowflakeNumberer) Next() int64 {
	return n.node.Generate().Int64()
}

// Sequence is an in-process counter starting after its initial value.
type Sequence struct {
	last atomic.Int64
}

// NewSequence returns a Sequence whose first number is start+1.
func NewSequence(start int64) *Sequence {
	s := &Sequence{}
	s.last.Store(start)
	return s
}

func (s *Sequence) Next() int64 {
	return s.last.Add(1)
}
