// Package ordernum issues short human-readable order numbers.
package ordernum

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
)

const prefix = "PM-"

type Generator struct {
	node *snowflake.Node
}

// New returns a generator for node id (0-1023). Each process must use a distinct id.
func New(nodeID int64) (*Generator, error) {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("ordernum: %w", err)
	}
	return &Generator{node: n}, nil
}

func (g *Generator) Next() string {
	return prefix + strings.ToUpper(g.node.Generate().Base36())
}
