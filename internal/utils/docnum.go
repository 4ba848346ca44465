package utils

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// DocumentNumberGenerator issues unique, time-ordered document numbers.
type DocumentNumberGenerator struct {
	node *snowflake.Node
}

func NewDocumentNumberGenerator(nodeID int64) (*DocumentNumberGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}
	return &DocumentNumberGenerator{node: node}, nil
}

func (g *DocumentNumberGenerator) Next(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, g.node.Generate().String())
}
