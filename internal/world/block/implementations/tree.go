package implementations

import "github.com/annel0/blockverse/internal/world/block"

// TreeBehavior описывает части дерева: ствол непрозрачен, листва рассеивает свет
type TreeBehavior struct {
	simpleBehavior
}

func newOakLog() *TreeBehavior {
	return &TreeBehavior{simpleBehavior{id: block.OakLogBlockID, name: "oak_log"}}
}

func newOakLeaves() *TreeBehavior {
	return &TreeBehavior{simpleBehavior{
		id:   block.OakLeavesBlockID,
		name: "oak_leaves",
		tags: block.TagSemitransparent,
	}}
}
