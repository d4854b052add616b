package utils

import (
	"sort"
	"time"

	"kejinlab/internal/models"
)

// DateLayout 评论时间的展示格式
const DateLayout = "2006-01-02 15:04"

// CommentNode 建树后的评论节点：根节点 Depth=0，所有回复 Depth=1
type CommentNode struct {
	models.Comment
	AvatarURL string
	Date      string
	Depth     int
	Replies   []*CommentNode
}

// FormatDate renders a comment timestamp for display.
func FormatDate(t time.Time) string {
	return t.Local().Format(DateLayout)
}

// BuildForest turns flat comment rows into an ordered forest.
//
// Every reply hangs directly under its nearest enclosing root, however deep the
// stored parent chain is, so the forest is at most two levels. Replies keep input
// order; roots are ordered newest first (stable for equal timestamps). Rows whose
// parent is missing, and rows on a parent cycle, become roots. With duplicate ids
// the last row wins. The walk is iterative.
func BuildForest(rows []models.Comment) []*CommentNode {
	forest := make([]*CommentNode, 0)
	if len(rows) == 0 {
		return forest
	}

	last := make(map[uint]int, len(rows))
	for i := range rows {
		last[rows[i].ID] = i
	}

	nodes := make(map[uint]*CommentNode, len(last))
	order := make([]uint, 0, len(last))
	for i := range rows {
		row := rows[i]
		if last[row.ID] != i {
			continue
		}
		nodes[row.ID] = &CommentNode{
			Comment:   row,
			AvatarURL: AvatarURL(row.Avatar, row.Email, row.Nickname),
			Date:      FormatDate(row.CreatedAt),
			Replies:   make([]*CommentNode, 0),
		}
		order = append(order, row.ID)
	}

	for _, id := range order {
		node := nodes[id]
		rootID := resolveRoot(id, nodes)
		if rootID == id {
			forest = append(forest, node)
			continue
		}
		node.Depth = 1
		root := nodes[rootID]
		root.Replies = append(root.Replies, node)
	}

	sort.SliceStable(forest, func(i, j int) bool {
		return forest[i].CreatedAt.After(forest[j].CreatedAt)
	})
	return forest
}

// resolveRoot walks up the parent chain of id and returns the id of its root.
// A walk that revisits a node stops there: that node closes a cycle and is a root.
func resolveRoot(id uint, nodes map[uint]*CommentNode) uint {
	visited := map[uint]struct{}{}
	cur := id
	for {
		visited[cur] = struct{}{}
		parentID := nodes[cur].ParentID
		if parentID == nil {
			return cur
		}
		if _, ok := nodes[*parentID]; !ok {
			return cur // 父评论已不存在
		}
		if _, seen := visited[*parentID]; seen {
			return *parentID
		}
		cur = *parentID
	}
}

// CountComments returns the number of nodes in the forest, replies included.
func CountComments(forest []*CommentNode) int {
	n := 0
	for _, root := range forest {
		n += 1 + len(root.Replies)
	}
	return n
}
