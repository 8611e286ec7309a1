// Package visualize renders a snapshot of a B+-tree to colored terminal
// text. It is a pure collaborator: it reads a tree through the same small
// surface a CLI driver uses (Root, Child, Degree) and never mutates it.
package visualize

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Tree is the read surface a tree must expose to be drawn. bptree.Tree[K, V]
// satisfies it for any node type implementing Node.
type Tree[N Node] interface {
	Root() (N, error)
	Child(n N, i int) (N, error)
	Degree() int
}

// Node is the read surface a single node must expose to be drawn.
type Node interface {
	comparable
	IsLeaf() bool
	KeyCount() int
	KeyString(i int) string
	ChildCount() int
}

var (
	separator = color.New(color.FgCyan, color.Bold)
	leafTag   = color.New(color.FgGreen)
	warnTag   = color.New(color.FgRed, color.Bold)
)

// Draw writes a level-by-level rendering of t to w, coloring separator
// keys, tagging leaves, and flagging any node under the minimum occupancy
// for t's degree.
func Draw[N Node](w io.Writer, t Tree[N]) error {
	root, err := t.Root()
	if err != nil {
		return err
	}
	var zero N
	if root == zero {
		fmt.Fprintln(w, "(empty tree)")
		return nil
	}
	return draw(w, t, root, 0)
}

func draw[N Node](w io.Writer, t Tree[N], n N, depth int) error {
	indent := strings.Repeat("  ", depth)
	min := t.Degree() / 2 // ceil((d-1)/2) keys for a leaf
	occupancy := n.KeyCount()
	if !n.IsLeaf() {
		min = (t.Degree() + 1) / 2 // ceil(d/2) children for an internal node
		occupancy = n.ChildCount()
	}

	keys := make([]string, n.KeyCount())
	for i := range keys {
		keys[i] = n.KeyString(i)
	}
	line := separator.Sprintf("[%s]", strings.Join(keys, " | "))
	if n.IsLeaf() {
		line = leafTag.Sprint("leaf ") + line
	}
	if depth > 0 && occupancy < min { // the root is exempt from minimum occupancy
		line += " " + warnTag.Sprint("(under-utilized)")
	}
	fmt.Fprintf(w, "%s%s\n", indent, line)

	if n.IsLeaf() {
		return nil
	}
	for i := 0; i < n.ChildCount(); i++ {
		c, err := t.Child(n, i)
		if err != nil {
			return err
		}
		var zero N
		if c == zero {
			continue
		}
		if err := draw(w, t, c, depth+1); err != nil {
			return err
		}
	}
	return nil
}
