package pipeline

// Container is a handler that owns an ordered, mutable sequence of child
// handlers. Its own work is running the children in order; Continue from a
// child stops the iteration and the container completes normally, while
// Break surfaces through the container's wrapper scopes and is absorbed at
// its outer Execute boundary.
type Container struct {
	Node
	children []Handler
}

// NewContainer creates a container owning the given children, skipping
// nils. The children's parent references are set to the new container.
func NewContainer(children ...Handler) *Container {
	c := &Container{}
	c.SetChildren(children...)
	return c
}

func (c *Container) containerNode() *Container { return c }

// Handle runs the children in order through their full execution contract.
// It is the absorption point for Continue.
func (c *Container) Handle(ctx *Context) error {
	for _, child := range c.children {
		if err := Execute(ctx, child); err != nil {
			if IsContinue(err) {
				// Continue in the container: stop iterating, complete normally.
				return nil
			}
			return err
		}
	}
	return nil
}

// Children returns a copy of the child sequence.
func (c *Container) Children() []Handler {
	out := make([]Handler, len(c.children))
	copy(out, c.children)
	return out
}

// Len returns the number of children.
func (c *Container) Len() int { return len(c.children) }

// At returns the child at index i.
func (c *Container) At(i int) Handler { return c.children[i] }

// SetChildren replaces the whole child sequence. Previous children are
// detached; nil entries are skipped.
func (c *Container) SetChildren(children ...Handler) {
	for _, prev := range c.children {
		prev.node().clearParent()
	}
	c.children = c.children[:0]
	for _, child := range children {
		if child == nil {
			continue
		}
		child.node().setParent(c)
		c.children = append(c.children, child)
	}
}

// Append adds h to the end of the sequence and records c as its parent.
func (c *Container) Append(h Handler) {
	h.node().setParent(c)
	c.children = append(c.children, h)
}

// Insert places h at index i, shifting later children right.
func (c *Container) Insert(i int, h Handler) {
	h.node().setParent(c)
	c.children = append(c.children, nil)
	copy(c.children[i+1:], c.children[i:])
	c.children[i] = h
}

// Replace swaps the child at index i for h, detaching the replaced child.
func (c *Container) Replace(i int, h Handler) {
	c.children[i].node().clearParent()
	h.node().setParent(c)
	c.children[i] = h
}

// RemoveAt detaches and removes the child at index i.
func (c *Container) RemoveAt(i int) {
	c.children[i].node().clearParent()
	c.children = append(c.children[:i], c.children[i+1:]...)
}

// Remove detaches and removes h if present, reporting whether it was found.
func (c *Container) Remove(h Handler) bool {
	idx := c.indexOfNode(h.node())
	if idx < 0 {
		return false
	}
	c.RemoveAt(idx)
	return true
}

// IndexOf returns the position of h in the sequence, or -1.
func (c *Container) IndexOf(h Handler) int {
	return c.indexOfNode(h.node())
}

// indexOfNode matches children by node identity so a handler can locate
// itself regardless of the interface value it is stored behind.
func (c *Container) indexOfNode(n *Node) int {
	for i, child := range c.children {
		if child.node() == n {
			return i
		}
	}
	return -1
}
