package pipeline

import "log/slog"

// Walk visits h and every handler below it in depth-first preorder, calling
// visit for each. Returning false from visit stops the walk early.
func Walk(h Handler, visit func(Handler) bool) {
	if h == nil {
		return
	}
	stack := []Handler{h}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visit(cur) {
			return
		}
		children := cur.Children()
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}

// WalkBreadthFirst visits h and every handler below it level by level.
// Returning false from visit stops the walk early.
func WalkBreadthFirst(h Handler, visit func(Handler) bool) {
	if h == nil {
		return
	}
	queue := []Handler{h}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if !visit(cur) {
			return
		}
		queue = append(queue, cur.Children()...)
	}
}

// FindAll collects every handler in preorder for which match returns true.
func FindAll(root Handler, match func(Handler) bool) []Handler {
	var out []Handler
	Walk(root, func(h Handler) bool {
		if match(h) {
			out = append(out, h)
		}
		return true
	})
	return out
}

// FindByID returns the first handler with the given id in preorder, or nil.
// Duplicate ids are a configuration smell and are logged when detected.
func FindByID(root Handler, id string) Handler {
	matches := FindAll(root, func(h Handler) bool { return h.ID() == id })
	if len(matches) == 0 {
		return nil
	}
	if len(matches) > 1 {
		slog.Default().Warn("multiple handlers share an id; returning the first in preorder",
			"handler_id", id,
			"count", len(matches),
		)
	}
	return matches[0]
}

// FindByType collects every handler of concrete type T in preorder.
func FindByType[T Handler](root Handler) []T {
	var out []T
	Walk(root, func(h Handler) bool {
		if t, ok := h.(T); ok {
			out = append(out, t)
		}
		return true
	})
	return out
}
