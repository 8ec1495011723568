package crawler

// Traversal is the order pending pages are visited in.
type Traversal int

const (
	// BreadthFirst visits pages level by level.
	BreadthFirst Traversal = iota
	// DepthFirst visits the children of a page before its siblings.
	DepthFirst
)

// taskQueue holds pending tasks. It is owned by the dispatcher and is not safe for concurrent use.
type taskQueue struct {
	traversal Traversal
	tasks     []Task
}

func newTaskQueue(t Traversal) *taskQueue {
	return &taskQueue{traversal: t}
}

// push adds the children of a page, highest priority first.
func (q *taskQueue) push(tasks ...Task) {
	if q.traversal == BreadthFirst {
		q.tasks = append(q.tasks, tasks...)

		return
	}

	// Reversed so that the highest priority child is popped first.
	for i := len(tasks) - 1; i >= 0; i-- {
		q.tasks = append(q.tasks, tasks[i])
	}
}

func (q *taskQueue) peek() Task {
	if q.traversal == BreadthFirst {
		return q.tasks[0]
	}

	return q.tasks[len(q.tasks)-1]
}

func (q *taskQueue) pop() Task {
	t := q.peek()

	if q.traversal == BreadthFirst {
		q.tasks[0] = Task{}
		q.tasks = q.tasks[1:]
	} else {
		q.tasks = q.tasks[:len(q.tasks)-1]
	}

	return t
}

func (q *taskQueue) len() int {
	return len(q.tasks)
}

func (q *taskQueue) clear() int {
	n := len(q.tasks)
	q.tasks = nil

	return n
}
