package executor

// Task represents a unit of work executed by the worker pool
// Run is invoked exactly once by a single worker; nothing it returns or
// raises is observed by the pool, so tasks own their error handling
type Task interface {
	Run()
}

// TaskFunc adapts an ordinary function to the Task interface
type TaskFunc func()

// Run calls f()
func (f TaskFunc) Run() {
	f()
}
