package tasks

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the API layer to manage background task
// processing: queue management, worker pool control and manual triggers.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error

	// RequestDetection and RequestDiscovery enqueue a one-off pass outside
	// the regular cadence (manual trigger, failure-threshold crossing,
	// post-discovery follow-up).
	RequestDetection() error
	RequestDiscovery() error
}
