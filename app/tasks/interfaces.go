package tasks

// TaskSchedulerInterface is what the HTTP API needs from the scheduler to
// trigger runs on demand.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	NewGenerateFeedTask(feedName string) (*GenerateFeedTask, error)
}
