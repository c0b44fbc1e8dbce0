package progress

import "fmt"

// Reporter publishes the progress of a single run
type Reporter struct {
	hub   *Hub
	runID string
}

// RunID returns the id of the reported run
func (r *Reporter) RunID() string {
	return r.runID
}

// Reading reports that the upload is being parsed
func (r *Reporter) Reading() {
	r.hub.update(r.runID, Snapshot{
		Status:  StatusReading,
		Message: "Reading Excel file...",
	})
}

// Processing reports the number of questions found
func (r *Reporter) Processing(total int) {
	r.hub.update(r.runID, Snapshot{
		Status:         StatusProcessing,
		TotalQuestions: total,
		Message:        fmt.Sprintf("Found %d questions. Starting translation...", total),
	})
}

// Question reports that question current of total is being translated
func (r *Reporter) Question(current, total int) {
	r.hub.update(r.runID, Snapshot{
		Status:          StatusProcessingQuestion,
		CurrentQuestion: current,
		TotalQuestions:  total,
		Message:         fmt.Sprintf("Processing question %d of %d", current, total),
	})
}

// Completed reports the end of a successful run
func (r *Reporter) Completed(total int) {
	r.hub.update(r.runID, Snapshot{
		Status:          StatusCompleted,
		CurrentQuestion: total,
		TotalQuestions:  total,
		Message:         fmt.Sprintf("Translation completed! Processed %d questions.", total),
	})
}

// Failed ends the run with an error message
func (r *Reporter) Failed(message string) {
	r.hub.update(r.runID, Snapshot{
		Status:  StatusError,
		Message: message,
	})
}
