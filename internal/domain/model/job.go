package model

// Job is one proposal queued for batch assessment.
type Job struct {
	ID string
	// Seq is the submission position within a batch.
	Seq      int
	Name     string
	Proposal Proposal
}

// JobResult is the finished assessment of a Job.
type JobResult struct {
	Job     Job
	Result  RiskAssessmentResult
	Outcome string
	Err     error
}
