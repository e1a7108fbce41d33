package exitcodes

// Exit codes for treeprune
// Failures caught during a walk only change the exit code in strict mode
const (
	Success         = 0   // Successful execution
	InvalidConfig   = 2   // Configuration file or flags invalid
	SafetyViolation = 3   // Strict mode: the safety guard blocked a removal
	RuntimeError    = 4   // Runtime error outside the walk (database, metrics)
	PartialFailure  = 5   // Strict mode: some entries could not be removed
	Interrupted     = 130 // SIGINT or SIGTERM stopped the run
)
