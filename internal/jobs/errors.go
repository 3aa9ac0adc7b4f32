package jobs

import "platen/internal/services"

// ErrDuplicateJob indicates another job already holds the identity tuple.
var ErrDuplicateJob = services.Wrap(services.ErrValidation, "jobs", "create",
	"a job with this model, material, process and machine combination already exists", nil)

// ErrJobNotFound indicates a lookup referenced a job that does not exist.
var ErrJobNotFound = services.Wrap(services.ErrNotFound, "jobs", "lookup",
	"job not found", nil)
