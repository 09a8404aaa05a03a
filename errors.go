package cqrs

// InvalidArgumentError indicates that the caller is in error and passed an incorrect value.
type InvalidArgumentError string

func (i InvalidArgumentError) Error() string {
	return "cqrs: invalid argument: " + string(i)
}

// ValidationError indicates that a message could not be built because it violates an invariant
type ValidationError string

func (v ValidationError) Error() string {
	return "cqrs: invalid message: " + string(v)
}
