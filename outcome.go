package validate

import "errors"

// Status classifies an Outcome.
type Status int

const (
	StatusValid Status = iota
	StatusInvalid
	StatusSchemaError
	StatusInputError
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusInvalid:
		return "invalid"
	case StatusSchemaError:
		return "schema-error"
	case StatusInputError:
		return "input-error"
	}
	return "unknown"
}

// Outcome is the result of one validation run.
//
// Errors is non-empty exactly when Status is StatusInvalid. Err is set for
// StatusSchemaError and StatusInputError.
type Outcome struct {
	Status Status
	Errors []ValidationError
	Err    error
}

// Valid reports whether the data conformed to the schema.
func (o Outcome) Valid() bool {
	return o.Status == StatusValid
}

// Failed returns the Outcome for a pipeline failure, classifying err by type.
// Errors other than InputError are reported as schema errors.
func Failed(err error) Outcome {
	var ie *InputError
	if errors.As(err, &ie) {
		return Outcome{Status: StatusInputError, Err: err}
	}
	return Outcome{Status: StatusSchemaError, Err: err}
}

func invalid(errs []ValidationError) Outcome {
	if len(errs) == 0 {
		return Outcome{Status: StatusValid}
	}
	return Outcome{Status: StatusInvalid, Errors: errs}
}
