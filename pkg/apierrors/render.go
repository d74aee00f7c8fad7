package apierrors

// Body is the JSON shape written by the error handler.
type Body struct {
	Message         string       `json:"message"`
	Code            string       `json:"code,omitempty"`
	Errors          []FieldError `json:"errors,omitempty"`
	IsInjectedError bool         `json:"isInjectedError,omitempty"`

	// Debug-mode-only fields.
	Name   string   `json:"name,omitempty"`
	Status int      `json:"status,omitempty"`
	Stack  []string `json:"stack,omitempty"`
	Cause  []string `json:"cause,omitempty"`
}

// maxStackFrames bounds how many debug-mode stack frames are rendered.
const maxStackFrames = 3

// Render produces the HTTP status and JSON body for an error. In production
// mode it returns only the message and safe, machine-readable data. In debug
// mode it additionally walks the cause chain (bounded by a seen-set to break
// cycles) and includes the error's kind/status.
func Render(err *Error, debug bool) (int, Body) {
	body := Body{
		Message:         err.Message,
		Code:            err.Code,
		Errors:          err.ValidationErrs,
		IsInjectedError: err.IsInjectedError,
	}
	if !debug {
		return err.Status(), body
	}

	body.Name = string(err.Kind)
	body.Status = err.Status()
	body.Stack = err.StackFrames(maxStackFrames)

	seen := make(map[error]bool)
	cause := err.Cause
	for cause != nil && !seen[cause] {
		seen[cause] = true
		body.Cause = append(body.Cause, cause.Error())
		cause = unwrap(cause)
	}
	return err.Status(), body
}

func unwrap(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}
