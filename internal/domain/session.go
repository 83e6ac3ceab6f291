package domain

// SessionUpdate is the result of one exchange with a form-chat session.
// It is either a Question (more input needed) or Completed (schema extracted).
type SessionUpdate interface {
	Message() string
	sessionUpdate()
}

// Question asks the user for more information.
type Question struct {
	Text string
}

func (q Question) Message() string { return q.Text }
func (Question) sessionUpdate()    {}

// Completed signals the backend has no further questions.
type Completed struct {
	Text   string
	Schema FormSchema
}

func (c Completed) Message() string { return c.Text }
func (Completed) sessionUpdate()    {}

// SessionStart is returned when a form-chat session is opened.
type SessionStart struct {
	SessionID string
	Update    SessionUpdate
}

// FilledForm references the PDF generated from a confirmed schema.
type FilledForm struct {
	PDFURL string `json:"pdfUrl"`
	Name   string `json:"name"`
}
