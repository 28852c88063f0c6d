package assistant

// ErrorReply is the text recorded and spoken in place of a reply when
// generation fails under FailureSpeak.
const ErrorReply = "Error"

// Reply is the outcome of one generation request.
type Reply struct {
	// Text is the model's reply, or ErrorReply when Err is set.
	Text string

	// Err is the cause of a failed generation.
	Err error
}

// OK reports whether the reply came from the model.
func (r Reply) OK() bool {
	return r.Err == nil
}

func failed(err error) Reply {
	return Reply{Text: ErrorReply, Err: err}
}
