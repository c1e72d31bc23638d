package policy

// Failure is a structured policy failure with a stable machine code and
// a human message.
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the three-valued outcome of a policy check: pass, plain
// fail (the caller supplies the default failure code/message), or fail
// with an explicit Failure. The three cases are distinct and must not
// be collapsed; combinators rely on the difference between a plain fail
// and a structured one.
type Result struct {
	passed  bool
	failure *Failure
}

// Pass is the passing result.
func Pass() Result {
	return Result{passed: true}
}

// Failed is a plain fail with no diagnostic of its own.
func Failed() Result {
	return Result{}
}

// Fail is a fail carrying an explicit code and message.
func Fail(code, message string) Result {
	return Result{failure: &Failure{Code: code, Message: message}}
}

// Passed reports whether the result is a pass.
func (r Result) Passed() bool {
	return r.passed
}

// Failure returns the structured failure, or nil for a pass or a plain
// fail.
func (r Result) Failure() *Failure {
	return r.failure
}
