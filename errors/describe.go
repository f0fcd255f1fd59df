package errors

import (
	"fmt"
	"strings"
)

// Describe renders err and every error in its Unwrap chain as
// human-readable lines of the form "type 'T', message: 'm'". Joined errors
// are expanded one by one; nested causes are indented under their parent.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var b strings.Builder
	describe(&b, err, 0)
	return strings.TrimRight(b.String(), "\n")
}

func describe(b *strings.Builder, err error, depth int) {
	indent := strings.Repeat("  ", depth)

	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		fmt.Fprintf(b, "%sjoined errors (%T):\n", indent, err)
		for _, sub := range joined.Unwrap() {
			if sub != nil {
				describe(b, sub, depth+1)
			}
		}
		return
	}

	fmt.Fprintf(b, "%stype '%T', message: '%s'", indent, err, headline(err))
	if appErr, ok := err.(*AppError); ok && len(appErr.Details) > 0 {
		fmt.Fprintf(b, ", details: %v", appErr.Details)
	}
	b.WriteString("\n")

	if inner, ok := err.(interface{ Unwrap() error }); ok {
		if cause := inner.Unwrap(); cause != nil {
			fmt.Fprintf(b, "%sinner error:\n", indent)
			describe(b, cause, depth+1)
		}
	}
}

// headline returns the message of err without the message of its cause,
// so each link of the chain is printed once.
func headline(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return fmt.Sprintf("%s: %s", appErr.Code, appErr.Message)
	}
	return err.Error()
}
