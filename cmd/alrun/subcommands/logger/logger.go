package logger

import (
	"fmt"
	"io"
	"log"
)

func Null() *log.Logger {
	return log.New(io.Discard, "", log.LstdFlags)
}

func Default() *log.Logger {
	return log.Default()
}

// For is a logger writing into w, prefixed with the command name.
func For(w io.Writer, command string) *log.Logger {
	return log.New(w, fmt.Sprintf("[%s] ", command), log.LstdFlags)
}
