// Package logx provides leveled logging for the server daemon.
//
// Time/date are not logged by default because systemd adds them for us.
// Uses the same prefix convention as systemd's sd-daemon log levels:
// https://www.freedesktop.org/software/systemd/man/sd-daemon.html
package logx

import (
	"fmt"
	"io"
	"log"
	"os"
)

var logDateTime bool

var (
	DebugWriter io.Writer = os.Stderr
	NoteWriter  io.Writer = os.Stderr
	InfoWriter  io.Writer = os.Stderr
	WarnWriter  io.Writer = os.Stderr
	ErrWriter   io.Writer = os.Stderr
	CritWriter  io.Writer = os.Stderr
)

var (
	DebugPrefix = "<7>[DEBUG]    "
	InfoPrefix  = "<6>[INFO]     "
	NotePrefix  = "<5>[NOTICE]   "
	WarnPrefix  = "<4>[WARNING]  "
	ErrPrefix   = "<3>[ERROR]    "
	CritPrefix  = "<2>[CRITICAL] "
)

var (
	debugLog = log.New(DebugWriter, DebugPrefix, 0)
	infoLog  = log.New(InfoWriter, InfoPrefix, 0)
	noteLog  = log.New(NoteWriter, NotePrefix, log.Lshortfile)
	warnLog  = log.New(WarnWriter, WarnPrefix, log.Lshortfile)
	errLog   = log.New(ErrWriter, ErrPrefix, log.Llongfile)
	critLog  = log.New(CritWriter, CritPrefix, log.Llongfile)

	debugTimeLog = log.New(DebugWriter, DebugPrefix, log.LstdFlags)
	infoTimeLog  = log.New(InfoWriter, InfoPrefix, log.LstdFlags)
	noteTimeLog  = log.New(NoteWriter, NotePrefix, log.LstdFlags|log.Lshortfile)
	warnTimeLog  = log.New(WarnWriter, WarnPrefix, log.LstdFlags|log.Lshortfile)
	errTimeLog   = log.New(ErrWriter, ErrPrefix, log.LstdFlags|log.Llongfile)
	critTimeLog  = log.New(CritWriter, CritPrefix, log.LstdFlags|log.Llongfile)
)

// SetOutput redirects every level's writer to w. Used for the `logfile`
// config directive (stdout or a path).
func SetOutput(w io.Writer) {
	DebugWriter, NoteWriter, InfoWriter, WarnWriter, ErrWriter, CritWriter = w, w, w, w, w, w
	debugLog.SetOutput(w)
	infoLog.SetOutput(w)
	noteLog.SetOutput(w)
	warnLog.SetOutput(w)
	errLog.SetOutput(w)
	critLog.SetOutput(w)
	debugTimeLog.SetOutput(w)
	infoTimeLog.SetOutput(w)
	noteTimeLog.SetOutput(w)
	warnTimeLog.SetOutput(w)
	errTimeLog.SetOutput(w)
	critTimeLog.SetOutput(w)
}

// SetLevel implements the `loglevel` config directive: {debug, verbose,
// notice, warning} plus the wider set the wire INFO output exposes.
func SetLevel(lvl string) {
	switch lvl {
	case "crit":
		ErrWriter = io.Discard
		fallthrough
	case "err", "fatal", "warning":
		WarnWriter = io.Discard
		fallthrough
	case "warn":
		InfoWriter = io.Discard
		fallthrough
	case "notice":
		NoteWriter = io.Discard
		fallthrough
	case "info":
		DebugWriter = io.Discard
	case "debug", "verbose":
		// Nothing discarded.
	default:
		fmt.Fprintf(os.Stderr, "logx: invalid loglevel %q, using 'notice'\n", lvl)
		SetLevel("notice")
		return
	}
	if DebugWriter == io.Discard {
		debugLog.SetOutput(io.Discard)
		debugTimeLog.SetOutput(io.Discard)
	}
	if InfoWriter == io.Discard {
		infoLog.SetOutput(io.Discard)
		infoTimeLog.SetOutput(io.Discard)
	}
	if NoteWriter == io.Discard {
		noteLog.SetOutput(io.Discard)
		noteTimeLog.SetOutput(io.Discard)
	}
	if WarnWriter == io.Discard {
		warnLog.SetOutput(io.Discard)
		warnTimeLog.SetOutput(io.Discard)
	}
	if ErrWriter == io.Discard {
		errLog.SetOutput(io.Discard)
		errTimeLog.SetOutput(io.Discard)
	}
}

func SetLogDateTime(v bool) { logDateTime = v }

func printStr(v ...interface{}) string { return fmt.Sprint(v...) }

func Debug(v ...interface{}) {
	if DebugWriter == io.Discard {
		return
	}
	if logDateTime {
		debugTimeLog.Output(2, printStr(v...))
	} else {
		debugLog.Output(2, printStr(v...))
	}
}

func Info(v ...interface{}) {
	if InfoWriter == io.Discard {
		return
	}
	if logDateTime {
		infoTimeLog.Output(2, printStr(v...))
	} else {
		infoLog.Output(2, printStr(v...))
	}
}

func Note(v ...interface{}) {
	if NoteWriter == io.Discard {
		return
	}
	if logDateTime {
		noteTimeLog.Output(2, printStr(v...))
	} else {
		noteLog.Output(2, printStr(v...))
	}
}

func Warn(v ...interface{}) {
	if WarnWriter == io.Discard {
		return
	}
	if logDateTime {
		warnTimeLog.Output(2, printStr(v...))
	} else {
		warnLog.Output(2, printStr(v...))
	}
}

func Error(v ...interface{}) {
	if ErrWriter == io.Discard {
		return
	}
	if logDateTime {
		errTimeLog.Output(2, printStr(v...))
	} else {
		errLog.Output(2, printStr(v...))
	}
}

func Crit(v ...interface{}) {
	if CritWriter == io.Discard {
		return
	}
	if logDateTime {
		critTimeLog.Output(2, printStr(v...))
	} else {
		critLog.Output(2, printStr(v...))
	}
}

// Fatal logs at error level and terminates the process with exit code 1,
// per spec.md's startup/fatal-I/O error policy.
func Fatal(v ...interface{}) {
	Error(v...)
	os.Exit(1)
}

func printfStr(format string, v ...interface{}) string { return fmt.Sprintf(format, v...) }

func Debugf(format string, v ...interface{}) {
	if DebugWriter == io.Discard {
		return
	}
	if logDateTime {
		debugTimeLog.Output(2, printfStr(format, v...))
	} else {
		debugLog.Output(2, printfStr(format, v...))
	}
}

func Infof(format string, v ...interface{}) {
	if InfoWriter == io.Discard {
		return
	}
	if logDateTime {
		infoTimeLog.Output(2, printfStr(format, v...))
	} else {
		infoLog.Output(2, printfStr(format, v...))
	}
}

func Notef(format string, v ...interface{}) {
	if NoteWriter == io.Discard {
		return
	}
	if logDateTime {
		noteTimeLog.Output(2, printfStr(format, v...))
	} else {
		noteLog.Output(2, printfStr(format, v...))
	}
}

func Warnf(format string, v ...interface{}) {
	if WarnWriter == io.Discard {
		return
	}
	if logDateTime {
		warnTimeLog.Output(2, printfStr(format, v...))
	} else {
		warnLog.Output(2, printfStr(format, v...))
	}
}

func Errorf(format string, v ...interface{}) {
	if ErrWriter == io.Discard {
		return
	}
	if logDateTime {
		errTimeLog.Output(2, printfStr(format, v...))
	} else {
		errLog.Output(2, printfStr(format, v...))
	}
}

func Fatalf(format string, v ...interface{}) {
	Errorf(format, v...)
	os.Exit(1)
}
