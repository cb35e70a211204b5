// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
//
// Package log provides a simple leveled logger for command-line tools.
//
// Time/date are omitted by default on the assumption that a process
// supervisor (systemd, a CI runner) already timestamps stdout/stderr;
// pass -logdate to opt back in. Uses the systemd syslog priority
// prefixes: https://www.freedesktop.org/software/systemd/man/sd-daemon.html
package log

import (
	"fmt"
	"io"
	"log"
	"os"
)

var logDateTime bool

var (
	DebugWriter io.Writer = os.Stderr
	InfoWriter  io.Writer = os.Stderr
	WarnWriter  io.Writer = os.Stderr
	ErrWriter   io.Writer = os.Stderr
)

var (
	DebugPrefix string = "<7>[DEBUG]   "
	InfoPrefix  string = "<6>[INFO]    "
	WarnPrefix  string = "<4>[WARNING] "
	ErrPrefix   string = "<3>[ERROR]   "
)

var (
	debugLog = log.New(DebugWriter, DebugPrefix, 0)
	infoLog  = log.New(InfoWriter, InfoPrefix, 0)
	warnLog  = log.New(WarnWriter, WarnPrefix, log.Lshortfile)
	errLog   = log.New(ErrWriter, ErrPrefix, log.Llongfile)

	debugTimeLog = log.New(DebugWriter, DebugPrefix, log.LstdFlags)
	infoTimeLog  = log.New(InfoWriter, InfoPrefix, log.LstdFlags)
	warnTimeLog  = log.New(WarnWriter, WarnPrefix, log.LstdFlags|log.Lshortfile)
	errTimeLog   = log.New(ErrWriter, ErrPrefix, log.LstdFlags|log.Llongfile)
)

// SetLevel discards writers for every level below lvl ("debug", "info",
// "warn", or "err"/"fatal"). Unrecognized values fall back to "debug".
func SetLevel(lvl string) {
	switch lvl {
	case "err", "fatal":
		WarnWriter = io.Discard
		fallthrough
	case "warn":
		InfoWriter = io.Discard
		fallthrough
	case "info":
		DebugWriter = io.Discard
	case "debug":
		// nothing to discard
	default:
		fmt.Printf("log: unknown level %q, using debug\n", lvl)
		SetLevel("debug")
	}
}

// SetDateTime toggles the log.LstdFlags timestamp prefix.
func SetDateTime(v bool) {
	logDateTime = v
}

func Debug(v ...interface{}) {
	if DebugWriter == io.Discard {
		return
	}
	if logDateTime {
		debugTimeLog.Output(2, fmt.Sprint(v...))
	} else {
		debugLog.Output(2, fmt.Sprint(v...))
	}
}

func Info(v ...interface{}) {
	if InfoWriter == io.Discard {
		return
	}
	if logDateTime {
		infoTimeLog.Output(2, fmt.Sprint(v...))
	} else {
		infoLog.Output(2, fmt.Sprint(v...))
	}
}

func Warn(v ...interface{}) {
	if WarnWriter == io.Discard {
		return
	}
	if logDateTime {
		warnTimeLog.Output(2, fmt.Sprint(v...))
	} else {
		warnLog.Output(2, fmt.Sprint(v...))
	}
}

func Error(v ...interface{}) {
	if ErrWriter == io.Discard {
		return
	}
	if logDateTime {
		errTimeLog.Output(2, fmt.Sprint(v...))
	} else {
		errLog.Output(2, fmt.Sprint(v...))
	}
}

// Fatal logs at error level then exits the process with status 1.
func Fatal(v ...interface{}) {
	Error(v...)
	os.Exit(1)
}

func Debugf(format string, v ...interface{}) { Debug(fmt.Sprintf(format, v...)) }
func Infof(format string, v ...interface{})  { Info(fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...interface{})  { Warn(fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...interface{}) { Error(fmt.Sprintf(format, v...)) }
func Fatalf(format string, v ...interface{}) { Fatal(fmt.Sprintf(format, v...)) }
