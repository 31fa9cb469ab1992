// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package logw provides the log writer of the command line tools. Writes to an
// output stream, and optionally also to a file. Does not add prefixes, or force newlines.
package logw

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Pseudo file name which derives the log file name from the output file
const AutoName = "%auto"

// A log writer which tees everything written into an optional file. Safe for concurrent use
type Writer struct {
	mu     sync.Mutex
	out    io.Writer
	file   *bufio.Writer
	fileOS *os.File
}

// Creates a log writer on the given stream, typically os.Stdout
func New(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Resolves the log file name. AutoName replaces the extension of the output file with .log
func FileName(logName, outName string) string {
	if logName != AutoName {
		return logName
	}
	if outName == "" {
		return "mkcatalog.log"
	}
	return strings.TrimSuffix(outName, filepath.Ext(outName)) + ".log"
}

// Enables logging to file, closing a previous log file
func (w *Writer) AlsoToFile(fileName string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.closeFile(); err != nil {
		return err
	}
	f, err := os.OpenFile(fileName, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
	if err != nil {
		return err
	}
	w.fileOS, w.file = f, bufio.NewWriter(f)
	return nil
}

func (w *Writer) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, err = w.out.Write(p)
	if err != nil || w.file == nil {
		return n, err
	}
	return w.file.Write(p)
}

func (w *Writer) Printf(format string, args ...interface{}) {
	fmt.Fprintf(w, format, args...)
}

// Logs the message, closes the log file and exits with status 1
func (w *Writer) Fatalf(format string, args ...interface{}) {
	fmt.Fprintf(w, format, args...)
	w.Close()
	os.Exit(1)
}

// Flushes the log file to disk
func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	if err := w.file.Flush(); err != nil {
		return err
	}
	return w.fileOS.Sync()
}

// Flushes and closes the log file, if any. Further output goes to the stream only
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeFile()
}

func (w *Writer) closeFile() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Flush()
	if cerr := w.fileOS.Close(); err == nil {
		err = cerr
	}
	w.file, w.fileOS = nil, nil
	return err
}
