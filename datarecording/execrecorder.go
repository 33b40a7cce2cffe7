package datarecording

import (
	"os"
	"strings"
	"time"
)

// ExecInfo is one property of a simulation run.
type ExecInfo struct {
	Property string
	Value    string
}

// ExecRecorder records how and when the simulator was run.
type ExecRecorder struct {
	tableName string
	recorder  DataRecorder
	entries   []ExecInfo
}

// NewExecRecorder creates the exec_info table.
func NewExecRecorder(recorder DataRecorder) (*ExecRecorder, error) {
	e := &ExecRecorder{
		tableName: "exec_info",
		recorder:  recorder,
	}

	if err := recorder.CreateTable(e.tableName, ExecInfo{}); err != nil {
		return nil, err
	}

	return e, nil
}

// Start logs the start time, the command, and the working directory.
func (e *ExecRecorder) Start() {
	e.Add("Start Time", time.Now().Format("2006-01-02 15:04:05.000000000"))
	e.Add("Command", strings.Join(os.Args, " "))

	if cwd, err := os.Getwd(); err == nil {
		e.Add("Working Directory", cwd)
	}
}

// Add logs a property.
func (e *ExecRecorder) Add(property, value string) {
	e.entries = append(e.entries, ExecInfo{Property: property, Value: value})
}

// End writes the properties along with the end time.
func (e *ExecRecorder) End() error {
	e.Add("End Time", time.Now().Format("2006-01-02 15:04:05.000000000"))

	for _, entry := range e.entries {
		if err := e.recorder.InsertData(e.tableName, entry); err != nil {
			return err
		}
	}

	e.entries = nil

	return e.recorder.Flush()
}
