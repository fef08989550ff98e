package wiretap

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConnection marks a client stack that could not start or reach the host.
	ErrConnection = errors.New("unable to initialize wiretap client API")
	// ErrTransport marks a service that could not answer a tree query.
	ErrTransport = errors.New("wiretap transport error")
	// ErrNoVolume marks a host without any registered volume.
	ErrNoVolume = errors.New("no volume defined")
	// ErrNodeCreation marks a rejected create, destroy, or child enumeration.
	ErrNodeCreation = errors.New("node operation failed")
	// ErrMetadata marks a rejected metadata read or write.
	ErrMetadata = errors.New("metadata error")
	// ErrNotFound marks a lookup that returned no node where one was required.
	ErrNotFound = errors.New("node not found")
	// ErrInvalidName marks a display name the namespace cannot address.
	ErrInvalidName = errors.New("invalid node name")
)

// RemoteError carries the message the service reported for a failed call.
// It matches its Kind sentinel and the underlying transport error with
// errors.Is.
type RemoteError struct {
	Kind    error
	Op      string
	Path    string
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString("unable to ")
		b.WriteString(e.Op)
	} else if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	} else {
		b.WriteString("wiretap call failed")
	}
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *RemoteError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func remoteError(kind error, op, path string, err error) error {
	message := ""
	if err != nil {
		message = strings.TrimSpace(err.Error())
	}
	return &RemoteError{Kind: kind, Op: op, Path: path, Message: message, Err: err}
}

func transportError(path string, err error) error {
	message := fmt.Sprintf("please check that your wiretap service is running; error reported: %s",
		strings.TrimSpace(errString(err)))
	return &RemoteError{
		Kind:    ErrTransport,
		Op:      "obtain number of children for node",
		Path:    path,
		Message: message,
		Err:     err,
	}
}

func errString(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}
