package gphoto

import (
	"context"
	"errors"
	"fmt"
)

// Result is a device-library result code. Zero is success, negative values
// are failures. The numbering follows libgphoto2 so codes read the same in
// logs from either backend.
type Result int

// Port library results.
const (
	OK                     Result = 0
	ErrorGeneric           Result = -1
	ErrorBadParameters     Result = -2
	ErrorNoMemory          Result = -3
	ErrorLibrary           Result = -4
	ErrorUnknownPort       Result = -5
	ErrorNotSupported      Result = -6
	ErrorIO                Result = -7
	ErrorFixedLimit        Result = -8
	ErrorTimeout           Result = -10
	ErrorIOSupportedSerial Result = -20
	ErrorIOSupportedUSB    Result = -21
	ErrorIOInit            Result = -31
	ErrorIORead            Result = -34
	ErrorIOWrite           Result = -35
	ErrorIOUpdate          Result = -37
	ErrorIOSerialSpeed     Result = -41
	ErrorIOUSBClearHalt    Result = -51
	ErrorIOUSBFind         Result = -52
	ErrorIOUSBClaim        Result = -53
	ErrorIOLock            Result = -60
	ErrorHAL               Result = -70
)

// Camera library results.
const (
	ErrorCorruptedData     Result = -102
	ErrorFileExists        Result = -103
	ErrorModelNotFound     Result = -105
	ErrorDirectoryNotFound Result = -107
	ErrorFileNotFound      Result = -108
	ErrorDirectoryExists   Result = -109
	ErrorCameraBusy        Result = -110
	ErrorPathNotAbsolute   Result = -111
	ErrorCancel            Result = -112
	ErrorCameraError       Result = -113
	ErrorOSFailure         Result = -114
	ErrorNoSpace           Result = -115
)

var resultText = map[Result]string{
	OK:                     "No error",
	ErrorGeneric:           "Unspecified error",
	ErrorBadParameters:     "Bad parameters",
	ErrorNoMemory:          "Out of memory",
	ErrorLibrary:           "Error loading a library",
	ErrorUnknownPort:       "Unknown port",
	ErrorNotSupported:      "Unsupported operation",
	ErrorIO:                "I/O problem",
	ErrorFixedLimit:        "Fixed limit exceeded",
	ErrorTimeout:           "Timeout reading from or writing to the port",
	ErrorIOSupportedSerial: "Serial port not supported",
	ErrorIOSupportedUSB:    "USB port not supported",
	ErrorIOInit:            "Error initializing the port",
	ErrorIORead:            "Error reading from the port",
	ErrorIOWrite:           "Error writing to the port",
	ErrorIOUpdate:          "Error updating the port settings",
	ErrorIOSerialSpeed:     "Error setting the serial port speed",
	ErrorIOUSBClearHalt:    "Error clearing a halt condition on the USB port",
	ErrorIOUSBFind:         "Could not find the requested device on the USB port",
	ErrorIOUSBClaim:        "Could not claim the USB device",
	ErrorIOLock:            "Could not lock the device",
	ErrorHAL:               "libhal error",
	ErrorCorruptedData:     "Corrupted data",
	ErrorFileExists:        "File already exists",
	ErrorModelNotFound:     "Unknown model",
	ErrorDirectoryNotFound: "Directory not found",
	ErrorFileNotFound:      "File not found",
	ErrorDirectoryExists:   "Directory already exists",
	ErrorCameraBusy:        "I/O in progress",
	ErrorPathNotAbsolute:   "Path not absolute",
	ErrorCancel:            "Cancelled",
	ErrorCameraError:       "Camera error",
	ErrorOSFailure:         "OS error",
	ErrorNoSpace:           "Not enough space",
}

// String returns the human-readable description of the code.
func (r Result) String() string {
	if s, ok := resultText[r]; ok {
		return s
	}
	return fmt.Sprintf("Unknown error %d", int(r))
}

// Error makes a Result usable as an error value.
func (r Result) Error() string {
	return r.String()
}

// Failed reports whether r is a negative result.
func (r Result) Failed() bool {
	return r < OK
}

// IsIOFault reports whether r is an I/O-class fault: the generic I/O error
// or one of the port-level transfer errors. On a session that was working,
// these mean the device went away.
func (r Result) IsIOFault() bool {
	if r == ErrorIO {
		return true
	}
	return r <= ErrorIOInit && r >= ErrorIOLock
}

// AsResult extracts the result code carried by err.
// nil maps to OK, context errors to Cancel/Timeout and anything
// unrecognized to ErrorGeneric.
func AsResult(err error) Result {
	if err == nil {
		return OK
	}
	var r Result
	if errors.As(err, &r) {
		return r
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTimeout
	case errors.Is(err, context.Canceled):
		return ErrorCancel
	}
	return ErrorGeneric
}

// resultFromText maps a description back to its code. Used to classify
// diagnostics that carry only the text.
func resultFromText(text string) (Result, bool) {
	for r, s := range resultText {
		if r != OK && s == text {
			return r, true
		}
	}
	return OK, false
}
