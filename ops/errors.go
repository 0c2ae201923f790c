package ops

// SentinelError is type for defining constant error values.
//
// Inspired by: https://dave.cheney.net/2019/06/10/constant-time
type SentinelError string

// Error returns the string value of a SentinelError.
func (e SentinelError) Error() string {
	return string(e)
}

// ErrExternal indicates that a request to an upstream service failed.
//
// Per-address verification reports it as part of the result's reason, while
// the command line client uses it to distinguish AWS failures from bad input.
const ErrExternal = SentinelError("external error")

// ErrNoFile indicates that an upload request didn't contain a file field.
const ErrNoFile = SentinelError("No file uploaded")

// ErrNoCandidates indicates that uploaded content contained no candidate
// addresses after splitting and trimming.
const ErrNoCandidates = SentinelError("No valid emails found in file")

// ErrFileTooLarge indicates that uploaded content exceeded the configured
// maximum size.
const ErrFileTooLarge = SentinelError("File size exceeds upload limit")

// ErrMalformedUpload indicates that an upload request body couldn't be parsed
// as multipart form data after its first part.
const ErrMalformedUpload = SentinelError("Invalid multipart request")
