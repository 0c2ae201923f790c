package testutils

import (
	"bytes"
	"mime/multipart"
	"testing"

	"gotest.tools/assert"
)

// MultipartUpload returns a multipart/form-data body containing content as a
// file in the named field, and the Content-Type header value to send with it.
func MultipartUpload(
	t *testing.T, field, filename, content string,
) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	part, err := w.CreateFormFile(field, filename)
	assert.NilError(t, err)
	_, err = part.Write([]byte(content))
	assert.NilError(t, err)
	assert.NilError(t, w.Close())

	return body, w.FormDataContentType()
}
