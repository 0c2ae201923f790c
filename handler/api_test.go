//go:build small_tests || all_tests

package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mbland/emailcheck/email"
	"github.com/mbland/emailcheck/ops"
	"github.com/mbland/emailcheck/testutils"
	"gotest.tools/assert"
	is "gotest.tools/assert/cmp"
)

const testUpload = "a@b.com,bad-email\nuser@mailinator.com"

type apiFixture struct {
	handler *ApiHandler
	metrics *Metrics
	logs    *testutils.Logs
}

func newApiFixture() *apiFixture {
	logs, logger := testutils.NewLogs()
	metrics := NewMetrics()
	bv := &ops.BatchValidator{
		Verifier: &email.Validator{
			Disposable: email.NewDisposableDomains("mailinator.com"),
			Log:        logger,
		},
		Workers: 4,
		Log:     logger,
	}
	opts := &Options{
		MaxUploadBytes:     ops.MaxUploadBytes,
		CorsAllowedOrigins: []string{"*"},
	}
	return &apiFixture{NewApiHandler(bv, opts, metrics, logger), metrics, logs}
}

func (f *apiFixture) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func newUploadRequest(
	t *testing.T, field, content string,
) *http.Request {
	t.Helper()
	body, contentType := testutils.MultipartUpload(
		t, field, "emails.txt", content,
	)
	req := httptest.NewRequest(http.MethodPost, ValidateEmailsPath, body)
	req.Header.Set("Content-Type", contentType)
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errRes := &errorResponse{}
	assert.NilError(t, json.NewDecoder(rec.Body).Decode(errRes))
	return errRes.Error
}

func assertErrorResponse(
	t *testing.T, rec *httptest.ResponseRecorder, status int, msg string,
) {
	t.Helper()
	assert.Equal(t, status, rec.Code)
	assert.Equal(
		t, "application/json; charset=utf-8", rec.Header().Get("content-type"),
	)
	assert.Equal(t, msg, decodeError(t, rec))
}

func TestValidateEmails(t *testing.T) {
	t.Run("Succeeds", func(t *testing.T) {
		f := newApiFixture()

		rec := f.serve(newUploadRequest(t, "file", testUpload))

		assert.Equal(t, http.StatusOK, rec.Code)
		summary := &ops.ValidationSummary{}
		assert.NilError(t, json.NewDecoder(rec.Body).Decode(summary))
		assert.Equal(t, 3, summary.Total)
		assert.Equal(t, 1, summary.Valid)
		assert.Equal(t, 2, summary.Invalid)
		assert.DeepEqual(t, []ops.ValidationResult{
			ops.Valid("a@b.com"),
			ops.Invalid("bad-email", ops.ReasonInvalidFormat),
			ops.Invalid("user@mailinator.com", ops.ReasonDisposable),
		}, summary.Results)
		assert.DeepEqual(
			t, []ops.EmailOnly{{Email: "a@b.com"}}, summary.ValidEmailsList,
		)
	})

	t.Run("EncodesMissingReasonAsNull", func(t *testing.T) {
		f := newApiFixture()

		rec := f.serve(newUploadRequest(t, "file", "a@b.com"))

		assert.Equal(t, http.StatusOK, rec.Code)
		const expected = `{"email":"a@b.com","valid":true,"reason":null}`
		assert.Assert(t, is.Contains(rec.Body.String(), expected))
	})

	t.Run("IgnoresOtherFieldsBeforeFile", func(t *testing.T) {
		f := newApiFixture()
		body := &bytes.Buffer{}
		body.WriteString("--xyzzy\r\n" +
			"Content-Disposition: form-data; name=\"comment\"\r\n\r\n" +
			"not the file\r\n" +
			"--xyzzy\r\n" +
			"Content-Disposition: form-data; name=\"file\"; " +
			"filename=\"emails.csv\"\r\n\r\n" +
			"mbland@acm.org\r\n" +
			"--xyzzy--\r\n")
		req := httptest.NewRequest(http.MethodPost, ValidateEmailsPath, body)
		req.Header.Set("Content-Type", "multipart/form-data; boundary=xyzzy")

		rec := f.serve(req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Assert(t, is.Contains(rec.Body.String(), `"total":1`))
	})

	t.Run("FailsIfNoFileField", func(t *testing.T) {
		f := newApiFixture()

		rec := f.serve(newUploadRequest(t, "upload", testUpload))

		assertErrorResponse(t, rec, http.StatusBadRequest, "No file uploaded")
		f.logs.AssertContains(t, `400: No file uploaded`)
	})

	t.Run("FailsIfNotMultipart", func(t *testing.T) {
		f := newApiFixture()
		req := httptest.NewRequest(
			http.MethodPost, ValidateEmailsPath, strings.NewReader(testUpload),
		)
		req.Header.Set("Content-Type", "text/plain")

		rec := f.serve(req)

		assertErrorResponse(t, rec, http.StatusBadRequest, "No file uploaded")
	})

	t.Run("FailsIfNoCandidates", func(t *testing.T) {
		f := newApiFixture()

		for _, content := range []string{"", " \n , \r\n,,"} {
			rec := f.serve(newUploadRequest(t, "file", content))

			assertErrorResponse(
				t, rec, http.StatusBadRequest, "No valid emails found in file",
			)
		}
	})

	t.Run("FailsIfMalformed", func(t *testing.T) {
		f := newApiFixture()
		body := strings.NewReader("--xyzzy\r\nnot a header\r\n\r\n")
		req := httptest.NewRequest(http.MethodPost, ValidateEmailsPath, body)
		req.Header.Set("Content-Type", "multipart/form-data; boundary=xyzzy")

		rec := f.serve(req)

		assertErrorResponse(
			t, rec, http.StatusBadRequest, "Invalid multipart request",
		)
	})

	t.Run("FailsIfFileTooLarge", func(t *testing.T) {
		f := newApiFixture()
		content := strings.Repeat("a@b.com\n", int(ops.MaxUploadBytes/8)+1)

		rec := f.serve(newUploadRequest(t, "file", content))

		assertErrorResponse(
			t,
			rec,
			http.StatusRequestEntityTooLarge,
			"File size exceeds 5MB limit",
		)
	})

	t.Run("FailsIfBodyTooLarge", func(t *testing.T) {
		f := newApiFixture()
		f.handler.MaxUploadBytes = 16
		body := &bytes.Buffer{}
		body.WriteString("--xyzzy\r\n" +
			"Content-Disposition: form-data; name=\"padding\"\r\n\r\n" +
			strings.Repeat("x", multipartOverheadBytes) + "\r\n" +
			"--xyzzy--\r\n")
		req := httptest.NewRequest(http.MethodPost, ValidateEmailsPath, body)
		req.Header.Set("Content-Type", "multipart/form-data; boundary=xyzzy")

		rec := f.serve(req)

		assertErrorResponse(
			t,
			rec,
			http.StatusRequestEntityTooLarge,
			"File size exceeds 16 bytes limit",
		)
	})

	t.Run("RecordsMetrics", func(t *testing.T) {
		f := newApiFixture()
		f.serve(newUploadRequest(t, "file", testUpload))

		rec := f.serve(httptest.NewRequest(http.MethodGet, MetricsPath, nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Assert(t, is.Contains(
			body, `emailcheck_validations_total{reason="valid"} 1`,
		))
		assert.Assert(t, is.Contains(
			body,
			`emailcheck_validations_total{reason="Invalid email format"} 1`,
		))
		assert.Assert(t, is.Contains(body, "emailcheck_batch_size_count 1"))
		assert.Assert(t, is.Contains(
			body,
			`emailcheck_http_requests_total{method="POST",`+
				`route="/api/validate-emails",status="200"} 1`,
		))
	})
}

func TestHealth(t *testing.T) {
	f := newApiFixture()

	rec := f.serve(httptest.NewRequest(http.MethodGet, HealthPath, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "{\"status\":\"ok\"}\n", rec.Body.String())
}

func TestRouting(t *testing.T) {
	t.Run("ReturnsJsonNotFound", func(t *testing.T) {
		f := newApiFixture()

		rec := f.serve(httptest.NewRequest(http.MethodGet, "/bogus", nil))

		assertErrorResponse(t, rec, http.StatusNotFound, "Not found")
	})

	t.Run("ReturnsJsonMethodNotAllowed", func(t *testing.T) {
		f := newApiFixture()
		req := httptest.NewRequest(http.MethodGet, ValidateEmailsPath, nil)

		rec := f.serve(req)

		assertErrorResponse(
			t, rec, http.StatusMethodNotAllowed, "Method not allowed",
		)
	})

	t.Run("OmitsMetricsWithoutCollectors", func(t *testing.T) {
		f := newApiFixture()
		opts := &Options{CorsAllowedOrigins: []string{"*"}}
		h := NewApiHandler(f.handler.Validator, opts, nil, f.handler.Log)
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, MetricsPath, nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, ops.MaxUploadBytes, h.MaxUploadBytes)
	})

	t.Run("AllowsCrossOriginRequests", func(t *testing.T) {
		f := newApiFixture()
		req := httptest.NewRequest(http.MethodOptions, ValidateEmailsPath, nil)
		req.Header.Set("Origin", "https://example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)

		rec := f.serve(req)

		assert.Assert(t, rec.Code < 300, "status: %d", rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRequestLogging(t *testing.T) {
	t.Run("GeneratesRequestId", func(t *testing.T) {
		f := newApiFixture()

		rec := f.serve(httptest.NewRequest(http.MethodGet, HealthPath, nil))

		id := rec.Header().Get(RequestIdHeader)
		assert.Assert(t, id != "")
		f.logs.AssertContains(
			t, id+`: 192.0.2.1:1234 "GET /health HTTP/1.1" 200`,
		)
	})

	t.Run("UsesIncomingRequestId", func(t *testing.T) {
		f := newApiFixture()
		req := httptest.NewRequest(http.MethodGet, HealthPath, nil)
		req.Header.Set(RequestIdHeader, "deadbeef")

		rec := f.serve(req)

		assert.Equal(t, "deadbeef", rec.Header().Get(RequestIdHeader))
		f.logs.AssertContains(t, `deadbeef: 192.0.2.1:1234 "GET /health`)
	})

	t.Run("UsesRealIp", func(t *testing.T) {
		f := newApiFixture()
		req := httptest.NewRequest(http.MethodGet, HealthPath, nil)
		req.Header.Set("X-Real-IP", "203.0.113.7")

		f.serve(req)

		f.logs.AssertContains(t, `: 203.0.113.7 "GET /health HTTP/1.1" 200`)
	})
}

func TestRecoverer(t *testing.T) {
	serve := func(panicValue any) (*httptest.ResponseRecorder, *apiFixture) {
		f := newApiFixture()
		h := f.handler.recoverer(
			http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				panic(panicValue)
			}),
		)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, HealthPath, nil))
		return rec, f
	}

	t.Run("ReportsPanicMessage", func(t *testing.T) {
		rec, _ := serve("something broke")

		assertErrorResponse(
			t, rec, http.StatusInternalServerError, "something broke",
		)
	})

	t.Run("ReportsPanicError", func(t *testing.T) {
		rec, _ := serve(io.ErrUnexpectedEOF)

		assertErrorResponse(
			t, rec, http.StatusInternalServerError, "unexpected EOF",
		)
	})

	t.Run("ReportsUnknownError", func(t *testing.T) {
		rec, _ := serve(42)

		assertErrorResponse(
			t, rec, http.StatusInternalServerError, "An unknown error occurred",
		)
	})

	t.Run("RethrowsAbortHandler", func(t *testing.T) {
		defer func() {
			assert.Equal(t, http.ErrAbortHandler, recover())
		}()

		serve(http.ErrAbortHandler)
	})
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "5MB", formatSize(5*1024*1024))
	assert.Equal(t, "512KB", formatSize(512*1024))
	assert.Equal(t, "1000 bytes", formatSize(1000))
}
