package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readingHandler(t *testing.T, read *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := io.ReadAll(r.Body)
		if err != nil {
			var maxErr *http.MaxBytesError
			assert.ErrorAs(t, err, &maxErr)
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		if read != nil {
			*read = true
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestSize(t *testing.T) {
	tests := []struct {
		name         string
		maxBytes     int64
		bodySize     int
		expectStatus int
		expectRead   bool
	}{
		{name: "small request accepted", maxBytes: 1024, bodySize: 512, expectStatus: http.StatusOK, expectRead: true},
		{name: "exact limit accepted", maxBytes: 1024, bodySize: 1024, expectStatus: http.StatusOK, expectRead: true},
		{name: "oversized request rejected", maxBytes: 1024, bodySize: 2048, expectStatus: http.StatusRequestEntityTooLarge},
		{name: "public limit", maxBytes: DefaultMaxBodySize, bodySize: int(DefaultMaxBodySize) + 1, expectStatus: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			read := false
			handler := RequestSize(tt.maxBytes)(readingHandler(t, &read))

			req := httptest.NewRequest(http.MethodPost, "/api/registrations", bytes.NewReader(bytes.Repeat([]byte("x"), tt.bodySize)))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectStatus, rec.Code)
			assert.Equal(t, tt.expectRead, read)
		})
	}
}

func TestAdminRequestSize(t *testing.T) {
	handler := AdminRequestSize()(readingHandler(t, nil))

	t.Run("limit accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/events", bytes.NewReader(bytes.Repeat([]byte("x"), int(AdminMaxBodySize))))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("limit+1 rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/events", bytes.NewReader(bytes.Repeat([]byte("x"), int(AdminMaxBodySize)+1)))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestRequestSizeWithNoBody(t *testing.T) {
	handler := PublicRequestSize()(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	require.Equal(t, http.StatusOK, rec.Code)
}
