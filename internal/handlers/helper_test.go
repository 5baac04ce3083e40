package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/testforge/exam-service/internal/utils"
)

func TestParseIDParam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewBaseHandler(utils.NewDefaultLogger())

	cases := []struct {
		name       string
		value      string
		wantID     uint
		wantStatus int
	}{
		{"valid id", "42", 42, 0},
		{"zero is invalid", "0", 0, http.StatusBadRequest},
		{"not a number", "abc", 0, http.StatusBadRequest},
		{"negative", "-1", 0, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(recorder)
			c.Params = gin.Params{{Key: "id", Value: tc.value}}

			id := h.parseIDParam(c, "id")
			assert.Equal(t, tc.wantID, id)

			// Every rejection must write a response so callers can bail
			// with a bare return.
			if tc.wantStatus != 0 {
				assert.Equal(t, tc.wantStatus, recorder.Code)
			}
		})
	}
}
