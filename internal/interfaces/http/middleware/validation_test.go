package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/itam/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginBody struct {
	Username string `json:"username" binding:"required,max=5"`
	Password string `json:"password" binding:"required"`
	OwnerID  string `json:"owner_id" binding:"omitempty,uuid"`
}

func bindingRouter() *gin.Engine {
	SetupValidator()
	r := gin.New()
	r.POST("/test", func(c *gin.Context) {
		var body loginBody
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleBindingError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})
	return r
}

func postJSON(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleBindingError(t *testing.T) {
	r := bindingRouter()

	t.Run("field errors use json names", func(t *testing.T) {
		w := postJSON(r, `{"username":"toolongname","owner_id":"nope"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)

		messages := map[string]string{}
		for _, d := range resp.Error.Details {
			messages[d.Field] = d.Message
		}
		assert.Equal(t, "Must be at most 5 characters", messages["username"])
		assert.Equal(t, "This field is required", messages["password"])
		assert.Equal(t, "Invalid UUID format", messages["owner_id"])
	})

	t.Run("malformed json", func(t *testing.T) {
		w := postJSON(r, `{"username":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeInvalidJSON)
	})

	t.Run("wrong json type", func(t *testing.T) {
		w := postJSON(r, `{"username":12}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeInvalidJSON)
	})

	t.Run("valid body", func(t *testing.T) {
		w := postJSON(r, `{"username":"anna","password":"secret"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
