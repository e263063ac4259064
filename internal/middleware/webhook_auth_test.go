package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestShopifyWebhookAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	body := `{"id":1}`

	router := gin.New()
	router.POST("/hook", ShopifyWebhookAuth("s3cret"), func(c *gin.Context) {
		// 校验后请求体仍可读取
		b, _ := io.ReadAll(c.Request.Body)
		c.String(http.StatusOK, string(b))
	})

	tests := []struct {
		name      string
		signature string
		want      int
	}{
		{"签名正确", sign("s3cret", body), http.StatusOK},
		{"签名错误", sign("other", body), http.StatusUnauthorized},
		{"缺少签名", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(body))
			if tt.signature != "" {
				req.Header.Set(HeaderShopifyHmac, tt.signature)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusOK {
				assert.Equal(t, body, w.Body.String())
			}
		})
	}
}

func TestShopifyWebhookAuth_NoSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/hook", ShopifyWebhookAuth(""), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader("{}")))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestShopifyWebhookAuth_BodyTooLarge(t *testing.T) {
	gin.SetMode(gin.TestMode)
	body := strings.Repeat("x", MaxWebhookBodyBytes+1)

	for _, secret := range []string{"s3cret", ""} {
		router := gin.New()
		router.POST("/hook", ShopifyWebhookAuth(secret), func(c *gin.Context) {
			if _, err := io.ReadAll(c.Request.Body); err != nil {
				AbortBodyError(c, err)
				return
			}
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(body))
		req.Header.Set(HeaderShopifyHmac, sign(secret, body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, "secret=%q", secret)
		assert.Contains(t, w.Body.String(), `"code":413`)
	}
}
