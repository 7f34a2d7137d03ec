package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type paymentBody struct {
	Amount decimal.Decimal `json:"amount" binding:"required,gt=0"`
	Method string          `json:"payment_method" binding:"required,oneof=cash ach"`
}

func bindStatus(t *testing.T, body string) (int, string) {
	t.Helper()
	SetupValidator()

	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var req paymentBody
		if err := c.ShouldBindJSON(&req); err != nil {
			details := ValidationDetails(err)
			fields := make([]string, 0, len(details))
			for _, d := range details {
				fields = append(fields, d.Field)
			}
			c.String(http.StatusBadRequest, strings.Join(fields, ","))
			return
		}
		c.String(http.StatusOK, req.Amount.StringFixed(2))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	return w.Code, w.Body.String()
}

func TestValidator_DecimalAmounts(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		out    string
	}{
		{"number", `{"amount": 400.5, "payment_method": "ach"}`, http.StatusOK, "400.50"},
		{"string", `{"amount": "1000", "payment_method": "cash"}`, http.StatusOK, "1000.00"},
		{"zero", `{"amount": 0, "payment_method": "cash"}`, http.StatusBadRequest, "amount"},
		{"negative", `{"amount": -5, "payment_method": "cash"}`, http.StatusBadRequest, "amount"},
		{"missing", `{"payment_method": "cash"}`, http.StatusBadRequest, "amount"},
		{"bad method", `{"amount": 10, "payment_method": "barter"}`, http.StatusBadRequest, "payment_method"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, out := bindStatus(t, tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.out, out)
		})
	}
}

func TestValidationDetails_NonValidationError(t *testing.T) {
	assert.Nil(t, ValidationDetails(assert.AnError))
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(16))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(make([]byte, 64))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_BAD_REQUEST")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(make([]byte, 8))))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSpanEnricher(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	r := gin.New()
	r.Use(func(c *gin.Context) {
		ctx, span := provider.Tracer("test").Start(c.Request.Context(), "request")
		defer span.End()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	r.Use(SpanEnricher())
	r.GET("/invoices/:id", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/invoices/abc", nil))
	require.Len(t, recorder.Ended(), 1)

	span := recorder.Ended()[0]
	assert.Equal(t, "Internal Server Error", span.Status().Description)
	var route string
	for _, kv := range span.Attributes() {
		if kv.Key == "http.route" {
			route = kv.Value.AsString()
		}
	}
	assert.Equal(t, "/invoices/:id", route)
}
