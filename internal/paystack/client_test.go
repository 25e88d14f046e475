package paystack_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/h2non/gock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paystack-service/internal/config"
	"paystack-service/internal/paystack"
)

const (
	baseURL   = "https://api.paystack.test"
	secretKey = "sk_test_0123456789abcdef0123456789abcdef"
)

func newClient() *paystack.Client {
	return paystack.NewClient(config.Paystack{
		BaseURL:   baseURL,
		SecretKey: secretKey,
		TimeoutMs: 1_000,
	}, slog.Default())
}

func TestClient_Initialize(t *testing.T) {
	tests := []struct {
		name          string
		mockResponse  func()
		expectedError bool
	}{
		{
			name: "Success",
			mockResponse: func() {
				gock.New(baseURL).
					Post("/transaction/initialize").
					MatchHeader("Authorization", "Bearer "+secretKey).
					BodyString(`"amount":5000`).
					Reply(200).
					JSON(map[string]any{
						"status":  true,
						"message": "Authorization URL created",
						"data": map[string]any{
							"authorization_url": "https://checkout.paystack.com/abc",
							"access_code":       "abc",
							"reference":         "order_INV-1001_1699999999",
						},
					})
			},
		},
		{
			name: "HTTP error",
			mockResponse: func() {
				gock.New(baseURL).
					Post("/transaction/initialize").
					Reply(401).
					JSON(map[string]any{"status": false, "message": "Invalid key"})
			},
			expectedError: true,
		},
		{
			name: "Status false",
			mockResponse: func() {
				gock.New(baseURL).
					Post("/transaction/initialize").
					Reply(200).
					JSON(map[string]any{"status": false, "message": "Duplicate Transaction Reference"})
			},
			expectedError: true,
		},
		{
			name: "Malformed body",
			mockResponse: func() {
				gock.New(baseURL).
					Post("/transaction/initialize").
					Reply(200).
					BodyString("<html>bad gateway</html>")
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer gock.Off()
			tt.mockResponse()

			trx, err := newClient().Initialize(context.Background(), paystack.InitializeRequest{
				Amount:    5000,
				Email:     "buyer@example.com",
				Reference: "order_INV-1001_1699999999",
				Metadata:  paystack.Metadata{OrderNumber: "INV-1001", CustomerID: 7},
			})
			if tt.expectedError {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, paystack.ErrGateway))
			} else {
				require.NoError(t, err)
				assert.Equal(t, "order_INV-1001_1699999999", trx.Reference)
				assert.Equal(t, "abc", trx.AccessCode)
				assert.Equal(t, "https://checkout.paystack.com/abc", trx.AuthorizationURL)
			}
			assert.True(t, gock.IsDone())
		})
	}
}

func TestClient_Verify(t *testing.T) {
	defer gock.Off()

	gock.New(baseURL).
		Get("/transaction/verify/order_INV-1001_1699999999").
		MatchHeader("Authorization", "Bearer "+secretKey).
		Reply(200).
		JSON(map[string]any{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]any{
				"id":        4099260516,
				"status":    "success",
				"reference": "order_INV-1001_1699999999",
				"amount":    5000,
				"currency":  "NGN",
				"metadata":  map[string]any{"order_number": "INV-1001", "customer_id": 7},
			},
		})

	v, err := newClient().Verify(context.Background(), "order_INV-1001_1699999999")
	require.NoError(t, err)
	assert.Equal(t, paystack.StatusSuccess, v.Status)
	assert.Equal(t, int64(5000), v.Amount)
	assert.Equal(t, "INV-1001", v.Metadata.OrderNumber)
	assert.Equal(t, int64(7), v.Metadata.CustomerID)
	assert.Equal(t, "4099260516", v.ChargeID())
	assert.Contains(t, string(v.Raw), `"reference":"order_INV-1001_1699999999"`)
	assert.True(t, gock.IsDone())
}

func TestClient_Verify_EmptyMetadata(t *testing.T) {
	defer gock.Off()

	gock.New(baseURL).
		Get("/transaction/verify/order_42_1").
		Reply(200).
		JSON(map[string]any{
			"status": true,
			"data": map[string]any{
				"status":    "abandoned",
				"reference": "order_42_1",
				"amount":    100,
				"metadata":  "",
			},
		})

	v, err := newClient().Verify(context.Background(), "order_42_1")
	require.NoError(t, err)
	assert.Equal(t, "abandoned", v.Status)
	assert.Empty(t, v.Metadata.OrderNumber)
	assert.Equal(t, "order_42_1", v.ChargeID())
}

func TestClient_Verify_ServerError(t *testing.T) {
	defer gock.Off()

	gock.New(baseURL).
		Get("/transaction/verify/order_42_1").
		Reply(503).
		BodyString("upstream unavailable")

	_, err := newClient().Verify(context.Background(), "order_42_1")
	assert.True(t, errors.Is(err, paystack.ErrGateway))
	assert.Contains(t, err.Error(), "503")
}
