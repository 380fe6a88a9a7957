package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"sales_engine/internal/sales"
)

func initRoutesTests(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	logger := zaptest.NewLogger(t)
	svc := sales.NewService(sales.NewLocalStorage(), nil, sales.NewSequence(0), logger)
	InitRoutes(router, svc, logger)
	return router
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type saleResponse struct {
	ID          string `json:"id"`
	OrderNumber int64  `json:"order_number"`
	Cancelled   bool   `json:"cancelled"`
	Items       []struct {
		ID        string `json:"id"`
		Quantity  int    `json:"quantity"`
		LineTotal string `json:"line_total"`
		Cancelled bool   `json:"cancelled"`
	} `json:"items"`
}

// TestSalesHappyPath_FullFlow drives create -> update -> cancel item -> cancel sale -> list.
func TestSalesHappyPath_FullFlow(t *testing.T) {
	router := initRoutesTests(t)
	productID := uuid.NewString()

	var created saleResponse
	t.Run("POST_CreateSale", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/sales", map[string]any{
			"customer_id":   uuid.NewString(),
			"customer_name": "Maria",
			"branch":        "Centro",
			"items": []map[string]any{{
				"product_id":   productID,
				"product_name": "P1",
				"quantity":     2,
				"unit_price":   "10.00",
				"discount":     1.00,
			}},
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, int64(1), created.OrderNumber)
		require.Len(t, created.Items, 1)
		assert.Equal(t, "19", created.Items[0].LineTotal)
	})
	require.NotEmpty(t, created.ID, "sale was not created")
	itemID := created.Items[0].ID

	t.Run("PUT_UpdateSale", func(t *testing.T) {
		w := doJSON(router, http.MethodPut, "/sales/"+created.ID, map[string]any{
			"customer_name": "Maria",
			"branch":        "Centro",
			"items": []map[string]any{{
				"id":         itemID,
				"product_id": productID,
				"quantity":   3,
				"unit_price": "10.00",
				"discount":   "1.00",
			}},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var updated saleResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
		require.Len(t, updated.Items, 1)
		assert.Equal(t, itemID, updated.Items[0].ID)
		assert.Equal(t, 3, updated.Items[0].Quantity)
		assert.Equal(t, "29", updated.Items[0].LineTotal)
	})

	t.Run("POST_CancelItem", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, fmt.Sprintf("/sales/%s/items/%s/cancel", created.ID, itemID), nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("POST_CancelSale", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, fmt.Sprintf("/sales/%s/cancel", created.ID), nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("GET_ListSales", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/sales", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Results  []saleResponse      `json:"results"`
			Metadata sales.SalesMetadata `json:"metadata"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Len(t, response.Results, 1)
		assert.True(t, response.Results[0].Cancelled)
		assert.True(t, response.Results[0].Items[0].Cancelled)
		assert.Equal(t, 1, response.Metadata.Quantity)
		assert.Equal(t, 1, response.Metadata.Cancelled)
	})
}

func TestCreateSaleValidationError(t *testing.T) {
	router := initRoutesTests(t)

	w := doJSON(router, http.MethodPost, "/sales", map[string]any{
		"items": []map[string]any{{"quantity": 0, "unit_price": "1"}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Error    string   `json:"error"`
		Messages []string `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Messages, "item 1: product id is required")
	assert.Contains(t, body.Messages, "item 1: quantity must be greater than zero")
}

func TestCreateSaleConflict(t *testing.T) {
	router := initRoutesTests(t)
	id := uuid.NewString()
	payload := map[string]any{"id": id}

	require.Equal(t, http.StatusCreated, doJSON(router, http.MethodPost, "/sales", payload).Code)
	assert.Equal(t, http.StatusConflict, doJSON(router, http.MethodPost, "/sales", payload).Code)
}

func TestNotFoundAndBadIDs(t *testing.T) {
	router := initRoutesTests(t)

	assert.Equal(t, http.StatusNotFound, doJSON(router, http.MethodGet, "/sales/"+uuid.NewString(), nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(router, http.MethodPut, "/sales/"+uuid.NewString(), map[string]any{}).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(router, http.MethodPost, "/sales/"+uuid.NewString()+"/cancel", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(router, http.MethodGet, "/sales/not-a-uuid", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(router, http.MethodPost, "/sales", nil).Code)
}

func TestPing(t *testing.T) {
	router := initRoutesTests(t)
	w := doJSON(router, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}

func TestCreateSaleWithForeignItemID(t *testing.T) {
	router := initRoutesTests(t)
	line := map[string]any{"product_id": uuid.NewString(), "quantity": 1, "unit_price": "2.00"}

	w := doJSON(router, http.MethodPost, "/sales", map[string]any{"items": []map[string]any{line}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var first saleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))

	line["id"] = first.Items[0].ID
	w = doJSON(router, http.MethodPost, "/sales", map[string]any{"items": []map[string]any{line}})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}
