package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/chat"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/nlu"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/observability"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/orders"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/storage"
)

type fixedResponder struct{}

func (fixedResponder) Respond(_ context.Context, message string, _ orders.Caller) string {
	return "re: " + message
}

func batch() *chat.BatchProcessor {
	return chat.NewBatchProcessor(fixedResponder{}, 2, time.Second)
}

func TestReadMessages(t *testing.T) {
	msgs, err := readMessages(strings.NewReader("hola\n\n# comment\n  mis compras  \n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"hola", "mis compras"}, msgs)

	_, err = readMessages(strings.NewReader("\n# only comments\n"))
	assert.Error(t, err)
}

func TestCollectMessages(t *testing.T) {
	msgs, err := collectMessages([]string{"tenés", "aceite?"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"tenés aceite?"}, msgs)

	_, err = collectMessages(nil, "")
	assert.Error(t, err)

	_, err = collectMessages([]string{"x"}, "questions.txt")
	assert.Error(t, err)
}

func TestRunAsk_JSON(t *testing.T) {
	ui = NewUI(true, true)
	outputJSON = true
	t.Cleanup(func() { outputJSON = false })

	var out bytes.Buffer
	require.NoError(t, runAsk(context.Background(), &out, batch(), orders.Caller{}, []string{"a", "b"}))

	var results []askResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	assert.Equal(t, []askResult{{Message: "a", Reply: "re: a"}, {Message: "b", Reply: "re: b"}}, results)
}

func TestRunAsk_Plain(t *testing.T) {
	ui = NewUI(false, true)

	var out bytes.Buffer
	require.NoError(t, runAsk(context.Background(), &out, batch(), orders.Caller{}, []string{"hola"}))
	assert.Equal(t, "re: hola\n", out.String())
}

func TestClassifyCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"classify", "estado", "de", "mi", "pedido", "AB12CD34EF56"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())

	var view struct {
		Kind string            `json:"kind"`
		Args map[string]string `json:"args"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &view))
	assert.Equal(t, "order.byId", view.Kind)
	assert.Equal(t, "AB12CD34EF56", view.Args["id"])
}

func TestRemoteResponder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["message"] == "spam" {
			w.Header().Set("Retry-After", "5")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"reply":"Demasiadas solicitudes, intentá más tarde."}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"reply": body["userId"] + " " + body["message"]})
	}))
	defer srv.Close()
	logger = observability.NopLogger()

	r := newRemoteResponder(srv.URL, "")
	assert.Equal(t, "u1 hola", r.Respond(context.Background(), "hola", orders.Caller{UserID: "u1"}))
	assert.Equal(t, "Demasiadas solicitudes, intentá más tarde.", r.Respond(context.Background(), "spam", orders.Caller{}))
}

func TestPrintAuditTable(t *testing.T) {
	var out bytes.Buffer
	printAuditTable(&out, []storage.AuditRecord{{
		Intent:     "product.search",
		Outcome:    "empty",
		Strategy:   "grade_only",
		Degraded:   true,
		LatencyMs:  7,
		OccurredAt: time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
	}})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "TIME"))
	assert.Contains(t, lines[1], "2024-05-10 12:00:00")
	assert.Contains(t, lines[1], "grade_only (degraded)")
	assert.Contains(t, lines[1], "7ms")
}

func TestClassifyCommand_Criteria(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"classify", "--criteria", "hola", "castrol", "5W-40", "hasta", "30.000"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())

	var criteria struct {
		Grades   []string `json:"grades"`
		Brand    string   `json:"brand"`
		PriceMax *float64 `json:"priceMax"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &criteria))
	assert.Equal(t, []string{"5w40"}, criteria.Grades)
	assert.Equal(t, "castrol", criteria.Brand)
	require.NotNil(t, criteria.PriceMax)
	assert.Equal(t, 30000.0, *criteria.PriceMax)
}

func TestClassifyCommand_Vehicle(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"classify", "--criteria", "--model", "Gol Trend", "--year", "2012", "filtro", "de", "aceite"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		classify, _, err := rootCmd.Find([]string{"classify"})
		require.NoError(t, err)
		require.NoError(t, classify.Flags().Set("model", ""))
		require.NoError(t, classify.Flags().Set("year", "0"))
	})

	require.NoError(t, rootCmd.Execute())

	var criteria struct {
		Model string `json:"model"`
		Year  int    `json:"year"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &criteria))
	assert.Equal(t, "gol trend", criteria.Model)
	assert.Equal(t, 2012, criteria.Year)
}

func TestRemoteResponder_Vehicle(t *testing.T) {
	var got struct {
		Vehicle *struct {
			Model  string `json:"model"`
			Engine string `json:"engine"`
			Year   int    `json:"year"`
		} `json:"vehicle"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]string{"reply": "ok"})
	}))
	defer srv.Close()
	logger = observability.NopLogger()

	r := newRemoteResponder(srv.URL, "")
	ctx := chat.WithVehicle(context.Background(), nlu.Vehicle{Model: "gol", Engine: "1.6", Year: 2012})
	assert.Equal(t, "ok", r.Respond(ctx, "filtro de aceite", orders.Caller{}))
	require.NotNil(t, got.Vehicle)
	assert.Equal(t, "gol", got.Vehicle.Model)
	assert.Equal(t, "1.6", got.Vehicle.Engine)
	assert.Equal(t, 2012, got.Vehicle.Year)

	got.Vehicle = nil
	r.Respond(context.Background(), "hola", orders.Caller{})
	assert.Nil(t, got.Vehicle)
}
