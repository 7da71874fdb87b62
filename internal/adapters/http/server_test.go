package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/statecraft"
	api "github.com/aretw0/statecraft/internal/adapters/http"
	"github.com/aretw0/statecraft/pkg/clock"
	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/machines/network"
	"github.com/aretw0/statecraft/pkg/machines/toast"
	"github.com/aretw0/statecraft/pkg/mockdata"
	"github.com/aretw0/statecraft/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newHandler(t *testing.T) (http.Handler, *statecraft.System, *clock.Manual) {
	t.Helper()
	c := clock.NewManual(epoch)
	metrics := observability.NewMetrics()
	sys := statecraft.New(
		statecraft.WithClock(c),
		statecraft.WithSeed(1),
		statecraft.WithLifecycleHooks(metrics.Hooks()),
	)
	sys.Start(context.Background())
	t.Cleanup(sys.Close)
	return api.NewHandler(sys, api.WithMetrics(metrics.Handler())), sys, c
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestGetHealth(t *testing.T) {
	h, _, _ := newHandler(t)
	rr := do(t, h, "GET", "/health", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestGetInfo(t *testing.T) {
	h, _, _ := newHandler(t)
	rr := do(t, h, "GET", "/info", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		App      string   `json:"app"`
		Version  string   `json:"version"`
		Machines []string `json:"machines"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "statecraft-http", resp.App)
	assert.Equal(t, statecraft.Version, resp.Version)
	assert.Len(t, resp.Machines, 5)
}

func TestMachines(t *testing.T) {
	h, _, _ := newHandler(t)

	rr := do(t, h, "GET", "/machines", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list []domain.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Len(t, list, 5)

	rr = do(t, h, "GET", "/machines/network", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.Equal(t, network.StateDisconnected, snap.State)

	rr = do(t, h, "GET", "/machines/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSendEvent(t *testing.T) {
	h, sys, c := newHandler(t)

	rr := do(t, h, "POST", "/machines/network/events", `{"type":"CONNECT","payload":{"delay":200}}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.Equal(t, network.StateConnecting, snap.State)

	c.Advance(200 * time.Millisecond)
	assert.True(t, sys.Network.Connected())

	tests := []struct {
		name   string
		target string
		body   string
		code   int
	}{
		{"Unknown Machine", "/machines/nope/events", `{"type":"CONNECT"}`, http.StatusNotFound},
		{"Malformed Body", "/machines/network/events", `{"type":`, http.StatusBadRequest},
		{"Missing Type", "/machines/network/events", `{"payload":{}}`, http.StatusBadRequest},
		{"Invalid Payload", "/machines/network/events", `{"type":"CONNECT","payload":{"delay":"soon"}}`, http.StatusBadRequest},
		{"Unhandled Event", "/machines/network/events", `{"type":"JUMP"}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, "POST", tt.target, tt.body)
			assert.Equal(t, tt.code, rr.Code)
		})
	}
}

func TestListEvents(t *testing.T) {
	h, _, _ := newHandler(t)

	rr := do(t, h, "GET", "/machines/network/events", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"CONNECT":{"delay":"int>=0?"},"DISCONNECT":null}`, rr.Body.String())

	rr = do(t, h, "GET", "/machines/nope/events", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestToasts(t *testing.T) {
	h, _, c := newHandler(t)

	rr := do(t, h, "GET", "/toasts", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = do(t, h, "POST", "/toasts", `{"message":"Saved","type":"success","duration":1000}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.NotEmpty(t, created["id"])

	rr = do(t, h, "GET", "/toasts", "")
	var items []toast.Item
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, created["id"], items[0].ID)
	assert.Equal(t, toast.SeveritySuccess, items[0].Severity)
	assert.Equal(t, toast.StateRunning, items[0].State)

	c.Advance(time.Second + toast.DefaultHide)
	rr = do(t, h, "GET", "/toasts", "")
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = do(t, h, "POST", "/toasts", `{"message":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestFriends(t *testing.T) {
	h, sys, _ := newHandler(t)

	rr := do(t, h, "GET", "/friends", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var friends []mockdata.Friend
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &friends))
	require.Len(t, friends, statecraft.FriendCount)
	assert.Equal(t, sys.Friends()[0].Name, friends[0].Name)
	assert.Contains(t, rr.Body.String(), `"fromSelf"`)

	rr = do(t, h, "GET", "/friends/"+friends[3].ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var one mockdata.Friend
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &one))
	assert.Equal(t, friends[3].ID, one.ID)
	assert.Len(t, one.Messages, len(friends[3].Messages))

	rr = do(t, h, "GET", "/friends/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetGraph(t *testing.T) {
	h, _, _ := newHandler(t)

	rr := do(t, h, "GET", "/graph/network", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.HasPrefix(body, "graph TD\n"))
	assert.Contains(t, body, `disconnected -- "CONNECT" --> connecting`)
	assert.Contains(t, body, "class disconnected current;")

	rr = do(t, h, "GET", "/graph/toast?format=json", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var g domain.MachineGraph
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &g))
	assert.Equal(t, toast.ChildMachineID, g.ID)

	rr = do(t, h, "GET", "/graph/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMetrics(t *testing.T) {
	h, _, _ := newHandler(t)
	do(t, h, "POST", "/machines/network/events", `{"type":"CONNECT"}`)

	rr := do(t, h, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "statecraft_transitions_total")
}

func TestStreamMachine(t *testing.T) {
	h, _, c := newHandler(t)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/machines/network/stream?watch=state", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			data, ok := strings.CutPrefix(scanner.Text(), "data: ")
			if !ok || data == "connected" {
				continue
			}
			select {
			case lines <- data:
			case <-ctx.Done():
				return
			}
		}
	}()

	next := func() domain.SnapshotDiff {
		t.Helper()
		select {
		case line := <-lines:
			var diff domain.SnapshotDiff
			require.NoError(t, json.Unmarshal([]byte(line), &diff))
			return diff
		case <-time.After(2 * time.Second):
			t.Fatal("no stream message")
		}
		return domain.SnapshotDiff{}
	}

	first := next()
	require.NotNil(t, first.State)
	assert.Equal(t, network.StateDisconnected, *first.State)

	do(t, h, "POST", "/machines/network/events", `{"type":"CONNECT","payload":{"delay":100}}`)
	c.Advance(100 * time.Millisecond)

	var states []string
	for len(states) == 0 || states[len(states)-1] != network.StateConnected {
		diff := next()
		require.NotNil(t, diff.State)
		states = append(states, *diff.State)
	}
	assert.Contains(t, states, network.StateConnected)
}
