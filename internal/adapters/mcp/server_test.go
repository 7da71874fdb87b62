package mcp

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
	"github.com/aretw0/statecraft/pkg/clock"
	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/machines/navigation"
	"github.com/aretw0/statecraft/pkg/machines/toast"
	"github.com/aretw0/statecraft/pkg/mockdata"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*Server, *statecraft.System) {
	t.Helper()
	sys := statecraft.New(statecraft.WithClock(clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))))
	sys.Start(context.Background())
	t.Cleanup(sys.Close)
	return NewServer(sys, nil), sys
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestListMachines(t *testing.T) {
	s, _ := newServer(t)

	res, err := s.handleListMachines(context.Background(), callRequest("list_machines", nil))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var snaps []domain.Snapshot
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &snaps))
	assert.Len(t, snaps, 5)
}

func TestListEvents(t *testing.T) {
	s, _ := newServer(t)
	ctx := context.Background()

	res, err := s.handleListEvents(ctx, callRequest("list_events", map[string]any{"machine": "toasts"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	var events map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &events))
	assert.Contains(t, events, toast.EventAddToast)
	assert.Equal(t, map[string]any{"id": "string"}, events[toast.EventDismissToast])

	res, err = s.handleListEvents(ctx, callRequest("list_events", map[string]any{"machine": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestGetSnapshot(t *testing.T) {
	s, _ := newServer(t)
	ctx := context.Background()

	snap, err := s.handleGetSnapshot(ctx, callRequest("get_snapshot", nil), SnapshotArgs{Machine: "navigation"})
	require.NoError(t, err)
	assert.Equal(t, navigation.StateActive, snap.State)

	_, err = s.handleGetSnapshot(ctx, callRequest("get_snapshot", nil), SnapshotArgs{Machine: "nope"})
	assert.ErrorIs(t, err, domain.ErrUnknownMachine)
}

func TestSendEvent(t *testing.T) {
	s, sys := newServer(t)
	ctx := context.Background()

	_, err := s.handleSendEvent(ctx, callRequest("send_event", nil), SendEventArgs{
		Machine: "navigation",
		Type:    navigation.EventGoTo,
		Payload: `{"slide":{"example":"messages","view":"good"}}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "/messages/good", sys.Navigation.Path())

	_, err = s.handleSendEvent(ctx, callRequest("send_event", nil), SendEventArgs{
		Machine: "navigation",
		Type:    navigation.EventNext,
		Payload: `[1,2]`,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)
	assert.Equal(t, "/messages/good", sys.Navigation.Path(), "rejected payload sends nothing")

	_, err = s.handleSendEvent(ctx, callRequest("send_event", nil), SendEventArgs{
		Machine: "navigation",
		Type:    navigation.EventGoTo,
		Payload: `{"slide":"intro"}`,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	_, err = s.handleSendEvent(ctx, callRequest("send_event", nil), SendEventArgs{Machine: "nope", Type: "X"})
	assert.ErrorIs(t, err, domain.ErrUnknownMachine)
}

func TestNotify(t *testing.T) {
	s, sys := newServer(t)
	ctx := context.Background()

	resp, err := s.handleNotify(ctx, callRequest("notify", nil), NotifyArgs{Message: "Deployed", Type: "success", Duration: 1500})
	require.NoError(t, err)
	require.NotEmpty(t, resp.ID)

	items := sys.Notifications()
	require.Len(t, items, 1)
	assert.Equal(t, resp.ID, items[0].ID)
	assert.Equal(t, toast.SeveritySuccess, items[0].Severity)
	assert.Equal(t, 1500, items[0].Duration)

	_, err = s.handleNotify(ctx, callRequest("notify", nil), NotifyArgs{})
	assert.Error(t, err)
}

func TestGetGraph(t *testing.T) {
	s, _ := newServer(t)
	ctx := context.Background()

	res, err := s.handleGetGraph(ctx, callRequest("get_graph", map[string]any{"machine": "network"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "class disconnected current;")

	res, err = s.handleGetGraph(ctx, callRequest("get_graph", map[string]any{"machine": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleGetGraph(ctx, callRequest("get_graph", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestSSEHandler(t *testing.T) {
	s, _ := newServer(t)
	srv := httptest.NewServer(s.SSEHandler("http://mcp.test"))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/sse", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	scanner := bufio.NewScanner(resp.Body)
	var endpoint string
	for scanner.Scan() {
		if data, ok := strings.CutPrefix(scanner.Text(), "data: "); ok {
			endpoint = data
			break
		}
	}
	assert.True(t, strings.HasPrefix(endpoint, "http://mcp.test/message"), endpoint)

	preflight := httptest.NewRequest("OPTIONS", "/message", nil)
	rr := httptest.NewRecorder()
	s.SSEHandler("http://mcp.test").ServeHTTP(rr, preflight)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestGetSnapshot_FlattensChildren(t *testing.T) {
	s, sys := newServer(t)
	id := sys.Notify(toast.Toast{Message: "Saved"})

	resp, err := s.handleGetSnapshot(context.Background(), callRequest("get_snapshot", nil), SnapshotArgs{Machine: "toasts"})
	require.NoError(t, err)
	require.Len(t, resp.Children, 1)
	assert.Equal(t, "toast-"+id, resp.Children[0]["machine"])
	assert.Equal(t, toast.StateRunning, resp.Children[0]["state"])
}

func TestTools_InProcessClient(t *testing.T) {
	s, sys := newServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := client.NewInProcessClient(s.MCPServer())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	require.NoError(t, c.Start(ctx))

	var initReq mcp.InitializeRequest
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "statecraft-test", Version: "1.0.0"}
	info, err := c.Initialize(ctx, initReq)
	require.NoError(t, err)
	assert.Equal(t, "statecraft-mcp", info.ServerInfo.Name)

	tools, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"list_machines", "get_snapshot", "list_events", "send_event", "notify", "get_graph"}, names)

	call := func(name string, args map[string]any) string {
		t.Helper()
		var req mcp.CallToolRequest
		req.Params.Name = name
		req.Params.Arguments = args
		res, err := c.CallTool(ctx, req)
		require.NoError(t, err)
		require.False(t, res.IsError, "%s: %v", name, res.Content)
		return resultText(t, res)
	}

	var snaps []domain.Snapshot
	require.NoError(t, json.Unmarshal([]byte(call("list_machines", nil)), &snaps))
	assert.Len(t, snaps, 5)

	var snap SnapshotResponse
	require.NoError(t, json.Unmarshal([]byte(call("get_snapshot", map[string]any{"machine": "network"})), &snap))
	assert.Equal(t, "disconnected", snap.State)

	assert.Contains(t, call("list_events", map[string]any{"machine": "syncing"}), "documentId")

	require.NoError(t, json.Unmarshal([]byte(call("send_event", map[string]any{
		"machine": "navigation",
		"type":    navigation.EventNext,
	})), &snap))
	assert.Equal(t, navigation.StateActive, snap.State)
	assert.Equal(t, "/introduction/about-me", sys.Navigation.Path())

	var created NotifyResponse
	require.NoError(t, json.Unmarshal([]byte(call("notify", map[string]any{"message": "Hello", "type": "info"})), &created))
	assert.NotEmpty(t, created.ID)

	assert.Contains(t, call("get_graph", map[string]any{"machine": "navigation"}), "graph TD")
}

func TestReadFriends(t *testing.T) {
	s, sys := newServer(t)

	var req mcp.ReadResourceRequest
	req.Params.URI = friendsURI
	contents, err := s.handleReadFriends(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)

	var friends []mockdata.Friend
	require.NoError(t, json.Unmarshal([]byte(text.Text), &friends))
	require.Len(t, friends, statecraft.FriendCount)
	assert.Equal(t, sys.Friends()[0].ID, friends[0].ID)
}
