// File: internal/server/server_test.go
package server_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/boxscope/api/schemas"
	"github.com/xkilldash9x/boxscope/internal/config"
	"github.com/xkilldash9x/boxscope/internal/geometry"
	"github.com/xkilldash9x/boxscope/internal/server"
	"github.com/xkilldash9x/boxscope/internal/snapshot"
	"github.com/xkilldash9x/boxscope/internal/workspace"
)

var leakOptions = []goleak.Option{
	goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
	goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
}

func testSnapshot() *snapshot.Snapshot {
	page := geometry.NewRect(0, 0, 400, 300)
	link := geometry.NewRect(100, 100, 200, 120)
	return &snapshot.Snapshot{
		Version: snapshot.Version,
		Root: &snapshot.Node{
			Type: snapshot.TypeDocument,
			Children: []*snapshot.Node{{
				Type: snapshot.TypeElement, Name: "html",
				Boxes: snapshot.RectBoxes(page, page, page, page),
				Children: []*snapshot.Node{{
					Type: snapshot.TypeElement, Name: "body",
					Boxes: snapshot.RectBoxes(page, page, page, page),
					Children: []*snapshot.Node{{
						Type:       snapshot.TypeElement,
						Name:       "a",
						Attributes: []schemas.Attribute{{Name: "id", Value: "home"}, {Name: "href", Value: "/"}},
						Boxes:      snapshot.RectBoxes(link, link, link, link),
					}},
				}},
			}},
		},
	}
}

type fakeBrowser struct {
	point geometry.Point
	block bool
}

func (f *fakeBrowser) Pick(ctx context.Context) (geometry.Point, error) {
	if f.block {
		<-ctx.Done()
		return geometry.Point{}, ctx.Err()
	}
	return f.point, nil
}

func (f *fakeBrowser) Capture(context.Context) (*snapshot.Snapshot, error) {
	return testSnapshot(), nil
}

type fixture struct {
	ws     *workspace.Workspace
	server *server.Server
	http   *httptest.Server
}

func setup(t *testing.T, loaded bool, opts ...workspace.Option) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	ws := workspace.New(logger, opts...)
	if loaded {
		require.NoError(t, ws.Load(testSnapshot()))
	}
	srv := server.New(config.ServerConfig{RequestTimeout: 5 * time.Second}, ws, logger)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
		ts.Client().CloseIdleConnections()
	})
	return &fixture{ws: ws, server: srv, http: ts}
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, f.http.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := f.http.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	return resp.StatusCode, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestHealthCheck(t *testing.T) {
	f := setup(t, false)
	status, body := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, server.HealthResponse{Status: "ok"}, decode[server.HealthResponse](t, body))

	require.NoError(t, f.ws.Load(testSnapshot()))
	_, body = f.do(t, http.MethodGet, "/healthz", "")
	assert.True(t, decode[server.HealthResponse](t, body).Snapshot)
}

func TestResolve(t *testing.T) {
	t.Run("no snapshot", func(t *testing.T) {
		f := setup(t, false)
		status, body := f.do(t, http.MethodPost, "/api/v1/resolve", `{"x":1,"y":1}`)
		assert.Equal(t, http.StatusConflict, status)
		assert.Contains(t, decode[server.ErrorResponse](t, body).Error, "no snapshot")
	})

	t.Run("bad requests", func(t *testing.T) {
		f := setup(t, true)
		for _, body := range []string{`not json`, `{"x":1}`, `{}`} {
			status, _ := f.do(t, http.MethodPost, "/api/v1/resolve", body)
			assert.Equal(t, http.StatusBadRequest, status, body)
		}
	})

	t.Run("hit", func(t *testing.T) {
		f := setup(t, true)
		status, body := f.do(t, http.MethodPost, "/api/v1/resolve", `{"x":150,"y":110}`)
		require.Equal(t, http.StatusOK, status)

		resp := decode[schemas.PickResponse](t, body)
		assert.NotEmpty(t, resp.SessionID)
		got := make([]string, len(resp.Elements))
		for i, e := range resp.Elements {
			got[i] = e.NodeName + " " + e.Reason + " " + e.UniqueSelector
		}
		want := []string{"A content #home", "BODY content body", "HTML content html"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("elements mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, []schemas.Attribute{{Name: "id", Value: "home"}, {Name: "href", Value: "/"}}, resp.Elements[0].Attributes)
	})

	t.Run("origin of the page is a hit", func(t *testing.T) {
		f := setup(t, true)
		status, body := f.do(t, http.MethodPost, "/api/v1/resolve", `{"x":0,"y":0}`)
		require.Equal(t, http.StatusOK, status)
		assert.Len(t, decode[schemas.PickResponse](t, body).Elements, 2)
	})
}

func TestHighlight(t *testing.T) {
	f := setup(t, true)
	f.do(t, http.MethodPost, "/api/v1/resolve", `{"x":150,"y":110}`)

	status, body := f.do(t, http.MethodGet, "/api/v1/highlight/0", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t,
		schemas.HighlightResponse{Index: 0, Found: true, Rect: &schemas.Rect{X: 100, Y: 100, Width: 100, Height: 20}},
		decode[schemas.HighlightResponse](t, body),
	)

	status, body = f.do(t, http.MethodGet, "/api/v1/highlight/99", "")
	require.Equal(t, http.StatusOK, status)
	assert.False(t, decode[schemas.HighlightResponse](t, body).Found)

	status, _ = f.do(t, http.MethodGet, "/api/v1/highlight/first", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestLocate(t *testing.T) {
	f := setup(t, true)

	status, body := f.do(t, http.MethodGet, "/api/v1/locate?xpath=//a", "")
	require.Equal(t, http.StatusOK, status)
	resp := decode[schemas.NodeResponse](t, body)
	assert.Equal(t, "#home", resp.UniqueSelector)
	assert.Equal(t, "//*[@id='home']", resp.UniqueXPath)

	status, _ = f.do(t, http.MethodGet, "/api/v1/locate?selector=table", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.do(t, http.MethodGet, "/api/v1/locate", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSnapshotEndpoint(t *testing.T) {
	f := setup(t, false)
	status, _ := f.do(t, http.MethodGet, "/api/v1/snapshot", "")
	assert.Equal(t, http.StatusConflict, status)

	require.NoError(t, f.ws.Load(testSnapshot()))
	status, body := f.do(t, http.MethodGet, "/api/v1/snapshot", "")
	require.Equal(t, http.StatusOK, status)
	snap, err := snapshot.Load(strings.NewReader(string(body)))
	require.NoError(t, err)
	assert.Equal(t, snapshot.TypeDocument, snap.Root.Type)
}

func TestPickEndpoint(t *testing.T) {
	t.Run("no browser", func(t *testing.T) {
		f := setup(t, true)
		status, _ := f.do(t, http.MethodPost, "/api/v1/pick", "")
		assert.Equal(t, http.StatusServiceUnavailable, status)
	})

	t.Run("live pick", func(t *testing.T) {
		f := setup(t, false, workspace.WithBrowser(&fakeBrowser{point: geometry.Point{X: 101, Y: 101}}))
		status, body := f.do(t, http.MethodPost, "/api/v1/pick", "")
		require.Equal(t, http.StatusOK, status)
		resp := decode[schemas.PickResponse](t, body)
		require.NotEmpty(t, resp.Elements)
		assert.Equal(t, "#home", resp.Elements[0].UniqueSelector)
	})
}

func TestCORSPreflight(t *testing.T) {
	f := setup(t, false)
	req, err := http.NewRequest(http.MethodOptions, f.http.URL+"/api/v1/resolve", nil)
	require.NoError(t, err)
	resp, err := f.http.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func dialPick(t *testing.T, f *fixture) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws/v1/pick"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	return conn
}

func exchange(t *testing.T, conn *websocket.Conn, msg schemas.PickMessage) schemas.PickMessage {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var reply schemas.PickMessage
	require.NoError(t, conn.ReadJSON(&reply))
	return reply
}

func TestPickWebSocket(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t, leakOptions...) })

	f := setup(t, true, workspace.WithBrowser(&fakeBrowser{point: geometry.Point{X: 150, Y: 110}}))
	conn := dialPick(t, f)
	defer conn.Close()

	reply := exchange(t, conn, schemas.PickMessage{Action: schemas.ActionPick})
	require.Equal(t, schemas.ActionElements, reply.Action, reply.Error)
	require.Len(t, reply.Elements, 3)
	assert.Equal(t, "#home", reply.Elements[0].UniqueSelector)
	assert.Equal(t, &schemas.Point{X: 150, Y: 110}, reply.Point)

	index := 0
	reply = exchange(t, conn, schemas.PickMessage{Action: schemas.ActionHighlight, Index: &index})
	assert.Equal(t, schemas.ActionHighlight, reply.Action)
	require.NotNil(t, reply.Found)
	assert.True(t, *reply.Found)
	assert.Equal(t, &schemas.Rect{X: 100, Y: 100, Width: 100, Height: 20}, reply.Rect)

	index = 3
	reply = exchange(t, conn, schemas.PickMessage{Action: schemas.ActionHighlight, Index: &index})
	require.NotNil(t, reply.Found)
	assert.False(t, *reply.Found)
	assert.Nil(t, reply.Rect)

	reply = exchange(t, conn, schemas.PickMessage{Action: schemas.ActionResolve, Point: &schemas.Point{X: 5, Y: 5}})
	assert.Equal(t, schemas.ActionElements, reply.Action)
	assert.Len(t, reply.Elements, 2)

	reply = exchange(t, conn, schemas.PickMessage{Action: schemas.ActionResolve})
	assert.Equal(t, schemas.ActionError, reply.Action)

	reply = exchange(t, conn, schemas.PickMessage{Action: "dance"})
	assert.Equal(t, schemas.ActionError, reply.Action)
	assert.Contains(t, reply.Error, "dance")

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
}

func TestPickWebSocket_CloseCancelsPendingPick(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t, leakOptions...) })

	f := setup(t, true, workspace.WithBrowser(&fakeBrowser{block: true}))
	conn := dialPick(t, f)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(schemas.PickMessage{Action: schemas.ActionPick}))
	// Give the pick time to start blocking, then stop the server side.
	time.Sleep(20 * time.Millisecond)
	f.server.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseNormalClosure, closeErr.Code)
}

// nestedSnapshot adds an id-less span so its selector needs a combinator.
func nestedSnapshot() *snapshot.Snapshot {
	snap := testSnapshot()
	body := snap.Root.Children[0].Children[0]
	span := geometry.NewRect(0, 200, 50, 220)
	body.Children = append(body.Children, &snapshot.Node{
		Type: snapshot.TypeElement, Name: "span",
		Boxes: snapshot.RectBoxes(span, span, span, span),
	})
	return snap
}

func TestSelectorsAreNotHTMLEscaped(t *testing.T) {
	f := setup(t, false)
	require.NoError(t, f.ws.Load(nestedSnapshot()))

	status, body := f.do(t, http.MethodGet, "/api/v1/locate?xpath=//span", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"uniqueSelector":"body > span:nth-child(2)"`)
	assert.NotContains(t, string(body), `\u003e`)

	conn := dialPick(t, f)
	defer conn.Close()
	require.NoError(t, conn.WriteJSON(schemas.PickMessage{Action: schemas.ActionResolve, Point: &schemas.Point{X: 10, Y: 210}}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "body > span:nth-child(2)")
	assert.NotContains(t, string(raw), `\u003e`)
}

func TestPendingPickDoesNotBlockReads(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t, leakOptions...) })

	f := setup(t, true, workspace.WithBrowser(&fakeBrowser{block: true}))
	conn := dialPick(t, f)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(schemas.PickMessage{Action: schemas.ActionPick}))
	time.Sleep(20 * time.Millisecond)

	get := func(path string) int {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.http.URL+path, nil)
		require.NoError(t, err)
		resp, err := f.http.Client().Do(req)
		require.NoError(t, err, "GET %s while a pick is pending", path)
		resp.Body.Close()
		return resp.StatusCode
	}
	assert.Equal(t, http.StatusOK, get("/healthz"))
	assert.Equal(t, http.StatusOK, get("/api/v1/highlight/0"))
	assert.Equal(t, http.StatusOK, get("/api/v1/locate?xpath=//a"))

	reply := exchange(t, conn, schemas.PickMessage{Action: schemas.ActionResolve, Point: &schemas.Point{X: 150, Y: 110}})
	assert.Equal(t, schemas.ActionElements, reply.Action)

	f.server.Close()
}

func TestServe_GracefulShutdown(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t, leakOptions...) })

	ws := workspace.New(nil)
	require.NoError(t, ws.Load(testSnapshot()))
	srv := server.New(config.ServerConfig{ShutdownTimeout: time.Second}, ws, zaptest.NewLogger(t))

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, l) }()

	client := &http.Client{Timeout: 5 * time.Second}
	defer client.CloseIdleConnections()
	resp, err := client.Get("http://" + l.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
