package route

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"blurcam/internal/handler"
	"blurcam/internal/logger"
	"blurcam/internal/service"
	"blurcam/internal/service/capture"
	"blurcam/internal/service/pipeline"
	ws "blurcam/internal/service/websocket"
	"blurcam/internal/settings"
)

func newTestServer(t *testing.T) (*httptest.Server, *service.Manager) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	l := logger.NewNop()
	store := settings.NewStore(filepath.Join(t.TempDir(), "settings.json"), l)
	hub := ws.NewHubService(l)
	go hub.Run(ctx)

	manager := service.NewManager(ctx, store, pipeline.Deps{
		Camera: func(int, int, int) (capture.Source, error) {
			return nil, errors.Wrap(capture.ErrDeviceNotFound, "device 0")
		},
	}, hub, l)
	store.Subscribe(manager.ApplySettings)

	srv := httptest.NewServer(SetupRoutes(manager, l))
	t.Cleanup(srv.Close)
	return srv, manager
}

func getJSON(t *testing.T, url string, v interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	test.That(t, err, test.ShouldBeNil)
	defer resp.Body.Close()
	if v != nil {
		test.That(t, json.NewDecoder(resp.Body).Decode(v), test.ShouldBeNil)
	}
	return resp.StatusCode
}

func TestStatusAndClasses(t *testing.T) {
	srv, _ := newTestServer(t)

	var status handler.StatusResponse
	test.That(t, getJSON(t, srv.URL+"/api/status", &status), test.ShouldEqual, http.StatusOK)
	test.That(t, status.Status, test.ShouldEqual, pipeline.StatusStopped)
	test.That(t, status.Running, test.ShouldBeFalse)

	var classes handler.ClassesResponse
	test.That(t, getJSON(t, srv.URL+"/api/classes", &classes), test.ShouldEqual, http.StatusOK)
	test.That(t, classes.Count, test.ShouldEqual, 80)
	test.That(t, classes.Common, test.ShouldNotBeEmpty)
}

func TestSettingsPatchRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"confidence_threshold": "0.4", "custom_labels": "", "open_vocabulary": true}`
	resp, err := http.Post(srv.URL+"/api/settings", "application/json", strings.NewReader(body))
	test.That(t, err, test.ShouldBeNil)
	var patched settings.Settings
	test.That(t, json.NewDecoder(resp.Body).Decode(&patched), test.ShouldBeNil)
	resp.Body.Close()
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusOK)
	test.That(t, patched.ConfidenceThreshold, test.ShouldEqual, 0.4)
	test.That(t, patched.CustomLabels, test.ShouldResemble, []string{settings.FallbackLabel})

	var got settings.Settings
	test.That(t, getJSON(t, srv.URL+"/api/settings", &got), test.ShouldEqual, http.StatusOK)
	test.That(t, got.Equal(patched), test.ShouldBeTrue)

	resp, err = http.Post(srv.URL+"/api/settings", "application/json", bytes.NewReader([]byte(`{"fps": 0}`)))
	test.That(t, err, test.ShouldBeNil)
	resp.Body.Close()
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusBadRequest)

	resp, err = http.Post(srv.URL+"/api/settings", "application/json", strings.NewReader(`not json`))
	test.That(t, err, test.ShouldBeNil)
	resp.Body.Close()
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusBadRequest)
}

func TestStartReportsCameraError(t *testing.T) {
	srv, manager := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/pipeline/start", "", nil)
	test.That(t, err, test.ShouldBeNil)
	resp.Body.Close()
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusAccepted)

	deadline := time.Now().Add(3 * time.Second)
	for manager.Running() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	test.That(t, manager.Status(), test.ShouldEqual, pipeline.StatusCameraNotFound)

	resp, err = http.Post(srv.URL+"/api/pipeline/stop", "", nil)
	test.That(t, err, test.ShouldBeNil)
	resp.Body.Close()
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusNoContent)
}

func TestLogsEndpointRejectsUnknownLevel(t *testing.T) {
	srv, _ := newTestServer(t)
	test.That(t, getJSON(t, srv.URL+"/api/logs/trace", nil), test.ShouldEqual, http.StatusNotFound)
}

func readEvent(t *testing.T, conn *websocket.Conn) ws.Event {
	t.Helper()
	test.That(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)), test.ShouldBeNil)
	var ev ws.Event
	test.That(t, conn.ReadJSON(&ev), test.ShouldBeNil)
	return ev
}

func TestEventsSocket(t *testing.T) {
	srv, manager := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	test.That(t, err, test.ShouldBeNil)
	defer conn.Close()

	test.That(t, readEvent(t, conn).Type, test.ShouldEqual, ws.EventStatus)
	test.That(t, readEvent(t, conn).Type, test.ShouldEqual, ws.EventSettings)

	test.That(t, conn.WriteJSON(handler.ClientMessage{Type: "labels", Value: "passport,  id card"}), test.ShouldBeNil)
	ev := readEvent(t, conn)
	test.That(t, ev.Type, test.ShouldEqual, ws.EventSettings)
	test.That(t, manager.Settings().Get().CustomLabels, test.ShouldResemble, []string{"passport", "id card"})

	test.That(t, conn.WriteJSON(handler.ClientMessage{Type: "set", Key: "fps", Value: -3}), test.ShouldBeNil)
	test.That(t, readEvent(t, conn).Type, test.ShouldEqual, ws.EventError)

	test.That(t, conn.WriteJSON(handler.ClientMessage{Type: "dance"}), test.ShouldBeNil)
	test.That(t, readEvent(t, conn).Type, test.ShouldEqual, ws.EventError)
}

func TestEventsSocketRejectsForeignOrigin(t *testing.T) {
	srv, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events"
	header := http.Header{"Origin": []string{"https://example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusForbidden)
}
