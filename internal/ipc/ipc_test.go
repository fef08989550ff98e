package ipc_test

import (
	"context"
	"errors"
	"net"
	"net/rpc/jsonrpc"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wiretap/internal/ipc"
	"wiretap/internal/logging"
	"wiretap/internal/testsupport"
	"wiretap/internal/wiretap"
)

func startServer(t *testing.T, address string) (*ipc.Server, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv, err := ipc.NewServer(ctx, address, store, []string{"2018.3", "2019.1"}, logging.NewNop())
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)
	return srv, cfg.Gateway.Database
}

func dialSession(t *testing.T, address, version string) *ipc.Client {
	t.Helper()
	client, err := ipc.Dial(context.Background(), address, 0)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})
	if _, err := client.Hello(context.Background(), version, "localhost"); err != nil {
		t.Fatalf("Hello failed: %v", err)
	}
	return client
}

func TestIPCServerClientTCP(t *testing.T) {
	srv, dbPath := startServer(t, "127.0.0.1:0")
	client := dialSession(t, srv.Addr(), "2018.3")
	ctx := context.Background()

	volumes, err := client.Children(ctx, wiretap.VolumesPath)
	if err != nil {
		t.Fatalf("Children failed: %v", err)
	}
	if len(volumes) != 1 || volumes[0].Name != "stonefs" || volumes[0].Type != wiretap.TypeVolume {
		t.Fatalf("unexpected volumes %+v", volumes)
	}

	project, err := client.CreateChild(ctx, "/volumes/stonefs", "PRJ", wiretap.TypeNode)
	if err != nil {
		t.Fatalf("CreateChild failed: %v", err)
	}
	if project.Path != "/projects/PRJ" || project.Type != wiretap.TypeProject {
		t.Fatalf("unexpected project %+v", project)
	}
	if err := client.SetMetadata(ctx, project.Path, "XML", "<Project/>"); err != nil {
		t.Fatalf("SetMetadata failed: %v", err)
	}
	data, err := client.Metadata(ctx, project.Path, "XML")
	if err != nil || data != "<Project/>" {
		t.Fatalf("Metadata = %q, %v", data, err)
	}

	_, err = client.CreateChild(ctx, "/volumes/stonefs", "PRJ", wiretap.TypeNode)
	if err == nil || !strings.Contains(err.Error(), "node already exists") {
		t.Fatalf("expected remote duplicate message, got %v", err)
	}

	if err := client.Destroy(ctx, project.Path); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if _, err := client.Lookup(ctx, project.Path); err == nil || !strings.Contains(err.Error(), "node does not exist") {
		t.Fatalf("expected remote not-found message, got %v", err)
	}

	stats, err := client.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Database != dbPath || stats.Sessions != 1 || stats.ByType["VOLUME"] != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestIPCServerUnixSocket(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "wiretapd.sock")
	srv, _ := startServer(t, "unix:"+socket)
	if srv.Addr() != "unix:"+socket {
		t.Fatalf("unexpected address %q", srv.Addr())
	}
	client := dialSession(t, srv.Addr(), "2019.1")

	if _, err := client.Lookup(context.Background(), wiretap.UsersPath); err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
}

func TestIPCRejectsUnsupportedVersion(t *testing.T) {
	srv, _ := startServer(t, "127.0.0.1:0")
	client, err := ipc.Dial(context.Background(), srv.Addr(), 0)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	defer client.Close()

	_, err = client.Hello(context.Background(), "2016.1", "localhost")
	if err == nil || !strings.Contains(err.Error(), `"2016.1" is not supported`) {
		t.Fatalf("expected version rejection, got %v", err)
	}
	if _, err := client.Lookup(context.Background(), "/"); err == nil || !strings.Contains(err.Error(), "call Hello first") {
		t.Fatalf("expected session error, got %v", err)
	}
}

func TestIPCDropsSessionOfClosedConnection(t *testing.T) {
	srv, _ := startServer(t, "127.0.0.1:0")
	observer := dialSession(t, srv.Addr(), "2018.3")
	ctx := context.Background()

	conn, err := net.Dial("tcp", srv.Addr())
	if err != nil {
		t.Fatalf("net.Dial: %v", err)
	}
	crashed := jsonrpc.NewClient(conn)
	hello := ipc.HelloRequest{SessionID: "crashed-session", Version: "2018.3", Hostname: "localhost"}
	if err := crashed.Call(ipc.ServiceName+".Hello", hello, &ipc.HelloResponse{}); err != nil {
		t.Fatalf("Hello failed: %v", err)
	}

	stats, err := observer.Stats(ctx)
	if err != nil || stats.Sessions != 2 {
		t.Fatalf("expected 2 sessions, got %+v, %v", stats, err)
	}

	// Close without Goodbye.
	_ = crashed.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		stats, err = observer.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
		if stats.Sessions == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected closed connection's session to be dropped, still %d sessions", stats.Sessions)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestIPCCallHonorsCanceledContext(t *testing.T) {
	srv, _ := startServer(t, "127.0.0.1:0")
	client := dialSession(t, srv.Addr(), "2018.3")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Children(ctx, "/"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBindingDrivesHandler(t *testing.T) {
	srv, _ := startServer(t, "127.0.0.1:0")
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	handler, err := wiretap.NewHandler(ctx, ipc.NewBinding(cfg, logging.NewNop()), srv.Addr())
	if err != nil {
		t.Fatalf("NewHandler failed: %v", err)
	}
	defer handler.Close()

	if _, err := handler.CreateUser(ctx, "alice"); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	users, err := handler.Users(ctx)
	if err != nil || len(users) != 1 || users[0] != "alice" {
		t.Fatalf("unexpected users %v, %v", users, err)
	}
	project, err := handler.CreateProject(ctx, "PRJ", wiretap.ProjectSettings{FrameWidth: "1920"})
	if err != nil || !project.Created {
		t.Fatalf("CreateProject = %+v, %v", project, err)
	}
}

func TestBindingReportsConnectionFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Server.TimeoutSeconds = 1

	_, err := wiretap.NewHandler(context.Background(), ipc.NewBinding(cfg, nil), "127.0.0.1:1")
	if !errors.Is(err, wiretap.ErrConnection) {
		t.Fatalf("expected ErrConnection, got %v", err)
	}
}
