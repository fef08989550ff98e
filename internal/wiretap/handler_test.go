package wiretap_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"wiretap/internal/wiretap"
	"wiretap/internal/wiretap/wiretaptest"
)

func defaultSettings() wiretap.ProjectSettings {
	return wiretap.ProjectSettings{
		FrameWidth:     "1920",
		FrameHeight:    "1080",
		FrameDepth:     "10-bit",
		AspectRatio:    "1.7778",
		FrameRate:      "25 fps",
		FieldDominance: "PROGRESSIVE",
		Description:    "R&D <test>",
	}
}

func newHandler(t *testing.T, tree *wiretaptest.Tree) (*wiretap.Handler, *wiretaptest.Binding) {
	t.Helper()
	binding := wiretaptest.NewBinding(tree)
	handler, err := wiretap.NewHandler(context.Background(), binding, "flame01")
	if err != nil {
		t.Fatalf("NewHandler failed: %v", err)
	}
	t.Cleanup(func() { _ = handler.Close() })
	return handler, binding
}

func TestNewHandlerInitFailure(t *testing.T) {
	binding := wiretaptest.NewBinding(wiretaptest.NewTree())
	binding.FailInit(errors.New("license server unreachable"))

	_, err := wiretap.NewHandler(context.Background(), binding, "flame01")
	if !errors.Is(err, wiretap.ErrConnection) {
		t.Fatalf("expected ErrConnection, got %v", err)
	}
	inits, connects, uninits := binding.Calls()
	if inits != 1 || connects != 0 || uninits != 0 {
		t.Fatalf("unexpected calls: init=%d connect=%d uninit=%d", inits, connects, uninits)
	}
}

func TestNewHandlerConnectFailureUninitializes(t *testing.T) {
	binding := wiretaptest.NewBinding(wiretaptest.NewTree())
	binding.FailConnect(errors.New("host unknown"))

	_, err := wiretap.NewHandler(context.Background(), binding, "flame01")
	if !errors.Is(err, wiretap.ErrConnection) {
		t.Fatalf("expected ErrConnection, got %v", err)
	}
	if _, _, uninits := binding.Calls(); uninits != 1 {
		t.Fatalf("expected one uninit after failed connect, got %d", uninits)
	}
}

func TestNewHandlerDefaultsHostname(t *testing.T) {
	binding := wiretaptest.NewBinding(wiretaptest.NewTree())
	handler, err := wiretap.NewHandler(context.Background(), binding, "  ")
	if err != nil {
		t.Fatalf("NewHandler failed: %v", err)
	}
	defer handler.Close()

	if handler.Hostname() != wiretap.DefaultHostname {
		t.Fatalf("expected default hostname, got %q", handler.Hostname())
	}
	if hosts := binding.Hostnames(); len(hosts) != 1 || hosts[0] != wiretap.DefaultHostname {
		t.Fatalf("unexpected connect hosts: %v", hosts)
	}
	if handler.SessionID() == "" {
		t.Fatal("expected generated session id")
	}
}

func TestNewHandlerSessionIDOption(t *testing.T) {
	binding := wiretaptest.NewBinding(wiretaptest.NewTree())
	handler, err := wiretap.NewHandler(context.Background(), binding, "flame01", wiretap.WithSessionID(" job-42 "))
	if err != nil {
		t.Fatalf("NewHandler failed: %v", err)
	}
	defer handler.Close()

	if handler.SessionID() != "job-42" {
		t.Fatalf("expected session id override, got %q", handler.SessionID())
	}
}

func TestCloseUninitializesOnce(t *testing.T) {
	handler, binding := newHandler(t, wiretaptest.NewTree())

	for i := 0; i < 3; i++ {
		if err := handler.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}
	if _, _, uninits := binding.Calls(); uninits != 1 {
		t.Fatalf("expected exactly one uninit, got %d", uninits)
	}
	if _, err := handler.CreateUser(context.Background(), "alice"); err == nil {
		t.Fatal("expected error using a closed handler")
	}
}

func TestCreateProjectWithoutVolume(t *testing.T) {
	tree := wiretaptest.NewTree()
	handler, _ := newHandler(t, tree)

	_, err := handler.CreateProject(context.Background(), "PRJ_001", defaultSettings())
	if !errors.Is(err, wiretap.ErrNoVolume) {
		t.Fatalf("expected ErrNoVolume, got %v", err)
	}
	if tree.Creates() != 0 {
		t.Fatalf("expected no nodes created, got %d", tree.Creates())
	}
}

func TestCreateProjectBuildsHierarchy(t *testing.T) {
	tree := wiretaptest.NewTree()
	tree.AddVolume("stonefs")
	tree.AddVolume("spare")
	handler, _ := newHandler(t, tree)
	ctx := context.Background()

	project, err := handler.CreateProject(ctx, "PRJ_001", defaultSettings())
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if !project.Created || project.Node.Path() != "/projects/PRJ_001" {
		t.Fatalf("unexpected project result: %+v", project)
	}
	if !tree.Exists("/projects/PRJ_001", wiretap.TypeProject) {
		t.Fatal("expected project node")
	}
	if got := tree.ChildNames("/volumes/stonefs"); len(got) != 1 || got[0] != "PRJ_001" {
		t.Fatalf("expected project on first volume, got %v", got)
	}
	if got := tree.ChildNames("/volumes/spare"); len(got) != 0 {
		t.Fatalf("expected second volume untouched, got %v", got)
	}
	if !tree.Exists("/projects/PRJ_001/Workspace/Desktop", wiretap.TypeDesktop) {
		t.Fatal("expected workspace desktop")
	}
	if !tree.Exists("/projects/PRJ_001/Workspace/Libraries", wiretap.TypeLibraryList) {
		t.Fatal("expected workspace library list")
	}

	raw, ok := tree.StoredMetadata("/projects/PRJ_001", wiretap.MetadataStreamXML)
	if !ok {
		t.Fatal("expected XML metadata on project")
	}
	if !strings.Contains(raw, "<Description>R&amp;D &lt;test&gt;</Description>") {
		t.Fatalf("expected escaped description, got %s", raw)
	}
	entries, err := wiretap.DecodeProjectMetadata(raw)
	if err != nil {
		t.Fatalf("DecodeProjectMetadata failed: %v", err)
	}
	want := defaultSettings().Entries()
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestCreateProjectIsNoOpWhenPresent(t *testing.T) {
	tree := wiretaptest.NewTree()
	tree.AddVolume("stonefs")
	handler, _ := newHandler(t, tree)
	ctx := context.Background()

	if _, err := handler.CreateProject(ctx, "PRJ_001", defaultSettings()); err != nil {
		t.Fatalf("first CreateProject failed: %v", err)
	}
	creates := tree.Creates()

	again, err := handler.CreateProject(ctx, "PRJ_001", defaultSettings())
	if err != nil {
		t.Fatalf("second CreateProject failed: %v", err)
	}
	if again.Created {
		t.Fatal("expected existing project to be reported as not created")
	}
	if tree.Creates() != creates {
		t.Fatalf("expected no additional creates, got %d more", tree.Creates()-creates)
	}
	if n := tree.CountType(wiretap.ProjectsPath, wiretap.TypeWorkspace); n != 1 {
		t.Fatalf("expected one workspace, got %d", n)
	}
	if n := tree.CountType(wiretap.ProjectsPath, wiretap.TypeDesktop); n != 1 {
		t.Fatalf("expected one desktop, got %d", n)
	}
}

func TestCreateProjectChecksDirectChildrenOnly(t *testing.T) {
	tree := wiretaptest.NewTree()
	tree.AddVolume("stonefs")
	if _, err := tree.AddNode(wiretap.ProjectsPath, "Archive", wiretap.TypeNode); err != nil {
		t.Fatal(err)
	}
	if _, err := tree.AddNode("/projects/Archive", "PRJ_001", wiretap.TypeProject); err != nil {
		t.Fatal(err)
	}
	handler, _ := newHandler(t, tree)

	project, err := handler.CreateProject(context.Background(), "PRJ_001", defaultSettings())
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if !project.Created {
		t.Fatal("expected nested namesake not to count as an existing project")
	}
	if !tree.Exists("/projects/PRJ_001", wiretap.TypeProject) {
		t.Fatal("expected top-level project")
	}
}

func TestCreateProjectTransportFailure(t *testing.T) {
	tree := wiretaptest.NewTree()
	tree.AddVolume("stonefs")
	tree.FailChildren(wiretap.ProjectsPath, errors.New("connection reset"))
	handler, _ := newHandler(t, tree)

	_, err := handler.CreateProject(context.Background(), "PRJ_001", defaultSettings())
	if !errors.Is(err, wiretap.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if !strings.Contains(err.Error(), "please check that your wiretap service is running") ||
		!strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("unexpected message: %v", err)
	}
	var remote *wiretap.RemoteError
	if !errors.As(err, &remote) || remote.Path != wiretap.ProjectsPath {
		t.Fatalf("expected RemoteError for %s, got %#v", wiretap.ProjectsPath, err)
	}
}

func TestCreateProjectMetadataFailure(t *testing.T) {
	tree := wiretaptest.NewTree()
	tree.AddVolume("stonefs")
	tree.FailSetMetadata(errors.New("stream is read-only"))
	handler, _ := newHandler(t, tree)

	_, err := handler.CreateProject(context.Background(), "PRJ_001", defaultSettings())
	if !errors.Is(err, wiretap.ErrMetadata) {
		t.Fatalf("expected ErrMetadata, got %v", err)
	}
	if tree.Exists("/projects/PRJ_001/Workspace", wiretap.TypeWorkspace) {
		t.Fatal("expected no workspace after metadata failure")
	}
}

func TestCreateProjectRejectsInvalidName(t *testing.T) {
	tree := wiretaptest.NewTree()
	tree.AddVolume("stonefs")
	handler, _ := newHandler(t, tree)

	for _, name := range []string{"", "a/b", " padded"} {
		if _, err := handler.CreateProject(context.Background(), name, defaultSettings()); !errors.Is(err, wiretap.ErrInvalidName) {
			t.Fatalf("CreateProject(%q): expected ErrInvalidName, got %v", name, err)
		}
	}
}

func TestCreateUserAddsCategoryNodes(t *testing.T) {
	tree := wiretaptest.NewTree()
	handler, _ := newHandler(t, tree)

	user, err := handler.CreateUser(context.Background(), "alice")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.Path() != "/users/alice" {
		t.Fatalf("unexpected user path %q", user.Path())
	}
	got := tree.ChildNames("/users/alice")
	want := wiretap.UserCategoryNodes()
	if len(got) != len(want) {
		t.Fatalf("expected %d category nodes, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("category %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCreateUserRejectsExisting(t *testing.T) {
	tree := wiretaptest.NewTree()
	handler, _ := newHandler(t, tree)
	ctx := context.Background()

	if _, err := handler.CreateUser(ctx, "alice"); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	_, err := handler.CreateUser(ctx, "alice")
	if !errors.Is(err, wiretap.ErrNodeCreation) {
		t.Fatalf("expected ErrNodeCreation, got %v", err)
	}
	if !strings.Contains(err.Error(), "user already exists") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestCreateUserAbortsOnFirstFailure(t *testing.T) {
	tree := wiretaptest.NewTree()
	tree.FailCreateAfter(10, errors.New("quota exceeded"))
	handler, _ := newHandler(t, tree)

	_, err := handler.CreateUser(context.Background(), "alice")
	if !errors.Is(err, wiretap.ErrNodeCreation) {
		t.Fatalf("expected ErrNodeCreation, got %v", err)
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected remote message in error, got %v", err)
	}
	// One user node plus nine categories succeeded before the failure.
	if got := tree.ChildNames("/users/alice"); len(got) != 9 {
		t.Fatalf("expected 9 category nodes left in place, got %d", len(got))
	}
}

func TestDeleteUser(t *testing.T) {
	tree := wiretaptest.NewTree()
	handler, _ := newHandler(t, tree)
	ctx := context.Background()

	if _, err := handler.CreateUser(ctx, "alice"); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if err := handler.DeleteUser(ctx, "alice"); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if tree.Exists("/users/alice", wiretap.TypeUser) {
		t.Fatal("expected user removed")
	}
	if n := tree.CountType(wiretap.UsersPath, wiretap.TypeNode); n != 1 {
		t.Fatalf("expected only the users root to remain, got %d nodes", n)
	}
}

func TestDeleteUserMissing(t *testing.T) {
	handler, _ := newHandler(t, wiretaptest.NewTree())

	err := handler.DeleteUser(context.Background(), "ghost")
	if !errors.Is(err, wiretap.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteUserDestroyFailure(t *testing.T) {
	tree := wiretaptest.NewTree()
	handler, _ := newHandler(t, tree)
	ctx := context.Background()

	if _, err := handler.CreateUser(ctx, "alice"); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	tree.FailDestroy(errors.New("user is logged in"))

	err := handler.DeleteUser(ctx, "alice")
	if !errors.Is(err, wiretap.ErrNodeCreation) || !strings.Contains(err.Error(), "user is logged in") {
		t.Fatalf("expected destroy failure with remote message, got %v", err)
	}
}

func TestListings(t *testing.T) {
	tree := wiretaptest.NewTree()
	tree.AddVolume("stonefs")
	tree.AddVolume("archive")
	handler, _ := newHandler(t, tree)
	ctx := context.Background()

	for _, name := range []string{"PRJ_B", "PRJ_A"} {
		if _, err := handler.CreateProject(ctx, name, defaultSettings()); err != nil {
			t.Fatalf("CreateProject(%s) failed: %v", name, err)
		}
	}
	if _, err := handler.CreateUser(ctx, "alice"); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	cases := []struct {
		name string
		list func(context.Context) ([]string, error)
		want []string
	}{
		{"projects", handler.Projects, []string{"PRJ_B", "PRJ_A"}},
		{"users", handler.Users, []string{"alice"}},
		{"volumes", handler.Volumes, []string{"stonefs", "archive"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.list(ctx)
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if strings.Join(got, ",") != strings.Join(tc.want, ",") {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestListingsCarryRootLookupFailure(t *testing.T) {
	tree := wiretaptest.NewTree()
	tree.AddVolume("stonefs")
	tree.FailLookup(wiretap.VolumesPath, errors.New("connection reset by peer"))
	handler, _ := newHandler(t, tree)
	ctx := context.Background()

	_, err := handler.Volumes(ctx)
	if !errors.Is(err, wiretap.ErrNodeCreation) || !strings.Contains(err.Error(), "connection reset by peer") {
		t.Fatalf("expected listing failure with remote message, got %v", err)
	}
	var remote *wiretap.RemoteError
	if !errors.As(err, &remote) || remote.Path != wiretap.VolumesPath {
		t.Fatalf("expected RemoteError for %s, got %#v", wiretap.VolumesPath, err)
	}

	_, err = handler.CreateProject(ctx, "PRJ_001", defaultSettings())
	if err == nil || !strings.Contains(err.Error(), "connection reset by peer") {
		t.Fatalf("expected CreateProject to surface the remote message, got %v", err)
	}
	if tree.Exists("/projects/PRJ_001", wiretap.TypeProject) {
		t.Fatal("expected no project after failed volume listing")
	}
}

func TestProjectMetadataIsIndented(t *testing.T) {
	tree := wiretaptest.NewTree()
	tree.AddVolume("stonefs")
	handler, _ := newHandler(t, tree)
	ctx := context.Background()

	if _, err := handler.CreateProject(ctx, "PRJ_001", defaultSettings()); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	pretty, err := handler.ProjectMetadata(ctx, "PRJ_001")
	if err != nil {
		t.Fatalf("ProjectMetadata failed: %v", err)
	}
	if !strings.HasPrefix(pretty, "<?xml") || !strings.Contains(pretty, "\n  <FrameWidth>1920</FrameWidth>\n") {
		t.Fatalf("unexpected pretty metadata:\n%s", pretty)
	}

	if _, err := handler.ProjectMetadata(ctx, "missing"); !errors.Is(err, wiretap.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing project, got %v", err)
	}
}
