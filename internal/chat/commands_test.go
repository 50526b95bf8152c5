package chat

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ryokaneoka0406/wise/internal/bigquery"
	"github.com/ryokaneoka0406/wise/internal/db"
	"github.com/ryokaneoka0406/wise/internal/metadata"
)

type fakeCatalog struct {
	datasets     []string
	snapshotArgs struct {
		ids    []string
		sample int
	}
	snapshotCalled bool
}

func (f *fakeCatalog) ListDatasets(ctx context.Context) ([]string, error) {
	return f.datasets, nil
}

func (f *fakeCatalog) Snapshot(ctx context.Context, datasetIDs []string, sampleSize int) (*bigquery.Snapshot, error) {
	f.snapshotCalled = true
	f.snapshotArgs.ids = datasetIDs
	f.snapshotArgs.sample = sampleSize
	return &bigquery.Snapshot{ProjectID: "demo", Datasets: map[string]bigquery.DatasetMetadata{}}, nil
}

func openTestStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "wise.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testDeps(t *testing.T, store *db.Store, inputs ...string) (*Deps, *fakeCatalog, *strings.Builder) {
	t.Helper()
	catalog := &fakeCatalog{datasets: []string{"sales", "marketing"}}
	out := &strings.Builder{}
	i := 0
	deps := &Deps{
		Store: store,
		Out:   out,
		Prompt: func(label string) (string, error) {
			if i >= len(inputs) {
				t.Fatalf("unexpected prompt %q", label)
			}
			v := inputs[i]
			i++
			return v, nil
		},
		Login: func(ctx context.Context) (*db.Account, error) {
			return &db.Account{ID: 1, Email: "dev@example.com"}, nil
		},
		ListProjects: func(ctx context.Context, account *db.Account) ([]bigquery.Project, error) {
			return []bigquery.Project{{ID: "demo", FriendlyName: "Demo Project"}}, nil
		},
		OpenCatalog: func(ctx context.Context, account *db.Account, projectID string) (Catalog, error) {
			if projectID != "demo" {
				t.Errorf("project = %q", projectID)
			}
			return catalog, nil
		},
		Save: func(snap *bigquery.Snapshot) (*metadata.WriteResult, error) {
			return &metadata.WriteResult{Path: "/artifacts/project/demo/metadata.md"}, nil
		},
	}
	return deps, catalog, out
}

func seedAccount(t *testing.T, store *db.Store) {
	t.Helper()
	if _, err := store.CreateOrUpdateAccount(context.Background(), "dev@example.com", "tok"); err != nil {
		t.Fatal(err)
	}
}

func TestHandleNormalizesPrefixes(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	deps, _, _ := testDeps(t, store)

	for _, line := range []string{"/help", `\help`, "  /help  "} {
		handled, reply := deps.Handle(context.Background(), line)
		if !handled {
			t.Errorf("%q should be handled", line)
		}
		if !strings.Contains(reply, "/login") {
			t.Errorf("help reply missing commands: %q", reply)
		}
	}

	if handled, _ := deps.Handle(context.Background(), "plain text"); handled {
		t.Error("plain text must not dispatch")
	}
	if handled, _ := deps.Handle(context.Background(), "/unknown"); handled {
		t.Error("unknown command must fall through")
	}
}

func TestHandleLoginAndReauth(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	deps, _, _ := testDeps(t, store)

	for _, line := range []string{"/login", `\reauth`} {
		handled, reply := deps.Handle(context.Background(), line)
		if !handled {
			t.Fatalf("%q not handled", line)
		}
		if !strings.Contains(reply, "dev@example.com") {
			t.Errorf("reply = %q", reply)
		}
	}
}

func TestHandleLoginFailureBecomesReply(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	deps, _, _ := testDeps(t, store)
	deps.Login = func(ctx context.Context) (*db.Account, error) {
		return nil, fmt.Errorf("browser unavailable")
	}

	handled, reply := deps.Handle(context.Background(), "/login")
	if !handled {
		t.Fatal("not handled")
	}
	if !strings.Contains(reply, "browser unavailable") {
		t.Errorf("reply = %q", reply)
	}
}

func TestInitRequiresLogin(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	deps, catalog, _ := testDeps(t, store)

	_, reply := deps.Handle(context.Background(), "/init")
	if !strings.Contains(reply, "/login") {
		t.Errorf("reply = %q", reply)
	}
	if catalog.snapshotCalled {
		t.Error("snapshot must not run without an account")
	}
}

func TestInitHappyPathDefaultsToAllDatasets(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	seedAccount(t, store)
	deps, catalog, out := testDeps(t, store, "1", "")

	_, reply := deps.Handle(context.Background(), "/init")
	if !strings.Contains(reply, "metadata.md") {
		t.Errorf("reply = %q", reply)
	}
	if !catalog.snapshotCalled {
		t.Fatal("snapshot not taken")
	}
	if got := catalog.snapshotArgs.ids; len(got) != 2 || got[0] != "sales" || got[1] != "marketing" {
		t.Errorf("dataset ids = %v", got)
	}
	if catalog.snapshotArgs.sample != 3 {
		t.Errorf("sample size = %d, want default 3", catalog.snapshotArgs.sample)
	}
	if !strings.Contains(out.String(), "1) demo (Demo Project)") {
		t.Errorf("project listing missing:\n%s", out.String())
	}
}

func TestInitExplicitDatasetSelection(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	seedAccount(t, store)
	deps, catalog, _ := testDeps(t, store, "1", " sales , ")
	deps.SampleRows = 5

	deps.Handle(context.Background(), "/init")
	if got := catalog.snapshotArgs.ids; len(got) != 1 || got[0] != "sales" {
		t.Errorf("dataset ids = %v", got)
	}
	if catalog.snapshotArgs.sample != 5 {
		t.Errorf("sample size = %d, want 5", catalog.snapshotArgs.sample)
	}
}

func TestInitBlankProjectCancels(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	seedAccount(t, store)
	deps, catalog, _ := testDeps(t, store, "")
	opened := false
	inner := deps.OpenCatalog
	deps.OpenCatalog = func(ctx context.Context, account *db.Account, projectID string) (Catalog, error) {
		opened = true
		return inner(ctx, account, projectID)
	}

	_, reply := deps.Handle(context.Background(), "/init")
	if !strings.Contains(reply, "Cancelled") {
		t.Errorf("reply = %q", reply)
	}
	if opened || catalog.snapshotCalled {
		t.Error("cancel must not touch the project")
	}
}

func TestInitInvalidSelection(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	seedAccount(t, store)

	for _, choice := range []string{"0", "2", "abc"} {
		deps, catalog, _ := testDeps(t, store, choice)
		_, reply := deps.Handle(context.Background(), "/init")
		if !strings.Contains(reply, "Invalid selection") {
			t.Errorf("choice %q: reply = %q", choice, reply)
		}
		if catalog.snapshotCalled {
			t.Errorf("choice %q: snapshot should not run", choice)
		}
	}
}

func TestInitReportsBackupPath(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	seedAccount(t, store)
	deps, _, _ := testDeps(t, store, "1", "")
	deps.Save = func(snap *bigquery.Snapshot) (*metadata.WriteResult, error) {
		return &metadata.WriteResult{
			Path:       "/artifacts/project/demo/metadata.md",
			BackupPath: "/artifacts/project/demo/metadata.md.bak.20250314T092653",
		}, nil
	}

	_, reply := deps.Handle(context.Background(), "/init")
	if !strings.Contains(reply, "backed up") {
		t.Errorf("reply = %q", reply)
	}
}
