package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cameronsjo/helmdeck/internal/model"
)

// resetRootCmd resets the root command state for test isolation.
// This must be called at the beginning of each test to ensure
// cobra command state doesn't leak between tests.
func resetRootCmd(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	// Reset args to empty slice (not nil, which would use os.Args)
	rootCmd.SetArgs([]string{})
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(""))
	resetFlags(rootCmd)
	return buf
}

// resetFlags returns every flag of cmd and its children to its default.
// Flag variables are package-level and survive between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	cmd.SetContext(context.TODO())
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// executeCmd executes the root command with the given args and returns the output.
// This handles proper state reset between test executions.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := resetRootCmd(t)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// executeCmdWithInput is executeCmd with stdin set to input.
func executeCmdWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	buf := resetRootCmd(t)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// fakeAPI is an in-memory release backend served over HTTP.
type fakeAPI struct {
	mu         sync.Mutex
	releases   []model.Release
	values     map[string]json.RawMessage
	registries map[string]string
	repos      []model.Repository
	versions   []model.ChartVersion
	history    []model.ReleaseHistory

	// requests records "METHOD /path?query" for every call.
	requests []string
	// bodies records the last request body per "METHOD /path".
	bodies map[string][]byte
}

// newFakeAPI starts a backend with two releases and points the
// environment at it. Config files and lock files go to temp directories.
func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	updated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f := &fakeAPI{
		releases: []model.Release{
			{Name: "web", Namespace: "apps", Chart: "nginx", ChartVersion: "15.1.0", AppVersion: "1.25.3", Status: "deployed", Updated: updated, Revision: 3, HasRegistry: true},
			{Name: "cache", Namespace: "infra", Chart: "redis", ChartVersion: "18.0.0", AppVersion: "7.2.0", Status: "failed", Updated: updated, Revision: 1},
		},
		values: map[string]json.RawMessage{
			"apps/web":    json.RawMessage(`{"replicaCount":2,"image":{"repository":"nginx","tag":"1.25"},"ports":[80,443]}`),
			"infra/cache": json.RawMessage(`{"auth":{"enabled":false}}`),
		},
		registries: map[string]string{"apps/web": "oci://registry.example.com/charts"},
		repos:      []model.Repository{{Name: "bitnami", URL: "https://charts.bitnami.com/bitnami"}},
		versions: []model.ChartVersion{
			{Version: "15.2.0", AppVersion: "1.25.4", Description: "NGINX Open Source"},
			{Version: "15.1.0", AppVersion: "1.25.3", Description: "NGINX Open Source"},
		},
		history: []model.ReleaseHistory{
			{Revision: 3, Updated: updated, Status: "deployed", Chart: "nginx-15.1.0", AppVersion: "1.25.3", Description: "Upgrade complete"},
			{Revision: 2, Updated: updated, Status: "superseded", Chart: "nginx-15.0.0", AppVersion: "1.25.2", Description: "Upgrade complete"},
		},
		bodies: make(map[string][]byte),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/releases", f.listReleases)
	mux.HandleFunc("GET /api/releases/{ns}/{name}", f.withRelease(func(w http.ResponseWriter, r *http.Request, rel *model.Release) {
		writeJSON(w, http.StatusOK, rel)
	}))
	mux.HandleFunc("PUT /api/releases/{ns}/{name}", f.withRelease(f.upgrade))
	mux.HandleFunc("GET /api/releases/{ns}/{name}/versions", f.withRelease(func(w http.ResponseWriter, r *http.Request, rel *model.Release) {
		writeJSON(w, http.StatusOK, f.versions)
	}))
	mux.HandleFunc("GET /api/releases/{ns}/{name}/history", f.withRelease(func(w http.ResponseWriter, r *http.Request, rel *model.Release) {
		writeJSON(w, http.StatusOK, f.history)
	}))
	mux.HandleFunc("POST /api/releases/{ns}/{name}/rollback", f.withRelease(f.rollback))
	mux.HandleFunc("GET /api/releases/{ns}/{name}/values", f.withRelease(func(w http.ResponseWriter, r *http.Request, rel *model.Release) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(f.values[rel.ID()])
	}))
	mux.HandleFunc("PUT /api/releases/{ns}/{name}/values", f.withRelease(f.updateValues))
	mux.HandleFunc("GET /api/releases/{ns}/{name}/registry", f.withRelease(func(w http.ResponseWriter, r *http.Request, rel *model.Release) {
		reg, ok := f.registries[rel.ID()]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "no registry mapping"})
			return
		}
		writeJSON(w, http.StatusOK, model.RegistryMapping{Namespace: rel.Namespace, ReleaseName: rel.Name, ChartName: rel.Chart, Registry: reg})
	}))
	mux.HandleFunc("PUT /api/releases/{ns}/{name}/registry", f.withRelease(f.setRegistry))
	mux.HandleFunc("DELETE /api/releases/{ns}/{name}/registry", f.withRelease(func(w http.ResponseWriter, r *http.Request, rel *model.Release) {
		delete(f.registries, rel.ID())
		rel.HasRegistry = false
		w.WriteHeader(http.StatusNoContent)
	}))
	mux.HandleFunc("GET /api/repositories", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		writeJSON(w, http.StatusOK, f.repos)
	})
	mux.HandleFunc("POST /api/repositories", f.addRepository)
	mux.HandleFunc("DELETE /api/repositories/{name}", f.withRepo(func(w http.ResponseWriter, i int) {
		f.repos = append(f.repos[:i], f.repos[i+1:]...)
		w.WriteHeader(http.StatusNoContent)
	}))
	mux.HandleFunc("POST /api/repositories/{name}/update", f.withRepo(func(w http.ResponseWriter, i int) {
		w.WriteHeader(http.StatusNoContent)
	}))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("HELMDECK_CONFIG", "")
	t.Setenv("HELMDECK_API_URL", server.URL+"/api")
	t.Setenv("HELMDECK_TOKEN", "")
	t.Setenv("HELMDECK_STATE_DIR", filepath.Join(dir, "state"))
	t.Setenv("HELMDECK_TIMEOUT", "")
	t.Setenv("EDITOR", "")
	t.Setenv("VISUAL", "")
	return f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) record(r *http.Request) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	line := r.Method + " " + r.URL.Path
	if r.URL.RawQuery != "" {
		line += "?" + r.URL.RawQuery
	}
	f.requests = append(f.requests, line)
	body, _ := io.ReadAll(r.Body)
	if len(body) > 0 {
		f.bodies[r.Method+" "+r.URL.Path] = body
	}
	return body
}

// requested reports whether a request starting with prefix was made.
func (f *fakeAPI) requested(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if strings.HasPrefix(r, prefix) {
			return true
		}
	}
	return false
}

func (f *fakeAPI) body(methodPath string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[methodPath]
}

func (f *fakeAPI) release(id string) *model.Release {
	for i := range f.releases {
		if f.releases[i].ID() == id {
			return &f.releases[i]
		}
	}
	return nil
}

func (f *fakeAPI) withRelease(fn func(http.ResponseWriter, *http.Request, *model.Release)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := f.record(r)
		r.Body = io.NopCloser(bytes.NewReader(body))
		rel := f.release(r.PathValue("ns") + "/" + r.PathValue("name"))
		if rel == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "release not found"})
			return
		}
		fn(w, r, rel)
	}
}

func (f *fakeAPI) withRepo(fn func(http.ResponseWriter, int)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		for i, repo := range f.repos {
			if repo.Name == r.PathValue("name") {
				fn(w, i)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "repository not found"})
	}
}

func (f *fakeAPI) listReleases(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	ns := r.URL.Query().Get("namespace")
	hasRegistry := r.URL.Query().Get("hasRegistry")

	out := []model.Release{}
	for _, rel := range f.releases {
		if ns != "" && rel.Namespace != ns {
			continue
		}
		if hasRegistry != "" && (hasRegistry == "true") != rel.HasRegistry {
			continue
		}
		out = append(out, rel)
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *fakeAPI) upgrade(w http.ResponseWriter, r *http.Request, rel *model.Release) {
	var req struct {
		ChartVersion string          `json:"chartVersion"`
		Values       json.RawMessage `json:"values"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	if !rel.HasRegistry {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "release has no registry mapping"})
		return
	}
	rel.ChartVersion = req.ChartVersion
	rel.Revision++
	if len(req.Values) > 0 {
		f.values[rel.ID()] = req.Values
	}
	writeJSON(w, http.StatusOK, rel)
}

func (f *fakeAPI) rollback(w http.ResponseWriter, r *http.Request, rel *model.Release) {
	var req model.RollbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Revision >= rel.Revision {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid revision"})
		return
	}
	rel.Revision++
	writeJSON(w, http.StatusOK, rel)
}

func (f *fakeAPI) updateValues(w http.ResponseWriter, r *http.Request, rel *model.Release) {
	var req struct {
		Values json.RawMessage `json:"values"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	f.values[rel.ID()] = req.Values
	rel.Revision++
	writeJSON(w, http.StatusOK, rel)
}

func (f *fakeAPI) setRegistry(w http.ResponseWriter, r *http.Request, rel *model.Release) {
	var req model.SetRegistryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	f.registries[rel.ID()] = req.Registry
	rel.HasRegistry = true
	writeJSON(w, http.StatusOK, model.RegistryMapping{Namespace: rel.Namespace, ReleaseName: rel.Name, ChartName: rel.Chart, Registry: req.Registry})
}

func (f *fakeAPI) addRepository(w http.ResponseWriter, r *http.Request) {
	body := f.record(r)
	var req model.AddRepositoryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	for _, repo := range f.repos {
		if repo.Name == req.Name {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "repository already exists"})
			return
		}
	}
	f.repos = append(f.repos, model.Repository{Name: req.Name, URL: req.URL})
	w.WriteHeader(http.StatusCreated)
}
