package hub

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/config"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLocalRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewLocalRepository(t.TempDir())
	id := "labhara/tourism-model"

	k, err := repo.Kind(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, KindNotFound, k)

	err = repo.UploadFile(ctx, id, TypeModel, "x", "x", "msg")
	assert.True(t, IsNotFound(err), "upload to a missing repo is a 404")

	require.NoError(t, repo.CreateRepo(ctx, id, TypeModel, CreateOptions{Private: true}))
	require.NoError(t, repo.CreateRepo(ctx, id, TypeModel, CreateOptions{}), "exist ok")
	k, err = repo.Kind(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, KindModel, k)

	err = repo.CreateRepo(ctx, id, TypeSpace, CreateOptions{})
	assert.ErrorIs(t, err, ErrKindConflict)

	src := t.TempDir()
	writeFile(t, filepath.Join(src, "metrics.json"), `{"model":"rf"}`)
	writeFile(t, filepath.Join(src, "sub", "a.txt"), "a")
	writeFile(t, filepath.Join(src, ".git", "HEAD"), "ref")
	require.NoError(t, repo.UploadFolder(ctx, id, TypeModel, src, "upload"))

	dest := filepath.Join(t.TempDir(), "out", "a.txt")
	require.NoError(t, repo.Download(ctx, id, TypeModel, "sub/a.txt", dest))
	b, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "a", string(b))

	err = repo.Download(ctx, id, TypeModel, ".git/HEAD", dest)
	assert.True(t, IsNotFound(err), ".git is not uploaded")
	err = repo.Download(ctx, id, TypeDataset, "sub/a.txt", dest)
	assert.True(t, IsNotFound(err), "type must match")
}

// fakeHub is a tiny stand-in for the Hub REST API.
// Paths ending in .zst are routed to LFS, like the Hub's default
// .gitattributes.
type fakeHub struct {
	mu      sync.Mutex
	repos   map[string]string
	files   map[string]string
	lfs     map[string]string
	puts    int
	created []map[string]any
	auth    []string
}

func newFakeHub() *fakeHub {
	return &fakeHub{repos: map[string]string{}, files: map[string]string{}, lfs: map[string]string{}}
}

// repoOf extracts the repo id from /api/<type>s/<id>/<suffix>.
func repoOf(p, suffix string) string {
	return strings.TrimSuffix(strings.SplitN(strings.TrimPrefix(p, "/api/"), "/", 2)[1], suffix)
}

func (f *fakeHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	p := r.URL.Path

	switch {
	case r.Method == http.MethodPost && p == "/api/repos/create":
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.created = append(f.created, req)
		id := req["organization"].(string) + "/" + req["name"].(string)
		if _, ok := f.repos[id]; ok {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"You already created this repo"}`))
			return
		}
		typ, _ := req["type"].(string)
		if typ == "" {
			typ = "model"
		}
		f.repos[id] = typ
		_, _ = w.Write([]byte(`{"url":"x"}`))
	case r.Method == http.MethodGet && strings.HasPrefix(p, "/api/"):
		parts := strings.SplitN(strings.TrimPrefix(p, "/api/"), "/", 2)
		if f.repos[parts[1]]+"s" == parts[0] {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	case r.Method == http.MethodPost && strings.HasSuffix(p, "/preupload/main"):
		if _, ok := f.repos[repoOf(p, "/preupload/main")]; !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Repository not found"}`))
			return
		}
		var req struct {
			Files []struct {
				Path string `json:"path"`
			} `json:"files"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		var out []map[string]string
		for _, file := range req.Files {
			mode := "regular"
			if strings.HasSuffix(file.Path, ".zst") {
				mode = "lfs"
			}
			out = append(out, map[string]string{"path": file.Path, "uploadMode": mode})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"files": out})
	case r.Method == http.MethodPost && strings.HasSuffix(p, ".git/info/lfs/objects/batch"):
		var req struct {
			Objects []struct {
				Oid  string `json:"oid"`
				Size int    `json:"size"`
			} `json:"objects"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		var objects []map[string]any
		for _, o := range req.Objects {
			obj := map[string]any{"oid": o.Oid, "size": o.Size}
			if _, ok := f.lfs[o.Oid]; !ok {
				obj["actions"] = map[string]any{
					"upload": map[string]any{"href": "http://" + r.Host + "/lfs/" + o.Oid, "header": map[string]string{"X-Upload": "1"}},
					"verify": map[string]any{"href": "http://" + r.Host + "/lfs-verify"},
				}
			}
			objects = append(objects, obj)
		}
		w.Header().Set("Content-Type", "application/vnd.git-lfs+json")
		_ = json.NewEncoder(w).Encode(map[string]any{"objects": objects})
	case r.Method == http.MethodPut && strings.HasPrefix(p, "/lfs/"):
		if r.Header.Get("X-Upload") != "1" || r.Header.Get("Authorization") != "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.lfs[strings.TrimPrefix(p, "/lfs/")] = string(body)
		f.puts++
	case r.Method == http.MethodPost && p == "/lfs-verify":
		var obj struct {
			Oid string `json:"oid"`
		}
		_ = json.NewDecoder(r.Body).Decode(&obj)
		if _, ok := f.lfs[obj.Oid]; !ok {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPost && strings.HasSuffix(p, "/commit/main"):
		id := repoOf(p, "/commit/main")
		if _, ok := f.repos[id]; !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Repository not found"}`))
			return
		}
		body, _ := io.ReadAll(r.Body)
		for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
			var cl struct {
				Key   string         `json:"key"`
				Value map[string]any `json:"value"`
			}
			_ = json.Unmarshal([]byte(line), &cl)
			path, _ := cl.Value["path"].(string)
			switch cl.Key {
			case "file":
				encoded, _ := cl.Value["content"].(string)
				content, _ := base64.StdEncoding.DecodeString(encoded)
				f.files[id+"/"+path] = string(content)
			case "lfsFile":
				oid, _ := cl.Value["oid"].(string)
				content, ok := f.lfs[oid]
				if !ok {
					w.WriteHeader(http.StatusBadRequest)
					_, _ = w.Write([]byte(`{"error":"LFS object not uploaded"}`))
					return
				}
				f.files[id+"/"+path] = content
			}
		}
		_, _ = w.Write([]byte(`{"commitOid":"abc"}`))
	case r.Method == http.MethodGet && strings.Contains(p, "/resolve/main/"):
		rest := strings.TrimPrefix(strings.TrimPrefix(strings.TrimPrefix(p, "/"), "datasets/"), "spaces/")
		id, file, _ := strings.Cut(rest, "/resolve/main/")
		content, ok := f.files[id+"/"+file]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("Entry not found"))
			return
		}
		_, _ = w.Write([]byte(content))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestHFClient(t *testing.T) {
	fake := newFakeHub()
	srv := httptest.NewServer(fake)
	defer srv.Close()
	ctx := context.Background()
	c := NewHFClient(srv.URL, "hf_token")

	k, err := c.Kind(ctx, "org/space")
	require.NoError(t, err)
	assert.Equal(t, KindNotFound, k)

	require.NoError(t, c.CreateRepo(ctx, "org/space", TypeSpace, CreateOptions{SpaceSDK: "streamlit"}))
	require.NoError(t, c.CreateRepo(ctx, "org/space", TypeSpace, CreateOptions{SpaceSDK: "streamlit"}), "409 means exists")
	assert.Equal(t, "space", fake.created[0]["type"])
	assert.Equal(t, "streamlit", fake.created[0]["sdk"])

	require.NoError(t, c.CreateRepo(ctx, "org/model", TypeModel, CreateOptions{Private: true}))
	assert.NotContains(t, fake.created[2], "type")
	assert.Equal(t, true, fake.created[2]["private"])

	k, err = c.Kind(ctx, "org/space")
	require.NoError(t, err)
	assert.Equal(t, KindSpace, k)
	k, err = c.Kind(ctx, "org/model")
	require.NoError(t, err)
	assert.Equal(t, KindModel, k)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.py"), "print(1)")
	writeFile(t, filepath.Join(dir, "pages", "p.py"), "print(2)")
	require.NoError(t, c.UploadFolder(ctx, "org/space", TypeSpace, dir, "deploy"))
	assert.Equal(t, "print(2)", fake.files["org/space/pages/p.py"])

	require.NoError(t, c.UploadFile(ctx, "org/model", TypeModel, filepath.Join(dir, "app.py"), "x/app.py", "up"))
	dest := filepath.Join(t.TempDir(), "app.py")
	require.NoError(t, c.Download(ctx, "org/model", TypeModel, "x/app.py", dest))
	b, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "print(1)", string(b))

	err = c.Download(ctx, "org/model", TypeModel, "absent", dest)
	var he *Error
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusNotFound, he.Status)
	assert.Equal(t, "Entry not found", he.Message)

	err = c.UploadFile(ctx, "org/none", TypeModel, filepath.Join(dir, "app.py"), "a", "up")
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "Repository not found", he.Message)

	for _, a := range fake.auth {
		assert.Equal(t, "Bearer hf_token", a)
	}
}

func TestHFClientUploadsBinaryBlobsThroughLFS(t *testing.T) {
	fake := newFakeHub()
	srv := httptest.NewServer(fake)
	defer srv.Close()
	ctx := context.Background()
	c := NewHFClient(srv.URL, "hf_token")
	require.NoError(t, c.CreateRepo(ctx, "org/model", TypeModel, CreateOptions{}))

	blob := string([]byte{0x28, 0xb5, 0x2f, 0xfd, 0x00, 0x01, 0xff, 0x00})
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "model.msgpack.zst"), blob)
	writeFile(t, filepath.Join(dir, "meta.msgpack.zst"), blob)
	writeFile(t, filepath.Join(dir, "metrics.json"), `{"model": "rf"}`)
	require.NoError(t, c.UploadFolder(ctx, "org/model", TypeModel, dir, "publish"))

	assert.Equal(t, 1, fake.puts, "identical blobs share one LFS object")
	assert.Equal(t, blob, fake.files["org/model/model.msgpack.zst"])
	assert.Equal(t, blob, fake.files["org/model/meta.msgpack.zst"])
	assert.Equal(t, `{"model": "rf"}`, fake.files["org/model/metrics.json"])

	dest := filepath.Join(t.TempDir(), "model.msgpack.zst")
	require.NoError(t, c.Download(ctx, "org/model", TypeModel, "model.msgpack.zst", dest))
	b, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, blob, string(b))

	require.NoError(t, c.UploadFolder(ctx, "org/model", TypeModel, dir, "publish again"))
	assert.Equal(t, 1, fake.puts, "stored objects are not uploaded twice")
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	repo, err := Open(context.Background(), &config.Configs{})
	require.NoError(t, err)
	assert.IsType(t, &HFClient{}, repo)

	repo, err = Open(context.Background(), &config.Configs{HubURL: "file://" + dir})
	require.NoError(t, err)
	require.NoError(t, repo.CreateRepo(context.Background(), "a/b", TypeDataset, CreateOptions{}))
	assert.FileExists(t, filepath.Join(dir, "a", "b", MarkerFile))

	_, err = Open(context.Background(), &config.Configs{HubURL: "ftp://x"})
	assert.Error(t, err)

	bucket, prefix := splitBucket("models/team/repos/")
	assert.Equal(t, "models", bucket)
	assert.Equal(t, "team/repos", prefix)
}

func TestParseManifest(t *testing.T) {
	m, ok, err := ParseManifest([]byte("---\ntitle: Tourism\nsdk: docker\napp_port: 8501\n---\n\n# App\n"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "docker", m.SDK)
	assert.Equal(t, 8501, m.AppPort)
	assert.NoError(t, m.Validate())

	_, ok, err = ParseManifest([]byte("# just a readme"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = ParseManifest([]byte("---\nsdk: docker\n"))
	assert.Error(t, err)

	assert.Error(t, SpaceManifest{SDK: "docker"}.Validate())
	assert.Error(t, SpaceManifest{SDK: "flask"}.Validate())
}

func TestEnsureManifest(t *testing.T) {
	dir := t.TempDir()
	_, err := EnsureManifest(dir, "", 0, "")
	assert.ErrorIs(t, err, ErrNoManifest)

	writeFile(t, filepath.Join(dir, ReadmeFile), "# Tourism app\n")
	m, err := EnsureManifest(dir, "streamlit", 0, "tourism")
	require.NoError(t, err)
	assert.Equal(t, "streamlit", m.SDK)

	b, err := os.ReadFile(filepath.Join(dir, ReadmeFile))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "---\n"))
	assert.True(t, strings.HasSuffix(string(b), "# Tourism app\n"))

	again, err := EnsureManifest(dir, "gradio", 0, "")
	require.NoError(t, err)
	assert.Equal(t, "streamlit", again.SDK, "an existing manifest wins")
}
