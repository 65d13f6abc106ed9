package hub

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/metric"
)

// HFClient talks to the Hugging Face Hub REST API.
type HFClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewHFClient(baseURL, token string) *HFClient {
	return &HFClient{
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

// Kind asks the space, dataset and model endpoints in turn. Unknown ids
// answer 404, or 401 when the caller is anonymous.
func (c *HFClient) Kind(ctx context.Context, id string) (Kind, error) {
	for _, t := range []RepoType{TypeSpace, TypeDataset, TypeModel} {
		resp, err := c.do(ctx, "kind", http.MethodGet, "/api/"+string(t)+"s/"+id, "", nil)
		if err != nil {
			return KindNotFound, err
		}
		resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusOK:
			return t.Kind(), nil
		case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusUnauthorized:
			continue
		default:
			return KindNotFound, &Error{Op: "kind " + id, Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
	}
	return KindNotFound, nil
}

type createRequest struct {
	Name         string `json:"name"`
	Organization string `json:"organization,omitempty"`
	Type         string `json:"type,omitempty"`
	Private      bool   `json:"private"`
	SDK          string `json:"sdk,omitempty"`
}

func (c *HFClient) CreateRepo(ctx context.Context, id string, t RepoType, opts CreateOptions) error {
	org, name, ok := strings.Cut(id, "/")
	if !ok {
		org, name = "", id
	}
	req := createRequest{Name: name, Organization: org, Private: opts.Private}
	if t != TypeModel {
		req.Type = string(t)
	}
	if t == TypeSpace {
		req.SDK = opts.SpaceSDK
	}
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, "create", http.MethodPost, "/api/repos/create", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusConflict {
		log.Debug().Str("repo", id).Msg("Repository already exists")
		return nil
	}
	if err := checkResponse("create "+id, resp); err != nil {
		return err
	}
	log.Info().Str("repo", id).Str("type", string(t)).Bool("private", opts.Private).Msg("Created repository")
	return nil
}

func (c *HFClient) UploadFile(ctx context.Context, id string, t RepoType, localPath, pathInRepo, message string) error {
	b, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("hub: %w", err)
	}
	return c.commit(ctx, id, t, message, []commitFile{{Path: pathInRepo, Content: b}})
}

func (c *HFClient) UploadFolder(ctx context.Context, id string, t RepoType, folder, message string) error {
	files, err := readFolder(folder)
	if err != nil {
		return err
	}
	return c.commit(ctx, id, t, message, files)
}

type commitFile struct {
	Path    string
	Content []byte
}

type commitLine struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// commit sends one commit on main as NDJSON: a header line followed by one
// operation per file. Files the Hub routes to LFS are uploaded first and
// committed as pointers; the rest travel inline as base64.
func (c *HFClient) commit(ctx context.Context, id string, t RepoType, message string, files []commitFile) error {
	modes, err := c.preupload(ctx, id, t, files)
	if err != nil {
		return err
	}
	var lfs []commitFile
	for _, f := range files {
		if modes[f.Path] == modeLFS {
			lfs = append(lfs, f)
		}
	}
	if len(lfs) > 0 {
		if err := c.uploadLFS(ctx, id, t, lfs); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(commitLine{Key: "header", Value: map[string]string{"summary": message, "description": ""}}); err != nil {
		return err
	}
	for _, f := range files {
		line := commitLine{Key: "file", Value: map[string]string{
			"path":     f.Path,
			"encoding": "base64",
			"content":  base64.StdEncoding.EncodeToString(f.Content),
		}}
		if modes[f.Path] == modeLFS {
			line = commitLine{Key: "lfsFile", Value: map[string]any{
				"path": f.Path,
				"algo": "sha256",
				"oid":  oidOf(f.Content),
				"size": len(f.Content),
			}}
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}

	path := "/api/" + string(t) + "s/" + id + "/commit/main"
	resp, err := c.do(ctx, "commit", http.MethodPost, path, "application/x-ndjson", &buf)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkResponse("commit "+id, resp); err != nil {
		return err
	}
	log.Info().Str("repo", id).Int("files", len(files)).Int("lfs", len(lfs)).Msg("Committed files")
	return nil
}

func (c *HFClient) Download(ctx context.Context, id string, t RepoType, pathInRepo, dest string) error {
	resp, err := c.do(ctx, "download", http.MethodGet, "/"+urlPrefix(t)+id+"/resolve/main/"+pathInRepo, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkResponse("download "+id+"/"+pathInRepo, resp); err != nil {
		return err
	}
	return writeFileFrom(dest, resp.Body)
}

func (c *HFClient) Close() error { return nil }

func urlPrefix(t RepoType) string {
	switch t {
	case TypeDataset:
		return "datasets/"
	case TypeSpace:
		return "spaces/"
	}
	return ""
}

func (c *HFClient) do(ctx context.Context, op, method, path, contentType string, body io.Reader) (*http.Response, error) {
	header := http.Header{}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	return c.send(ctx, op, method, c.baseURL+path, header, body, true)
}

// send issues one request to an absolute url. auth adds the bearer token.
func (c *HFClient) send(ctx context.Context, op, method, url string, header http.Header, body io.Reader, auth bool) (*http.Response, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("hub: %s: %w", op, err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if auth && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)

	tags := metric.BuildTag(
		metric.NewTag(metric.TagBackend, "huggingface"),
		metric.NewTag(metric.TagOperation, op),
		metric.StatusTag(err),
	)
	metric.Incr(metric.HubRequestCount, tags)
	metric.TimingWithStart(metric.HubRequestLatency, start, tags)
	if err != nil {
		log.Error().Err(err).Str("op", op).Msg("Hub request failed")
		return nil, fmt.Errorf("hub: %s: %w", op, err)
	}
	return resp, nil
}

func checkResponse(op string, resp *http.Response) error {
	if resp.StatusCode/100 == 2 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(b))
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &Error{Op: op, Status: resp.StatusCode, Message: msg}
}

// readFolder loads every regular file under folder, skipping .git.
func readFolder(folder string) ([]commitFile, error) {
	var files []commitFile
	err := filepath.WalkDir(folder, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(folder, path)
		if err != nil {
			return err
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files = append(files, commitFile{Path: filepath.ToSlash(rel), Content: b})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("hub: read folder %s: %w", folder, err)
	}
	return files, nil
}

func writeFileFrom(dest string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("hub: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return fmt.Errorf("hub: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("hub: write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("hub: write %s: %w", dest, err)
	}
	return os.Rename(tmp.Name(), dest)
}
