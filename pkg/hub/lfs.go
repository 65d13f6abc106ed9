package hub

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

const (
	lfsMediaType = "application/vnd.git-lfs+json"
	// the Hub sniffs this many leading bytes to pick an upload mode
	sampleBytes = 512
)

// modeLFS is the preupload answer for files stored through LFS.
const modeLFS = "lfs"

type preuploadFile struct {
	Path   string `json:"path"`
	Size   int    `json:"size"`
	Sample string `json:"sample"`
}

// preupload asks the Hub which files go through LFS. Files the answer does not
// mention are committed inline.
func (c *HFClient) preupload(ctx context.Context, id string, t RepoType, files []commitFile) (map[string]string, error) {
	req := struct {
		Files []preuploadFile `json:"files"`
	}{Files: make([]preuploadFile, len(files))}
	for i, f := range files {
		sample := f.Content
		if len(sample) > sampleBytes {
			sample = sample[:sampleBytes]
		}
		req.Files[i] = preuploadFile{Path: f.Path, Size: len(f.Content), Sample: base64.StdEncoding.EncodeToString(sample)}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, "preupload", http.MethodPost, "/api/"+string(t)+"s/"+id+"/preupload/main", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkResponse("preupload "+id, resp); err != nil {
		return nil, err
	}
	var out struct {
		Files []struct {
			Path       string `json:"path"`
			UploadMode string `json:"uploadMode"`
		} `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("hub: preupload %s: %w", id, err)
	}
	modes := make(map[string]string, len(out.Files))
	for _, f := range out.Files {
		modes[f.Path] = f.UploadMode
	}
	return modes, nil
}

type lfsObject struct {
	Oid  string `json:"oid"`
	Size int    `json:"size"`
}

type lfsAction struct {
	Href   string            `json:"href"`
	Header map[string]string `json:"header"`
}

type lfsBatchResponse struct {
	Objects []struct {
		lfsObject
		Actions map[string]lfsAction `json:"actions"`
		Error   *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"objects"`
}

func oidOf(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// uploadLFS stores the content of files through the git LFS batch API. Objects
// the Hub already holds come back without actions and are skipped.
func (c *HFClient) uploadLFS(ctx context.Context, id string, t RepoType, files []commitFile) error {
	byOid := make(map[string][]byte, len(files))
	objects := make([]lfsObject, 0, len(files))
	for _, f := range files {
		oid := oidOf(f.Content)
		if _, ok := byOid[oid]; ok {
			continue
		}
		byOid[oid] = f.Content
		objects = append(objects, lfsObject{Oid: oid, Size: len(f.Content)})
	}
	body, err := json.Marshal(map[string]any{
		"operation": "upload",
		"transfers": []string{"basic"},
		"objects":   objects,
		"hash_algo": "sha256",
	})
	if err != nil {
		return err
	}
	header := http.Header{}
	header.Set("Content-Type", lfsMediaType)
	header.Set("Accept", lfsMediaType)
	batchURL := c.baseURL + "/" + urlPrefix(t) + id + ".git/info/lfs/objects/batch"
	resp, err := c.send(ctx, "lfs_batch", http.MethodPost, batchURL, header, bytes.NewReader(body), true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkResponse("lfs batch "+id, resp); err != nil {
		return err
	}
	var batch lfsBatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return fmt.Errorf("hub: lfs batch %s: %w", id, err)
	}

	for _, obj := range batch.Objects {
		if obj.Error != nil {
			return &Error{Op: "lfs batch " + id, Status: obj.Error.Code, Message: obj.Error.Message}
		}
		upload, ok := obj.Actions["upload"]
		if !ok {
			log.Debug().Str("repo", id).Str("oid", obj.Oid).Msg("LFS object already stored")
			continue
		}
		if err := c.lfsAction(ctx, "lfs_upload", http.MethodPut, upload, byOid[obj.Oid], false); err != nil {
			return err
		}
		if verify, ok := obj.Actions["verify"]; ok {
			payload, err := json.Marshal(obj.lfsObject)
			if err != nil {
				return err
			}
			if err := c.lfsAction(ctx, "lfs_verify", http.MethodPost, verify, payload, true); err != nil {
				return err
			}
		}
	}
	log.Info().Str("repo", id).Int("objects", len(objects)).Msg("Uploaded LFS objects")
	return nil
}

// lfsAction runs one batch action. Upload hrefs are presigned, so only verify
// carries the Hub token.
func (c *HFClient) lfsAction(ctx context.Context, op, method string, a lfsAction, body []byte, auth bool) error {
	header := http.Header{}
	for k, v := range a.Header {
		header.Set(k, v)
	}
	if auth {
		header.Set("Content-Type", lfsMediaType)
	}
	resp, err := c.send(ctx, op, method, a.Href, header, bytes.NewReader(body), auth)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkResponse(op, resp)
}
