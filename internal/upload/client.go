package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/giantswarm/simenv/internal/sentinel"
)

// ErrNothingToUpload is returned when the directory has no files to archive.
const ErrNothingToUpload = sentinel.Error("recording directory has no files to upload")

// ErrRejected is returned when the endpoint answers with a non-2xx status.
const ErrRejected = sentinel.Error("upload rejected by endpoint")

// Multipart field names.
const (
	FieldAlgorithmID = "algorithm_id"
	FieldWriteup     = "writeup"
	FieldArchive     = "recording"
)

// DefaultHTTPTimeout is the Timeout of the http.Client used when
// Config.HTTPClient is nil.
const DefaultHTTPTimeout = 5 * time.Minute

// maxErrorBody bounds how much of a rejection body is quoted in errors.
const maxErrorBody = 512

// Request describes one upload.
type Request struct {
	AlgorithmID string
	Writeup     string
	APIKey      string
}

// Result is the endpoint's acknowledgement.
type Result struct {
	Status int    `json:"-"`
	ID     string `json:"id,omitempty"`
	URL    string `json:"url,omitempty"`
	Files  int    `json:"-"`
}

// Config configures a Client.
type Config struct {
	// Endpoint is the absolute URL that receives the POST.
	Endpoint string
	// HTTPClient defaults to a client with DefaultHTTPTimeout.
	HTTPClient *http.Client
	// Exclude lists file names never shipped, such as lock files.
	Exclude []string
}

// Client posts recording archives.
type Client struct {
	cfg Config
}

// NewClient returns a Client. Panics if cfg.Endpoint is empty.
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		panic("upload: endpoint must not be empty")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{cfg: cfg}
}

// Upload archives dir and posts it with the request metadata. The archive is
// streamed; it is never fully buffered in memory.
func (c *Client) Upload(ctx context.Context, dir string, req Request) (Result, error) {
	files, err := c.countFiles(dir)
	if err != nil {
		return Result{}, err
	}
	if files == 0 {
		return Result{}, ErrNothingToUpload
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeBody(mw, dir, req, c.cfg.Exclude))
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	if req.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	}

	resp, err := c.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		_ = pr.CloseWithError(err)
		return Result{}, fmt.Errorf("post %s: %w", c.cfg.Endpoint, err)
	}
	defer resp.Body.Close() //nolint:errcheck // body fully consumed below

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Result{Status: resp.StatusCode}, fmt.Errorf("%w: %s: %s",
			ErrRejected, resp.Status, strings.TrimSpace(string(body)))
	}

	res := Result{Status: resp.StatusCode, Files: files}
	// The acknowledgement body is optional.
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil && !errors.Is(err, io.EOF) {
		return res, fmt.Errorf("decode upload response: %w", err)
	}
	return res, nil
}

func (c *Client) countFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read %s: %w", dir, err)
	}
	n := 0
	for _, e := range entries {
		if e.Type().IsRegular() && !slices.Contains(c.cfg.Exclude, e.Name()) {
			n++
		}
	}
	return n, nil
}

func writeBody(mw *multipart.Writer, dir string, req Request, exclude []string) error {
	if err := mw.WriteField(FieldAlgorithmID, req.AlgorithmID); err != nil {
		return err
	}
	if err := mw.WriteField(FieldWriteup, req.Writeup); err != nil {
		return err
	}
	part, err := mw.CreateFormFile(FieldArchive, filepath.Base(dir)+".tar.gz")
	if err != nil {
		return err
	}
	if _, err := Archive(part, dir, exclude...); err != nil {
		return err
	}
	return mw.Close()
}
