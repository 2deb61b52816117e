package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultBaseURL  = "https://gitlab.com"
	defaultMaxFiles = 50
	treePerPage     = 100
)

// sourceExtensions is the allow-list used to filter repository trees
// down to source code files.
var sourceExtensions = map[string]bool{
	".py": true, ".java": true, ".js": true, ".ts": true, ".jsx": true,
	".tsx": true, ".cs": true, ".cpp": true, ".c": true, ".h": true,
	".go": true, ".rs": true, ".php": true, ".rb": true, ".swift": true,
	".kt": true, ".scala": true, ".m": true, ".mm": true, ".pl": true,
	".sh": true, ".ps1": true, ".r": true, ".dart": true, ".lua": true,
	".clj": true, ".fs": true, ".ml": true,
}

// Client talks to the GitLab REST API (v4). A zero token limits access
// to public repositories.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if token == "" {
		log.Warn().Msg("no gitlab token configured, only public repositories are accessible")
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// ProjectPath extracts "namespace/project" from a repository URL,
// stripping a trailing .git.
func ProjectPath(repoURL string) (string, error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", fmt.Errorf("invalid gitlab url: %w", err)
	}
	var parts []string
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return "", fmt.Errorf("invalid gitlab url: expected namespace/project in %q", repoURL)
	}
	project := strings.TrimSuffix(parts[1], ".git")
	return parts[0] + "/" + project, nil
}

// Project is the subset of project metadata the service needs.
type Project struct {
	Name          string `json:"name"`
	DefaultBranch string `json:"default_branch"`
}

// TreeEntry is one node of a repository tree listing.
type TreeEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Path string `json:"path"`
}

// FileInfo is one fetched source file.
type FileInfo struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Size    int    `json:"size"`
}

// Source is the combined result of fetching a repository's code.
type Source struct {
	Files      []FileInfo
	Combined   string
	Branch     string
	TotalFiles int
	TotalSize  int
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + "/api/v4" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gitlab request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gitlab api %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n]) + "..."
	}
	return s
}

// ProjectDetails fetches project metadata, including the default branch.
func (c *Client) ProjectDetails(ctx context.Context, projectPath string) (*Project, error) {
	body, err := c.get(ctx, "/projects/"+url.PathEscape(projectPath), nil)
	if err != nil {
		return nil, err
	}
	var p Project
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode project: %w", err)
	}
	return &p, nil
}

// Tree lists the repository tree recursively for one ref.
func (c *Client) Tree(ctx context.Context, projectPath, ref string) ([]TreeEntry, error) {
	q := url.Values{}
	q.Set("ref", ref)
	q.Set("recursive", "true")
	q.Set("per_page", fmt.Sprint(treePerPage))

	body, err := c.get(ctx, "/projects/"+url.PathEscape(projectPath)+"/repository/tree", q)
	if err != nil {
		return nil, err
	}
	var entries []TreeEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	return entries, nil
}

// FileContent fetches one file's raw content at a ref.
func (c *Client) FileContent(ctx context.Context, projectPath, filePath, ref string) (string, error) {
	q := url.Values{}
	q.Set("ref", ref)
	body, err := c.get(ctx,
		"/projects/"+url.PathEscape(projectPath)+"/repository/files/"+url.PathEscape(filePath)+"/raw", q)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// FilterSourceFiles keeps blob entries whose extension marks them as
// source code, in tree order.
func FilterSourceFiles(entries []TreeEntry) []string {
	var files []string
	for _, e := range entries {
		if e.Type != "blob" {
			continue
		}
		name := strings.ToLower(e.Name)
		if i := strings.LastIndex(name, "."); i >= 0 && sourceExtensions[name[i:]] {
			files = append(files, e.Path)
		}
	}
	return files
}

// FetchSource pulls up to maxFiles source files from a repository and
// concatenates them with per-file separators. Branch defaults to the
// project's default branch; files that fail to download are skipped.
func (c *Client) FetchSource(ctx context.Context, repoURL, branch string, maxFiles int) (*Source, error) {
	projectPath, err := ProjectPath(repoURL)
	if err != nil {
		return nil, err
	}
	if maxFiles <= 0 {
		maxFiles = defaultMaxFiles
	}

	if branch == "" {
		details, err := c.ProjectDetails(ctx, projectPath)
		if err != nil {
			return nil, err
		}
		branch = details.DefaultBranch
		if branch == "" {
			branch = "main"
		}
	}

	entries, err := c.Tree(ctx, projectPath, branch)
	if err != nil {
		return nil, err
	}
	paths := FilterSourceFiles(entries)
	if len(paths) > maxFiles {
		log.Warn().Int("found", len(paths)).Int("limit", maxFiles).Msg("limiting repository files")
		paths = paths[:maxFiles]
	}

	src := &Source{Branch: branch}
	var combined strings.Builder
	for _, p := range paths {
		content, err := c.FileContent(ctx, projectPath, p, branch)
		if err != nil {
			log.Warn().Err(err).Str("path", p).Msg("skipping unreadable file")
			continue
		}
		src.Files = append(src.Files, FileInfo{Path: p, Content: content, Size: len(content)})
		fmt.Fprintf(&combined, "\n# ===== File: %s =====\n%s\n", p, content)
	}
	src.Combined = combined.String()
	src.TotalFiles = len(src.Files)
	for _, f := range src.Files {
		src.TotalSize += f.Size
	}
	if src.TotalFiles == 0 {
		return nil, fmt.Errorf("no readable source files found in %s@%s", projectPath, branch)
	}
	return src, nil
}
