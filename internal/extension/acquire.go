package extension

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/slashkit-labs/slashkit/internal/manifest"
)

// excludedNames are entries skipped when copying local sources into staging.
var excludedNames = map[string]bool{
	"node_modules": true,
	".git":         true,
	".DS_Store":    true,
}

// Acquirer materializes extension content from a SourceRef into a fresh
// staging directory. It never touches the live extension store.
type Acquirer struct {
	stagingRoot string
	httpClient  *http.Client
}

// AcquirerOption configures an Acquirer.
type AcquirerOption func(*Acquirer)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) AcquirerOption {
	return func(a *Acquirer) {
		a.httpClient = c
	}
}

// NewAcquirer creates an Acquirer that stages content under stagingRoot.
// An empty stagingRoot falls back to the system temp directory.
func NewAcquirer(stagingRoot string, opts ...AcquirerOption) *Acquirer {
	a := &Acquirer{
		stagingRoot: stagingRoot,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire resolves ref into a staged directory tree and the manifest
// parsed from it. The returned directory is owned by the caller; on error
// no staging directory is left behind.
func (a *Acquirer) Acquire(ctx context.Context, ref SourceRef) (string, *manifest.Manifest, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, &AcquisitionError{Kind: AcquireCancelled, Source: ref.Source, Err: err}
	}

	if a.stagingRoot != "" {
		if err := os.MkdirAll(a.stagingRoot, 0o755); err != nil {
			return "", nil, fmt.Errorf("creating staging root: %w", err)
		}
	}
	stage, err := os.MkdirTemp(a.stagingRoot, "slashkit-stage-*")
	if err != nil {
		return "", nil, fmt.Errorf("creating staging directory: %w", err)
	}

	switch ref.Type {
	case SourceLocal:
		err = a.acquireLocal(ref, stage)
	case SourceGit:
		err = a.acquireGit(ctx, ref, stage)
	case SourceRelease:
		err = a.acquireRelease(ctx, ref, stage)
	default:
		err = &AcquisitionError{Kind: AcquireUnsupportedSource, Source: ref.Source,
			Err: fmt.Errorf("unknown source type %q", ref.Type)}
	}
	if err != nil {
		os.RemoveAll(stage)
		return "", nil, err
	}

	root := contentRoot(stage)
	m, err := manifest.ParseDir(root)
	if err != nil {
		os.RemoveAll(stage)
		return "", nil, &AcquisitionError{Kind: AcquireNotFound, Source: ref.Source,
			Err: fmt.Errorf("no readable %s in acquired content: %w", manifest.FileName, err)}
	}

	return root, m, nil
}

// acquireLocal copies the source directory into staging, leaving the
// original untouched.
func (a *Acquirer) acquireLocal(ref SourceRef, stage string) error {
	info, err := os.Stat(ref.Source)
	if err != nil {
		return &AcquisitionError{Kind: AcquireNotFound, Source: ref.Source, Err: err}
	}
	if !info.IsDir() {
		return &AcquisitionError{Kind: AcquireNotFound, Source: ref.Source,
			Err: fmt.Errorf("%s is not a directory", ref.Source)}
	}
	if err := copyDir(ref.Source, stage); err != nil {
		return fmt.Errorf("copying %s into staging: %w", ref.Source, err)
	}
	return nil
}

// acquireGit clones the repository into staging and checks out the
// requested ref (default branch when unspecified). The .git directory is
// stripped afterwards so the staged tree is plain content.
func (a *Acquirer) acquireGit(ctx context.Context, ref SourceRef, stage string) error {
	if ref.Ref == "" {
		if _, err := git.PlainCloneContext(ctx, stage, false, &git.CloneOptions{
			URL:   ref.Source,
			Depth: 1,
		}); err != nil {
			return classifyGitError(ref, err)
		}
		return stripGitDir(stage)
	}

	// Try the ref as a branch, then as a tag. Shallow single-branch
	// clones keep both paths cheap.
	for _, name := range []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(ref.Ref),
		plumbing.NewTagReferenceName(ref.Ref),
	} {
		if err := clearDir(stage); err != nil {
			return err
		}
		_, err := git.PlainCloneContext(ctx, stage, false, &git.CloneOptions{
			URL:           ref.Source,
			ReferenceName: name,
			SingleBranch:  true,
			Depth:         1,
		})
		if err == nil {
			return stripGitDir(stage)
		}
		if isCancellation(err) {
			return classifyGitError(ref, err)
		}
		if !isMissingRef(err) {
			return classifyGitError(ref, err)
		}
	}

	// Fall back to a full clone and a detached checkout of the commit.
	if err := clearDir(stage); err != nil {
		return err
	}
	repo, err := git.PlainCloneContext(ctx, stage, false, &git.CloneOptions{URL: ref.Source})
	if err != nil {
		return classifyGitError(ref, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening cloned worktree: %w", err)
	}
	hash := plumbing.NewHash(ref.Ref)
	if err := wt.Checkout(&git.CheckoutOptions{Hash: hash}); err != nil {
		return &AcquisitionError{Kind: AcquireNotFound, Source: ref.Source,
			Err: fmt.Errorf("ref %q not found: %w", ref.Ref, err)}
	}
	return stripGitDir(stage)
}

// acquireRelease downloads an archive, verifies its checksum when one is
// declared, and extracts it into staging.
func (a *Acquirer) acquireRelease(ctx context.Context, ref SourceRef, stage string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.Source, nil)
	if err != nil {
		return &AcquisitionError{Kind: AcquireUnsupportedSource, Source: ref.Source, Err: err}
	}
	req.Header.Set("User-Agent", "slashkit-acquirer")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if isCancellation(err) {
			return &AcquisitionError{Kind: AcquireCancelled, Source: ref.Source, Err: err}
		}
		return &AcquisitionError{Kind: AcquireNetworkFailure, Source: ref.Source, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &AcquisitionError{Kind: AcquireNotFound, Source: ref.Source,
			Err: fmt.Errorf("download returned status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return &AcquisitionError{Kind: AcquireNetworkFailure, Source: ref.Source,
			Err: fmt.Errorf("download returned status %d", resp.StatusCode)}
	}

	archive, err := os.CreateTemp(a.stagingRoot, "slashkit-archive-*")
	if err != nil {
		return fmt.Errorf("creating download file: %w", err)
	}
	archivePath := archive.Name()
	defer os.Remove(archivePath)

	hasher := sha256.New()
	_, err = io.Copy(io.MultiWriter(archive, hasher), resp.Body)
	archive.Close()
	if err != nil {
		if isCancellation(err) {
			return &AcquisitionError{Kind: AcquireCancelled, Source: ref.Source, Err: err}
		}
		return &AcquisitionError{Kind: AcquireNetworkFailure, Source: ref.Source, Err: err}
	}

	if ref.SHA256 != "" {
		actual := hex.EncodeToString(hasher.Sum(nil))
		if !strings.EqualFold(actual, ref.SHA256) {
			return &AcquisitionError{Kind: AcquireChecksumMismatch, Source: ref.Source,
				Err: fmt.Errorf("expected %s, got %s", ref.SHA256, actual)}
		}
	}

	if err := extractArchive(archivePath, ref.Source, stage); err != nil {
		return err
	}
	return nil
}

// extractArchive unpacks a .zip or .tar.gz archive into destDir.
func extractArchive(archivePath, source, destDir string) error {
	kind, err := detectArchiveKind(archivePath, source)
	if err != nil {
		return &AcquisitionError{Kind: AcquireUnsupportedSource, Source: source, Err: err}
	}
	switch kind {
	case "zip":
		err = extractZip(archivePath, destDir)
	case "tar.gz":
		err = extractTarGz(archivePath, destDir)
	}
	if err != nil {
		return &AcquisitionError{Kind: AcquireNotFound, Source: source,
			Err: fmt.Errorf("extracting archive: %w", err)}
	}
	return nil
}

// detectArchiveKind decides the archive format from the source name,
// falling back to magic bytes.
func detectArchiveKind(archivePath, source string) (string, error) {
	lower := strings.ToLower(source)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return "zip", nil
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return "tar.gz", nil
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	magic := make([]byte, 2)
	if _, err := io.ReadFull(f, magic); err != nil {
		return "", fmt.Errorf("unrecognized archive format")
	}
	switch {
	case magic[0] == 'P' && magic[1] == 'K':
		return "zip", nil
	case magic[0] == 0x1f && magic[1] == 0x8b:
		return "tar.gz", nil
	}
	return "", fmt.Errorf("unrecognized archive format")
}

func extractTarGz(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading tar entry: %w", err)
		}

		dest, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return err
			}
			mode := os.FileMode(hdr.Mode) & 0o777
			if mode == 0 {
				mode = 0o644
			}
			out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()
		}
		// Symlinks and other special entries are skipped.
	}
	return nil
}

func extractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening zip archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		dest, err := safeJoin(destDir, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		mode := f.Mode() & 0o777
		if mode == 0 {
			mode = 0o644
		}
		out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
		if err != nil {
			rc.Close()
			return err
		}
		if _, err := io.Copy(out, rc); err != nil {
			out.Close()
			rc.Close()
			return err
		}
		out.Close()
		rc.Close()
	}
	return nil
}

// safeJoin joins name under dir, rejecting entries that would escape it.
func safeJoin(dir, name string) (string, error) {
	dest := filepath.Join(dir, filepath.FromSlash(name))
	if !strings.HasPrefix(dest, filepath.Clean(dir)+string(os.PathSeparator)) && dest != filepath.Clean(dir) {
		return "", fmt.Errorf("archive entry %q escapes extraction directory", name)
	}
	return dest, nil
}

// contentRoot returns stage itself, or the single wrapping subdirectory
// when the archive nested everything one level down without a manifest
// at the top.
func contentRoot(stage string) string {
	if _, err := os.Stat(filepath.Join(stage, manifest.FileName)); err == nil {
		return stage
	}
	entries, err := os.ReadDir(stage)
	if err != nil || len(entries) != 1 || !entries[0].IsDir() {
		return stage
	}
	sub := filepath.Join(stage, entries[0].Name())
	if _, err := os.Stat(filepath.Join(sub, manifest.FileName)); err == nil {
		return sub
	}
	return stage
}

// copyDir recursively copies src to dst, excluding entries in excludedNames.
func copyDir(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, srcInfo.Mode()&0o777); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if excludedNames[entry.Name()] {
			continue
		}
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyDir(srcPath, dstPath); err != nil {
				return err
			}
		} else if entry.Type().IsRegular() {
			if err := copyFile(srcPath, dstPath); err != nil {
				return err
			}
		}
		// Symlinks and other special files are skipped during copy.
	}
	return nil
}

// copyFile copies a single file from src to dst, preserving permissions.
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, srcInfo.Mode()&0o777)
}

// clearDir removes every entry inside dir, keeping dir itself.
func clearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// stripGitDir drops the .git directory from a fresh clone so the staged
// tree holds plain content only.
func stripGitDir(stage string) error {
	return os.RemoveAll(filepath.Join(stage, ".git"))
}

// classifyGitError maps go-git failures onto the acquisition taxonomy.
func classifyGitError(ref SourceRef, err error) error {
	kind := AcquireNetworkFailure
	switch {
	case isCancellation(err):
		kind = AcquireCancelled
	case errors.Is(err, transport.ErrRepositoryNotFound):
		kind = AcquireNotFound
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed):
		kind = AcquireNetworkFailure
	}
	return &AcquisitionError{Kind: kind, Source: ref.Source, Err: err}
}

// isMissingRef reports whether a clone failed only because the requested
// branch or tag does not exist.
func isMissingRef(err error) bool {
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return true
	}
	// go-git reports missing single-branch refs through the transport
	// layer with this message shape.
	return err != nil && strings.Contains(err.Error(), "couldn't find remote ref")
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
