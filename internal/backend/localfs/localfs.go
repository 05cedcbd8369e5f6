// Package localfs provides a filesystem-backed Backend rooted at a single
// directory, with traversal-proof path resolution: no input path, however
// adversarial, can cause I/O outside the canonicalized root.
package localfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	obackend "github.com/openfs/openfs/internal/backend"
)

// Backend is a Backend rooted at Root, a directory on the local filesystem.
type Backend struct {
	name string
	root string // canonicalized, absolute
}

// New canonicalizes root and returns a Backend rooted there. root must
// already exist; it is not created.
func New(name, root string) (*Backend, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, obackend.IO(err)
	}
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, obackend.IO(fmt.Errorf("resolving root %q: %w", root, err))
	}
	return &Backend{name: name, root: canon}, nil
}

func (b *Backend) Name() string { return b.name }

// resolve implements spec §4.1's four-step path-traversal defense:
//  1. strip the leading slash, reject ".." / absolute / drive-letter components
//  2. join onto the canonicalized root
//  3. canonicalize the nearest existing ancestor (including the basename if
//     it is itself a symlink) and assert it is still inside the root
//  4. only then is the caller allowed to touch the filesystem
func (b *Backend) resolve(p string) (string, error) {
	rel := strings.TrimPrefix(p, "/")
	if rel == "" || rel == "." {
		return b.root, nil
	}
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, `\\`) {
		return "", obackend.PathTraversal(p)
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, part := range parts {
		switch part {
		case "..", "":
			return "", obackend.PathTraversal(p)
		}
		if volume := filepath.VolumeName(part); volume != "" {
			return "", obackend.PathTraversal(p)
		}
	}

	target := filepath.Join(b.root, filepath.FromSlash(strings.Join(parts, "/")))
	if !withinRoot(b.root, target) {
		return "", obackend.PathTraversal(p)
	}

	if err := b.assertAncestorsWithinRoot(target); err != nil {
		return "", err
	}
	return target, nil
}

// assertAncestorsWithinRoot walks from target upward until it finds an
// existing ancestor (or the basename itself, via Lstat, to catch a
// dangling symlink basename), canonicalizes it, and asserts the result is
// still rooted under b.root. This defends against a symlink anywhere on
// the path — including the final component — that points outside root.
func (b *Backend) assertAncestorsWithinRoot(target string) error {
	cur := target
	for {
		fi, lerr := os.Lstat(cur)
		if lerr == nil {
			canon, err := filepath.EvalSymlinks(cur)
			if err != nil {
				if os.IsNotExist(err) {
					// EvalSymlinks couldn't follow the chain because it
					// dangles. If cur itself is a symlink, that is exactly
					// the basename-symlink-to-nonexistent-target case: walk
					// the link manually rather than treating it as "doesn't
					// exist yet".
					if fi.Mode()&os.ModeSymlink != 0 {
						return b.assertSymlinkWithinRoot(cur)
					}
					break
				}
				return obackend.IO(err)
			}
			if !withinRoot(b.root, canon) {
				return obackend.PathTraversal(target)
			}
			break
		} else if !os.IsNotExist(lerr) {
			return obackend.IO(lerr)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
		if cur == b.root {
			break
		}
	}
	return nil
}

// assertSymlinkWithinRoot validates a symlink whose target cannot be
// canonicalized by filepath.EvalSymlinks because it (or a later hop in its
// chain) does not exist. It follows the chain by hand, resolving relative
// targets against each link's own directory, and rejects any hop whose
// resolved, cleaned path lands outside root — this is what stops a
// dangling symlink such as root/evil.txt -> /outside/nonexistent.txt from
// being treated as safe just because nothing exists at the far end.
func (b *Backend) assertSymlinkWithinRoot(link string) error {
	cur := link
	for i := 0; i < 40; i++ {
		raw, err := os.Readlink(cur)
		if err != nil {
			return obackend.IO(err)
		}
		target := raw
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(cur), target)
		}
		target = filepath.Clean(target)
		if !withinRoot(b.root, target) {
			return obackend.PathTraversal(link)
		}
		fi, err := os.Lstat(target)
		if err != nil {
			if os.IsNotExist(err) {
				return nil // dangling, but every hop resolved inside root
			}
			return obackend.IO(err)
		}
		if fi.Mode()&os.ModeSymlink == 0 {
			return nil // resolves to a real entry inside root
		}
		cur = target
	}
	return obackend.PathTraversal(link)
}

func withinRoot(root, target string) bool {
	root = filepath.Clean(root)
	target = filepath.Clean(target)
	if target == root {
		return true
	}
	return strings.HasPrefix(target, root+string(filepath.Separator))
}

func (b *Backend) Read(ctx context.Context, p string) ([]byte, error) {
	full, err := b.resolve(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, translateErr(p, err)
	}
	return data, nil
}

func (b *Backend) ReadWithCASToken(ctx context.Context, p string) ([]byte, string, error) {
	full, err := b.resolve(p)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, "", translateErr(p, err)
	}
	fi, err := os.Stat(full)
	if err != nil {
		return nil, "", translateErr(p, err)
	}
	return data, casToken(fi), nil
}

func casToken(fi os.FileInfo) string {
	return strconv.FormatInt(fi.Size(), 10) + "-" + strconv.FormatInt(fi.ModTime().UnixNano(), 10)
}

func (b *Backend) Write(ctx context.Context, p string, data []byte) error {
	full, err := b.resolve(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return obackend.IO(err)
	}
	tmp := full + fmt.Sprintf(".openfs-tmp-%d", time.Now().UnixNano())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return obackend.IO(err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return obackend.IO(err)
	}
	return nil
}

func (b *Backend) CompareAndSwap(ctx context.Context, p string, expected string, data []byte) (string, error) {
	full, err := b.resolve(p)
	if err != nil {
		return "", err
	}
	current := ""
	if fi, statErr := os.Stat(full); statErr == nil {
		current = casToken(fi)
	} else if !os.IsNotExist(statErr) {
		return "", obackend.IO(statErr)
	}
	if current != expected {
		return "", obackend.PreconditionFailed(expected, current)
	}
	if err := b.Write(ctx, p, data); err != nil {
		return "", err
	}
	fi, err := os.Stat(full)
	if err != nil {
		return "", obackend.IO(err)
	}
	return casToken(fi), nil
}

// Append reads the current content (treating NotFound as empty),
// concatenates, and writes back through Write's temp-file-plus-rename
// path. This deliberately avoids os.OpenFile(O_APPEND|O_CREATE), which
// would open straight through a basename symlink; Write's atomic rename
// replaces whatever sits at full (symlink included) instead of following
// it.
func (b *Backend) Append(ctx context.Context, p string, data []byte) error {
	existing, err := b.Read(ctx, p)
	if err != nil {
		if !obackend.IsKind(err, obackend.KindNotFound) {
			return err
		}
		existing = nil
	}
	combined := make([]byte, 0, len(existing)+len(data))
	combined = append(combined, existing...)
	combined = append(combined, data...)
	return b.Write(ctx, p, combined)
}

func (b *Backend) Delete(ctx context.Context, p string) error {
	full, err := b.resolve(p)
	if err != nil {
		return err
	}
	fi, statErr := os.Stat(full)
	if statErr != nil {
		return translateErr(p, statErr)
	}
	if fi.IsDir() {
		err = os.RemoveAll(full)
	} else {
		err = os.Remove(full)
	}
	if err != nil {
		return obackend.IO(err)
	}
	return nil
}

func (b *Backend) Exists(ctx context.Context, p string) (bool, error) {
	full, err := b.resolve(p)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, obackend.IO(err)
}

func (b *Backend) Stat(ctx context.Context, p string) (obackend.Entry, error) {
	full, err := b.resolve(p)
	if err != nil {
		return obackend.Entry{}, err
	}
	fi, err := os.Stat(full)
	if err != nil {
		return obackend.Entry{}, translateErr(p, err)
	}
	e := obackend.Entry{
		Path: p, Name: filepath.Base(full), IsDir: fi.IsDir(),
		Modified: fi.ModTime(), HasMod: true,
	}
	if !fi.IsDir() {
		e.Size = fi.Size()
		e.HasSize = true
	}
	return e, nil
}

func (b *Backend) List(ctx context.Context, p string) ([]obackend.Entry, error) {
	full, err := b.resolve(p)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(full)
	if err != nil {
		return nil, translateErr(p, err)
	}
	if !fi.IsDir() {
		return nil, obackend.NotADirectory(p)
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, obackend.IO(err)
	}
	var dirs, files []obackend.Entry
	for _, de := range entries {
		info, err := de.Info()
		if err != nil {
			continue
		}
		childPath := strings.TrimSuffix(p, "/") + "/" + de.Name()
		ent := obackend.Entry{
			Path: childPath, Name: de.Name(), IsDir: de.IsDir(),
			Modified: info.ModTime(), HasMod: true,
		}
		if de.IsDir() {
			dirs = append(dirs, ent)
		} else {
			ent.Size = info.Size()
			ent.HasSize = true
			files = append(files, ent)
		}
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name < dirs[j].Name })
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return append(dirs, files...), nil
}

func (b *Backend) Rename(ctx context.Context, from, to string) error {
	fullFrom, err := b.resolve(from)
	if err != nil {
		return err
	}
	fullTo, err := b.resolve(to)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullTo), 0o755); err != nil {
		return obackend.IO(err)
	}
	if err := os.Rename(fullFrom, fullTo); err != nil {
		return translateErr(from, err)
	}
	return nil
}

func translateErr(p string, err error) error {
	if os.IsNotExist(err) {
		return obackend.NotFound(p)
	}
	if os.IsPermission(err) {
		return obackend.PermissionDenied(p)
	}
	if strings.Contains(err.Error(), "not a directory") {
		return obackend.NotADirectory(p)
	}
	return obackend.IO(err)
}

var _ obackend.CASBackend = (*Backend)(nil)
