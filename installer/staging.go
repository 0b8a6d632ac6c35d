package installer

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cqcsystem/cqcsrv/installer/progress"
	"github.com/cqcsystem/cqcsrv/pkg/cqcerrors"
)

// recursiveSubtrees are walked fully; everything else at the source root
// is copied non-recursively (spec.md §4.3.3 step 2).
var recursiveSubtrees = []string{"CQCData", "Bin"}

// ignoredSubtree is excluded even though it falls under a recursive
// subtree.
const ignoredSubtree = "Client/Data/MediaCache"

// progressEvery controls how often (in files copied) a progress fraction
// is published, per spec.md §4.3.3 step 4.
const progressEvery = 20

// FileEntry is one enumerated source file, relative to the source image
// root.
type FileEntry struct {
	RelPath string
	AbsPath string
}

// EnumerateSourceImage walks sourceRoot per spec.md §4.3.3 step 2: the two
// recursive subtrees plus top-level files, excluding ignoredSubtree.
func EnumerateSourceImage(sourceRoot string) ([]FileEntry, error) {
	var entries []FileEntry

	for _, subtree := range recursiveSubtrees {
		root := filepath.Join(sourceRoot, subtree)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) && path == root {
					return nil
				}
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, relErr := filepath.Rel(sourceRoot, path)
			if relErr != nil {
				return relErr
			}
			subRel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return relErr
			}
			if isIgnored(subRel) {
				return nil
			}
			entries = append(entries, FileEntry{RelPath: rel, AbsPath: path})
			return nil
		})
		if err != nil {
			return nil, cqcerrors.InfrastructureFailure("EnumerateSourceImage", err)
		}
	}

	topEntries, err := os.ReadDir(sourceRoot)
	if err != nil {
		return nil, cqcerrors.InfrastructureFailure("EnumerateSourceImage", err)
	}
	for _, te := range topEntries {
		if te.IsDir() {
			continue
		}
		entries = append(entries, FileEntry{RelPath: te.Name(), AbsPath: filepath.Join(sourceRoot, te.Name())})
	}

	return entries, nil
}

func isIgnored(rel string) bool {
	normalized := filepath.ToSlash(rel)
	return strings.HasPrefix(normalized, filepath.ToSlash(ignoredSubtree)+"/") || normalized == filepath.ToSlash(ignoredSubtree)
}

// PrepareStagingDir creates stagingDir empty, clearing it first if it
// already exists from a prior failed attempt (spec.md §4.3.3 step 1,
// and L3: running on an existing incomplete staging directory is
// equivalent to running on an empty one).
func PrepareStagingDir(stagingDir string) error {
	if _, err := os.Stat(stagingDir); err == nil {
		if err := os.RemoveAll(stagingDir); err != nil {
			return cqcerrors.InfrastructureFailure("PrepareStagingDir", err)
		}
	} else if !os.IsNotExist(err) {
		return cqcerrors.InfrastructureFailure("PrepareStagingDir", err)
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return cqcerrors.InfrastructureFailure("PrepareStagingDir", err)
	}
	return nil
}

// StageFiles copies every entry into stagingDir at its relative path,
// verifying size and mtime after each copy, and publishes a progress
// fraction every progressEvery files (spec.md §4.3.3 steps 3-4, invariant
// P8). pub may be nil to disable progress publication.
func StageFiles(entries []FileEntry, stagingDir string, pub *progress.Publisher) error {
	total := len(entries)
	for i, entry := range entries {
		destPath := filepath.Join(stagingDir, entry.RelPath)
		if err := copyFileVerified(entry.AbsPath, destPath); err != nil {
			return err
		}

		if pub != nil && (i+1)%progressEvery == 0 {
			pub.Publish(fraction(i+1, total))
		}
	}
	if pub != nil {
		pub.Publish(100)
	}
	return nil
}

func fraction(done, total int) int {
	if total <= 0 {
		return 100
	}
	pct := done * 100 / total
	if pct > 100 {
		pct = 100
	}
	return pct
}

// copyFileVerified copies src to dst, creating parent directories as
// needed, then verifies the destination's size and modification time
// match the source's. Any mismatch fails with a path-named error
// (invariant P8, "no silent loss").
func copyFileVerified(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return cqcerrors.InfrastructureFailure("StageFiles", err)
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return cqcerrors.InfrastructureFailure("StageFiles", err)
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return cqcerrors.InfrastructureFailure("StageFiles", err)
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode())
	if err != nil {
		return cqcerrors.InfrastructureFailure("StageFiles", err)
	}
	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return cqcerrors.InfrastructureFailure("StageFiles", err)
	}
	if err := dstFile.Close(); err != nil {
		return cqcerrors.InfrastructureFailure("StageFiles", err)
	}

	if err := os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime()); err != nil {
		return cqcerrors.InfrastructureFailure("StageFiles", err)
	}

	dstInfo, err := os.Stat(dst)
	if err != nil {
		return cqcerrors.InfrastructureFailure("StageFiles", err)
	}
	if dstInfo.Size() != srcInfo.Size() || !dstInfo.ModTime().Equal(srcInfo.ModTime()) {
		return cqcerrors.Wrap(cqcerrors.KindInfrastructureFailure,
			fmt.Sprintf("FileDiff: staged copy of %s does not match source (size/mtime mismatch)", src), nil).
			WithDetail("path", src)
	}

	return nil
}
