package packager

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ZipDir writes the contents of srcDir to w as a zip archive. Entry names are
// relative to srcDir with forward slashes. Paths rejected by ignore are left
// out; a nil matcher keeps everything.
func ZipDir(ctx context.Context, srcDir string, w io.Writer, ignore *IgnoreMatcher) error {
	archive := zip.NewWriter(w)

	walkErr := filepath.WalkDir(srcDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if err = ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return fmt.Errorf("relative path of %s: %w", path, err)
		}

		if rel == "." {
			return nil
		}

		if ignore.Ignored(rel, entry.IsDir()) {
			if entry.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		return addZipEntry(archive, path, filepath.ToSlash(rel), entry)
	})
	if walkErr != nil {
		_ = archive.Close()

		return fmt.Errorf("zip %s: %w", srcDir, walkErr)
	}

	if err := archive.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}

	return nil
}

// ZipDirToFile writes the archive of srcDir to dst, creating its folder.
func ZipDirToFile(ctx context.Context, srcDir, dst string, ignore *IgnoreMatcher) error {
	if err := os.MkdirAll(filepath.Dir(dst), dirMode); err != nil {
		return fmt.Errorf("create archive folder: %w", err)
	}

	file, err := os.Create(filepath.Clean(dst))
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	if err = ZipDir(ctx, srcDir, file, ignore); err != nil {
		_ = file.Close()
		_ = os.Remove(dst)

		return err
	}

	return file.Close()
}

func addZipEntry(archive *zip.Writer, path, name string, entry fs.DirEntry) error {
	info, err := entry.Info()
	if err != nil {
		return err
	}

	// Symlinks and other special files are not packaged.
	if !info.IsDir() && !info.Mode().IsRegular() {
		return nil
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("zip header for %s: %w", path, err)
	}

	header.Name = name

	if info.IsDir() {
		header.Name += "/"
		header.Method = zip.Store

		_, err = archive.CreateHeader(header)

		return err
	}

	header.Method = zip.Deflate

	writer, err := archive.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}

	defer file.Close()

	if _, err = io.Copy(writer, file); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}

	return nil
}
