package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// Filesystem confines every path to root using openat2 RESOLVE_IN_ROOT.
type Filesystem struct {
	root string
	dfd  int
}

func newFilesystem(root string) (*Filesystem, error) {
	dfd, err := unix.Open(root, unix.O_DIRECTORY|unix.O_PATH|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	return &Filesystem{
		root: root,
		dfd:  dfd,
	}, nil
}

func (f *Filesystem) Close() error {
	return unix.Close(f.dfd)
}

func (f *Filesystem) Sub(dir string) (Storage, error) {
	if err := f.mkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return newFilesystem(filepath.Join(f.root, dir))
}

func (f *Filesystem) openFile(name string, flag int, perm fs.FileMode) (*os.File, error) {
	// openat2 RESOLVE_IN_ROOT - so symlinks still work
	for {
		how := unix.OpenHow{
			Flags:   uint64(flag) | unix.O_CLOEXEC,
			Mode:    uint64(perm),
			Resolve: unix.RESOLVE_IN_ROOT,
		}
		fd, err := unix.Openat2(f.dfd, name, &how)
		if err != nil {
			// need to check for EINTR - Go issues 11180, 39237
			// also EAGAIN in case of unsafe race
			if err == unix.EINTR || err == unix.EAGAIN {
				continue
			}
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}

		return os.NewFile(uintptr(fd), name), nil
	}
}

func (f *Filesystem) openParentOf(name string) (*os.File, error) {
	return f.openFile(filepath.Dir(name), unix.O_DIRECTORY|unix.O_PATH, 0)
}

func (f *Filesystem) mkdir(name string, perm fs.FileMode) error {
	parent, err := f.openParentOf(name)
	if err != nil {
		return err
	}
	defer parent.Close()

	return unix.Mkdirat(int(parent.Fd()), filepath.Base(name), uint32(perm))
}

func (f *Filesystem) mkdirAll(path string, perm fs.FileMode) error {
	if path == "" || path == "." || path == "/" {
		return nil
	}

	err := f.mkdir(path, perm)
	if err == nil || errors.Is(err, unix.EEXIST) {
		return nil
	}

	err = f.mkdirAll(filepath.Dir(path), perm)
	if err != nil {
		return err
	}

	err = f.mkdir(path, perm)
	if err != nil && !errors.Is(err, unix.EEXIST) {
		return err
	}
	return nil
}

func (f *Filesystem) ReadFile(_ context.Context, name string) ([]byte, error) {
	file, err := f.openFile(name, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}

func (f *Filesystem) WriteFile(_ context.Context, name string, data []byte) error {
	if err := f.mkdirAll(filepath.Dir(name), 0755); err != nil {
		return fmt.Errorf("failed to create parent of %s: %w", name, err)
	}

	tmpName := filepath.Join(filepath.Dir(name), "."+filepath.Base(name)+"."+uuid.NewString()+".tmp")
	tmp, err := f.openFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}

	written, err := tmp.Write(data)
	if err == nil && written != len(data) {
		err = io.ErrShortWrite
	}
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = f.Remove(context.Background(), tmpName)
		return err
	}

	parent, err := f.openParentOf(name)
	if err != nil {
		_ = f.Remove(context.Background(), tmpName)
		return err
	}
	defer parent.Close()

	pfd := int(parent.Fd())
	err = unix.Renameat(pfd, filepath.Base(tmpName), pfd, filepath.Base(name))
	if err != nil {
		_ = f.Remove(context.Background(), tmpName)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

func (f *Filesystem) AppendFile(_ context.Context, name string, data []byte) (bool, error) {
	if err := f.mkdirAll(filepath.Dir(name), 0755); err != nil {
		return false, fmt.Errorf("failed to create parent of %s: %w", name, err)
	}

	created := true
	file, err := f.openFile(name, os.O_WRONLY|os.O_APPEND|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, unix.EEXIST) {
		created = false
		file, err = f.openFile(name, os.O_WRONLY|os.O_APPEND, 0)
	}
	if err != nil {
		return false, err
	}
	defer file.Close()

	written, err := file.Write(data)
	if err != nil {
		return created, err
	}
	if written != len(data) {
		return created, io.ErrShortWrite
	}
	return created, nil
}

func (f *Filesystem) List(_ context.Context, dir string) ([]string, error) {
	if dir == "" {
		dir = "."
	}
	file, err := f.openFile(dir, unix.O_DIRECTORY|os.O_RDONLY, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	defer file.Close()

	entries, err := file.ReadDir(0)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || entry.Name()[0] == '.' {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (f *Filesystem) Remove(_ context.Context, name string) error {
	// unlinkat has no RESOLVE_IN_ROOT, so resolve the parent first
	parent, err := f.openParentOf(name)
	if err != nil {
		return err
	}
	defer parent.Close()

	err = unix.Unlinkat(int(parent.Fd()), filepath.Base(name), 0)
	if err != nil {
		if errors.Is(err, unix.ENOENT) {
			return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrNotExist}
		}
		return err
	}
	return nil
}
