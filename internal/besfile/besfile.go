// Package besfile loads BES files from disk for the decoder.
package besfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/OpenVietcong/blender-plugin-vietcong/pkg/bes"
)

// Ext is the file extension of BES scenes, compared case-insensitively.
const Ext = ".bes"

var ErrTooLarge = errors.New("besfile: file exceeds size limit")

type File struct {
	Path    string
	Data    []byte
	mmapped bool
}

// Open maps path read-only. If mmap is unavailable it falls back to
// ReadAt-based loading. maxSize <= 0 disables the size limit.
// The returned file must be closed to release any mapping.
func Open(path string, maxSize int64) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !stat.Mode().IsRegular() {
		return nil, fmt.Errorf("besfile: %s is not a regular file", path)
	}
	size64 := stat.Size()
	if maxSize > 0 && size64 > maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrTooLarge, path, size64, maxSize)
	}
	if size64 > int64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("%w: %s cannot be addressed", ErrTooLarge, path)
	}
	size := int(size64)
	if size == 0 {
		return &File{Path: path, Data: []byte{}}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		return &File{Path: path, Data: data, mmapped: true}, nil
	}

	data, err = readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	return &File{Path: path, Data: data}, nil
}

// OpenReaderAt loads size bytes from r without mmap.
func OpenReaderAt(r io.ReaderAt, size, maxSize int64) (*File, error) {
	if size < 0 {
		return nil, fmt.Errorf("besfile: negative size %d", size)
	}
	if maxSize > 0 && size > maxSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, size, maxSize)
	}
	data, err := readAllAt(r, int(size))
	if err != nil {
		return nil, err
	}
	return &File{Data: data}, nil
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return out, nil
}

// Decode decodes the loaded bytes. The scene does not alias the mapping,
// so it stays valid after Close.
func (f *File) Decode(opts ...bes.Option) (*bes.Scene, error) {
	return bes.DecodeScene(f.Data, opts...)
}

func (f *File) Close() error {
	if f == nil || f.Data == nil {
		return nil
	}
	var err error
	if f.mmapped {
		err = unix.Munmap(f.Data)
	}
	f.Data = nil
	f.mmapped = false
	return err
}

// Load opens, decodes and closes path.
func Load(path string, maxSize int64, opts ...bes.Option) (*bes.Scene, error) {
	f, err := Open(path, maxSize)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return f.Decode(opts...)
}

// IsBES reports whether name carries the BES extension.
func IsBES(name string) bool {
	return strings.EqualFold(filepath.Ext(name), Ext)
}

// Collect expands paths into BES files. Directories are walked recursively;
// plain files are kept whatever their extension.
func Collect(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && IsBES(d.Name()) {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
