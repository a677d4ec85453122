// Package mmfile gives read-only access to a hive file's bytes, memory-mapped
// where the platform allows it.
package mmfile

import "sync"

// File holds the contents of an opened file until Close.
type File struct {
	data    []byte
	mapped  bool
	once    sync.Once
	release func() error
	err     error
}

// Bytes returns the file contents. The slice must not be written to and is
// invalid after Close.
func (f *File) Bytes() []byte {
	return f.data
}

// Mapped reports whether Bytes is backed by a memory mapping.
func (f *File) Mapped() bool {
	return f.mapped
}

// Close releases the mapping. Calling it more than once is safe.
func (f *File) Close() error {
	f.once.Do(func() {
		if f.release != nil {
			f.err = f.release()
		}
		f.data = nil
	})
	return f.err
}

func heapFile(data []byte) *File {
	return &File{data: data}
}
