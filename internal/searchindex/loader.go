package searchindex

import "sync"

// Loader reads the index on first use and keeps it for the life of the process.
type Loader struct {
	path  string
	once  sync.Once
	index *Index
	err   error
}

func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

func (l *Loader) Get() (*Index, error) {
	l.once.Do(func() {
		l.index, l.err = Load(l.path)
	})
	return l.index, l.err
}
