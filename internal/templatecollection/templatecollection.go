// Package templatecollection loads page templates. Each page_*.gohtml file
// is parsed together with layout.gohtml and every shared_*.gohtml file, and
// is executed by its base name, e.g. "page_index".
package templatecollection

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
)

type Collection interface {
	ExecuteTemplate(wr io.Writer, name string, data interface{}) error
}

var ErrTemplateNotFound = fmt.Errorf("template not found")

// New returns a Live collection when live is set, Cached otherwise.
func New(fileSystem fs.FS, funcs template.FuncMap, live bool) (Collection, error) {
	if live {
		return NewLive(fileSystem, funcs)
	}

	return NewCached(fileSystem, funcs)
}

func parsePage(fileSystem fs.FS, funcs template.FuncMap, name string) (*template.Template, error) {
	tpl := template.New(name)
	if funcs != nil {
		tpl = tpl.Funcs(funcs)
	}

	var fileNames []string

	for _, pattern := range expandGlobs([]string{name + ".gohtml", "layout.gohtml", "shared_*.gohtml"}) {
		names, err := fs.Glob(fileSystem, pattern)
		if err != nil {
			return nil, fmt.Errorf("could not get names for pattern %q: %w", pattern, err)
		}

		fileNames = append(fileNames, names...)
	}

	if len(fileNames) == 0 || !strings.HasSuffix(path.Base(fileNames[0]), name+".gohtml") {
		return nil, fmt.Errorf("%q: %w", name, ErrTemplateNotFound)
	}

	tpl, err := tpl.ParseFS(fileSystem, fileNames...)
	if err != nil {
		return nil, fmt.Errorf("could not construct template: %w", err)
	}

	return tpl, nil
}

// Pages lists the page names found in fileSystem, sorted.
func Pages(fileSystem fs.FS) ([]string, error) {
	var names []string

	for _, pattern := range expandGlobs([]string{"page_*.gohtml"}) {
		files, err := fs.Glob(fileSystem, pattern)
		if err != nil {
			return nil, fmt.Errorf("templatecollection.Pages: %w", err)
		}

		for _, file := range files {
			names = append(names, strings.TrimSuffix(path.Base(file), ".gohtml"))
		}
	}

	sort.Strings(names)

	return names, nil
}

type Cached struct {
	l sync.RWMutex
	m map[string]*template.Template
}

// NewCached parses every page up front, so a broken template stops the
// program from starting rather than failing a request.
func NewCached(fileSystem fs.FS, funcs template.FuncMap) (*Cached, error) {
	names, err := Pages(fileSystem)
	if err != nil {
		return nil, fmt.Errorf("templatecollection.NewCached: %w", err)
	}

	c := Cached{m: make(map[string]*template.Template)}

	for _, name := range names {
		tpl, err := parsePage(fileSystem, funcs, name)
		if err != nil {
			return nil, fmt.Errorf("templatecollection.NewCached: %s: %w", name, err)
		}

		c.m[name] = tpl
	}

	return &c, nil
}

func (c *Cached) ExecuteTemplate(wr io.Writer, name string, data interface{}) error {
	c.l.RLock()
	tpl, ok := c.m[name]
	c.l.RUnlock()

	if !ok {
		return fmt.Errorf("templatecollection.Cached.ExecuteTemplate: %q: %w", name, ErrTemplateNotFound)
	}

	if err := tpl.ExecuteTemplate(wr, name, data); err != nil {
		return fmt.Errorf("templatecollection.Cached.ExecuteTemplate: %w", err)
	}

	return nil
}

// Live parses on every execution, for editing templates without a restart.
type Live struct {
	fs fs.FS
	m  template.FuncMap
}

func NewLive(fileSystem fs.FS, funcs template.FuncMap) (*Live, error) {
	return &Live{fs: fileSystem, m: funcs}, nil
}

func (l *Live) ExecuteTemplate(wr io.Writer, name string, data interface{}) error {
	tpl, err := parsePage(l.fs, l.m, name)
	if err != nil {
		return fmt.Errorf("templatecollection.Live.ExecuteTemplate: %w", err)
	}

	if err := tpl.ExecuteTemplate(wr, name, data); err != nil {
		return fmt.Errorf("templatecollection.Live.ExecuteTemplate: %w", err)
	}

	return nil
}

func expandGlobs(a []string) []string {
	var r []string

	for _, e := range a {
		r = append(r, e, "*/"+e)
	}

	return r
}
