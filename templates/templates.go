package templates

import (
	"bufio"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"regexp"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tdewolff/minify"

	"github.com/ethpandaops/suiscope/utils"
)

var logger = logrus.StandardLogger().WithField("module", "templates")

var (
	//go:embed *
	Files embed.FS
)

var templateCache = make(map[string]*template.Template)
var templateCacheMux = &sync.RWMutex{}
var templateFuncs = utils.GetTemplateFuncs()

var (
	minifyNewlines = regexp.MustCompile(`([ \t]+)?[\r\n]+`)
	minifySpaces   = regexp.MustCompile(`([ \t])[ \t]+`)
)

func GetTemplate(files ...string) *template.Template {
	name := strings.Join(files, "-")

	if utils.Config.Frontend.Debug {
		templateFiles := make([]string, len(files))
		for i := range files {
			if strings.HasPrefix(files[i], "templates") {
				templateFiles[i] = files[i]
			} else {
				templateFiles[i] = "templates/" + files[i]
			}
		}
		return template.Must(template.New(name).Funcs(templateFuncs).ParseFiles(templateFiles...))
	}

	templateCacheMux.RLock()
	if templateCache[name] != nil {
		defer templateCacheMux.RUnlock()
		return templateCache[name]
	}
	templateCacheMux.RUnlock()

	tmpl := template.New(name).Funcs(templateFuncs)
	tmpl = template.Must(parseTemplateFiles(tmpl, readFileFS(Files), files...))
	templateCacheMux.Lock()
	defer templateCacheMux.Unlock()
	templateCache[name] = tmpl
	return templateCache[name]
}

func readFileFS(fsys fs.FS) func(string) (string, []byte, error) {
	return func(file string) (name string, b []byte, err error) {
		name = path.Base(file)
		b, err = fs.ReadFile(fsys, file)
		if err != nil {
			return
		}

		if utils.Config.Frontend.Minify {
			m := minify.New()
			m.AddFunc("text/html", minifyTemplate)
			b, err = m.Bytes("text/html", b)
			if err != nil {
				return name, nil, fmt.Errorf("error minifying template %v: %w", file, err)
			}
		}
		return
	}
}

func minifyTemplate(m *minify.M, w io.Writer, r io.Reader, _ map[string]string) error {
	// remove newlines and spaces
	rb := bufio.NewReader(r)
	for {
		line, err := rb.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		line = minifyNewlines.ReplaceAllString(line, "")
		line = minifySpaces.ReplaceAllString(line, " ")
		if _, errws := io.WriteString(w, line); errws != nil {
			return errws
		}
		if err == io.EOF {
			break
		}
	}
	return nil
}

func parseTemplateFiles(t *template.Template, readFile func(string) (string, []byte, error), filenames ...string) (*template.Template, error) {
	for _, filename := range filenames {
		name, b, err := readFile(filename)
		if err != nil {
			return nil, err
		}
		var tmpl *template.Template
		if name == t.Name() {
			tmpl = t
		} else {
			tmpl = t.New(name)
		}
		_, err = tmpl.Parse(string(b))
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}

func GetTemplateNames() []string {
	files, _ := getFileSysNames(fs.FS(Files), ".")
	return files
}

// CompileTimeCheck parses every embedded template file.
func CompileTimeCheck(fsys fs.FS) error {
	files, err := getFileSysNames(fsys, ".")
	if err != nil {
		return err
	}
	for _, file := range files {
		_, err := parseTemplateFiles(template.New(file).Funcs(templateFuncs), readFileFS(fsys), file)
		if err != nil {
			return fmt.Errorf("template %v: %w", file, err)
		}
	}
	logger.Infof("compile time check completed (%v templates)", len(files))

	return nil
}

func getFileSysNames(fsys fs.FS, dirname string) ([]string, error) {
	entry, err := fs.ReadDir(fsys, dirname)
	if err != nil {
		return nil, fmt.Errorf("error reading embed directory, err: %w", err)
	}

	files := make([]string, 0, 20)
	for _, f := range entry {
		filePath := path.Join(dirname, f.Name())
		if f.IsDir() {
			names, err := getFileSysNames(fsys, filePath)
			if err != nil {
				return nil, err
			}
			files = append(files, names...)
		} else if strings.HasSuffix(f.Name(), ".html") {
			files = append(files, filePath)
		}
	}

	return files, nil
}
