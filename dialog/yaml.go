package dialog

import (
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/tassie-labs/expect/pattern"
)

// yamlDialog mirrors the on-disk shape of a dialog definition file,
// decoded with gopkg.in/yaml.v3 the way egg/config.go decodes wingthing's
// own YAML configuration.
type yamlDialog struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Entry       string            `yaml:"entry"`
	Variables   map[string]string `yaml:"variables"`
	Steps       []yamlStep        `yaml:"steps"`
}

type yamlStep struct {
	Name              string            `yaml:"name"`
	Expect            string            `yaml:"expect"`
	ExpectRegex       string            `yaml:"expect_regex"`
	ExpectGlob        string            `yaml:"expect_glob"`
	Send              string            `yaml:"send"`
	RawSend           bool              `yaml:"raw_send"`
	Control           string            `yaml:"control"`
	TimeoutSeconds    float64           `yaml:"timeout_seconds"`
	ContinueOnTimeout bool              `yaml:"continue_on_timeout"`
	Next              string            `yaml:"next"`
	Branches          map[string]string `yaml:"branches"`
}

// LoadYAML parses a dialog definition from YAML bytes.
func LoadYAML(data []byte) (*Dialog, error) {
	var y yamlDialog
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, fmt.Errorf("dialog: parse yaml: %w", err)
	}
	d := New(y.Name)
	d.Description = y.Description
	d.Entry = y.Entry
	for k, v := range y.Variables {
		d.Var(k, v)
	}
	for _, ys := range y.Steps {
		step := Step{
			Name:              ys.Name,
			Send:              ys.Send,
			RawSend:           ys.RawSend,
			Control:           ys.Control,
			ContinueOnTimeout: ys.ContinueOnTimeout,
			Next:              ys.Next,
			Branches:          ys.Branches,
		}
		if ys.TimeoutSeconds > 0 {
			step.Timeout = time.Duration(ys.TimeoutSeconds * float64(time.Second))
		}
		switch {
		case ys.ExpectRegex != "":
			p := pattern.NewRegex(ys.ExpectRegex)
			step.Expect = &p
		case ys.ExpectGlob != "":
			p := pattern.NewGlob(ys.ExpectGlob)
			step.Expect = &p
		case ys.Expect != "":
			p := pattern.NewLiteral(ys.Expect)
			step.Expect = &p
		}
		d.Step(step)
	}
	return d, nil
}

// LoadYAMLFile reads and parses a dialog definition file.
func LoadYAMLFile(path string) (*Dialog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dialog: read %s: %w", path, err)
	}
	return LoadYAML(data)
}

// Watcher reloads a dialog definition from disk whenever it changes,
// publishing the new value on Dialogs. It is grounded on the fsnotify
// dependency the retrieved example pack declares (wingthing's go.mod)
// for exactly this watch-file-and-republish shape.
type Watcher struct {
	Dialogs <-chan *Dialog
	Errors  <-chan error

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// WatchYAMLFile starts watching path for write and create events, parsing
// and publishing each successful reload. Other events (rename, remove,
// chmod) are ignored. Call Close to stop.
func WatchYAMLFile(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("dialog: new watcher: %w", err)
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, fmt.Errorf("dialog: watch %s: %w", path, err)
	}

	dialogs := make(chan *Dialog, 1)
	errs := make(chan error, 1)
	done := make(chan struct{})

	w := &Watcher{Dialogs: dialogs, Errors: errs, watcher: fw, done: done}

	go func() {
		defer close(dialogs)
		defer close(errs)
		for {
			select {
			case <-done:
				return
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				d, err := LoadYAMLFile(path)
				if err != nil {
					select {
					case errs <- err:
					default:
					}
					continue
				}
				select {
				case dialogs <- d:
				default:
					<-dialogs
					dialogs <- d
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				select {
				case errs <- err:
				default:
				}
			}
		}
	}()

	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
