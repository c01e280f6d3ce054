// Package config loads aggregate metadata from a directory of YAML files
// and vets each file against an embedded CUE schema before constructing
// the immutable aggregate configurations.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"

	_ "embed"

	"gopkg.in/yaml.v3"

	"github.com/qembot/qembot/internal/aggregate"
)

//go:embed schema.cue
var schemaSrc string

// LoadMode controls how errors are handled during metadata loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadError is a configuration error tied to one metadata file.
// Configuration errors are fatal at load time; nothing downstream ever
// sees a half-parsed aggregate.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// fileSpec mirrors the YAML layout of one metadata file. Sections other
// than the ones named here belong to other bot subsystems and are ignored.
type fileSpec struct {
	Product   string         `yaml:"product"`
	Settings  map[string]any `yaml:"settings"`
	Aggregate *aggregateSpec `yaml:"aggregate"`
}

type aggregateSpec struct {
	Flavor     string            `yaml:"FLAVOR"`
	Archs      []string          `yaml:"archs"`
	Onetime    bool              `yaml:"onetime"`
	TestIssues map[string]string `yaml:"test_issues"`
}

// Load reads every *.yml/*.yaml file in dir and returns the aggregate
// configurations, sorted by product for a stable scheduling order.
//
// Files without an aggregate section are skipped: the metadata directory
// also drives subsystems this bot does not schedule. A file that has an
// aggregate section but fails schema vetting or template parsing is a
// configuration error.
func Load(dir string, mode LoadMode) ([]aggregate.Config, []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("reading metadata dir: %w", err)}
	}

	schema, err := compileSchema()
	if err != nil {
		return nil, []error{err}
	}

	var (
		configs []aggregate.Config
		errs    []error
	)
	for _, entry := range entries {
		if entry.IsDir() || !isMetadataFile(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		cfg, skip, err := loadFile(path, schema)
		if err != nil {
			if mode == LoadModeFailFast {
				return nil, []error{err}
			}
			errs = append(errs, err)
			continue
		}
		if skip {
			continue
		}
		configs = append(configs, cfg)
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].Product < configs[j].Product })

	if len(errs) > 0 {
		return nil, errs
	}
	return configs, nil
}

func compileSchema() (cue.Value, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compiling metadata schema: %w", err)
	}
	schema := v.LookupPath(cue.ParsePath("#Metadata"))
	if err := schema.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compiling metadata schema: %w", err)
	}
	return schema, nil
}

func loadFile(path string, schema cue.Value) (aggregate.Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return aggregate.Config{}, false, &LoadError{File: path, Message: err.Error()}
	}

	if err := cueyaml.Validate(data, schema); err != nil {
		return aggregate.Config{}, false, &LoadError{File: path, Message: err.Error()}
	}

	var spec fileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return aggregate.Config{}, false, &LoadError{File: path, Message: err.Error()}
	}

	if spec.Aggregate == nil {
		return aggregate.Config{}, true, nil
	}

	cfg, err := buildConfig(path, spec)
	if err != nil {
		return aggregate.Config{}, false, err
	}
	return cfg, false, nil
}

func buildConfig(path string, spec fileSpec) (aggregate.Config, error) {
	agg := spec.Aggregate

	if len(agg.TestIssues) == 0 {
		return aggregate.Config{}, &LoadError{File: path, Message: "aggregate has no test_issues"}
	}

	templates := make(map[string]aggregate.TemplateRef, len(agg.TestIssues))
	for name, ref := range agg.TestIssues {
		// Split at the last colon: products may contain colons, versions
		// never do. Mirrors how dashboard channels are parsed.
		product, version := "", ""
		if i := strings.LastIndex(ref, ":"); i >= 0 {
			product, version = ref[:i], ref[i+1:]
		}
		if product == "" || version == "" {
			return aggregate.Config{}, &LoadError{
				File:    path,
				Message: fmt.Sprintf("test_issues[%s]: %q is not product:version", name, ref),
			}
		}
		templates[name] = aggregate.TemplateRef{Product: product, Version: version}
	}

	settings := make(map[string]string, len(spec.Settings))
	for k, v := range spec.Settings {
		settings[k] = fmt.Sprint(v)
	}

	product := spec.Product
	if product == "" {
		product = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return aggregate.Config{
		Product:       product,
		Flavor:        agg.Flavor,
		Archs:         append([]string(nil), agg.Archs...),
		Onetime:       agg.Onetime,
		TestTemplates: templates,
		Settings:      settings,
	}, nil
}

func isMetadataFile(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yml" || ext == ".yaml"
}
