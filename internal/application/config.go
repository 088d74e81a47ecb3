package application

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-catsurv/internal/domain"
	"github.com/ahrav/go-catsurv/internal/ports"
)

// CatFile is the YAML form of a session configuration and the primary
// configuration entry point of the CLI.
type CatFile struct {
	// Model is the IRT family: ltm, tpm, grm or gpcm.
	Model string `yaml:"model" validate:"required,irtmodel"`
	// Estimation is the ability estimator: EAP, MAP, MLE or WLE.
	Estimation string `yaml:"estimation" validate:"required,estimation"`
	// EstimationDefault is used in place of MLE or WLE while nothing is
	// answered or every answer is extreme. Defaults to EAP.
	EstimationDefault string `yaml:"estimation_default,omitempty" validate:"omitempty,estimationdefault"`
	// Selection is the item selection criterion.
	Selection string `yaml:"selection" validate:"required,selection"`
	// Z scales the MFII window. Defaults to 0.9.
	Z float64 `yaml:"z,omitempty" validate:"omitempty,gt=0,finite"`
	// Prior is the ability prior.
	Prior PriorFile `yaml:"prior" validate:"required"`
	// Stopping holds the optional stopping rules.
	Stopping StoppingFile `yaml:"stopping"`
	// Items is the calibrated item bank.
	Items []ItemFile `yaml:"items" validate:"required,min=1,dive"`
	// Answers holds one response per item; null marks an unanswered item.
	// When omitted every item is unanswered.
	Answers []*int `yaml:"answers,omitempty"`
}

// PriorFile names the prior family and its two parameters.
type PriorFile struct {
	Name   string    `yaml:"name" validate:"required,priorname"`
	Params []float64 `yaml:"params" validate:"len=2,dive,finite"`
}

// StoppingFile holds the optional stopping thresholds and overrides. An
// omitted field is unset.
type StoppingFile struct {
	LengthThreshold *float64 `yaml:"length_threshold,omitempty" validate:"omitempty,min=0"`
	SEThreshold     *float64 `yaml:"se_threshold,omitempty" validate:"omitempty,gt=0"`
	InfoThreshold   *float64 `yaml:"info_threshold,omitempty" validate:"omitempty,min=0"`
	GainThreshold   *float64 `yaml:"gain_threshold,omitempty" validate:"omitempty,min=0"`
	LengthOverride  *float64 `yaml:"length_override,omitempty" validate:"omitempty,min=0"`
	GainOverride    *float64 `yaml:"gain_override,omitempty" validate:"omitempty,min=0"`
}

// ItemFile holds the parameters of one item.
type ItemFile struct {
	Name           string    `yaml:"name,omitempty" validate:"max=255"`
	Discrimination float64   `yaml:"discrimination" validate:"finite"`
	Difficulty     []float64 `yaml:"difficulty" validate:"required,min=1,dive,finite"`
	Guessing       float64   `yaml:"guessing,omitempty" validate:"min=0,lt=1"`
}

// ToConfig converts the file into a session configuration. Names are
// normalised and defaults applied; the file itself is not modified.
func (f *CatFile) ToConfig() (domain.CatConfig, error) {
	model, err := ParseModel(f.Model)
	if err != nil {
		return domain.CatConfig{}, err
	}

	items := make([]domain.Item, len(f.Items))
	for i, it := range f.Items {
		items[i] = domain.Item{
			Name:           it.Name,
			Discrimination: it.Discrimination,
			Difficulty:     slices.Clone(it.Difficulty),
			Guessing:       it.Guessing,
		}
	}

	var answers []int
	if f.Answers != nil {
		answers = make([]int, len(f.Answers))
		for i, a := range f.Answers {
			answers[i] = domain.Unanswered
			if a != nil {
				answers[i] = *a
			}
		}
	}

	var params [2]float64
	copy(params[:], f.Prior.Params)

	z := f.Z
	if z == 0 {
		z = domain.DefaultZ
	}
	estimationDefault := f.EstimationDefault
	if estimationDefault == "" {
		estimationDefault = string(domain.EstimationEAP)
	}

	return domain.CatConfig{
		Model:             model,
		Items:             items,
		Answers:           answers,
		Estimation:        upperCaser.String(f.Estimation),
		EstimationDefault: upperCaser.String(estimationDefault),
		Selection:         upperCaser.String(f.Selection),
		PriorName:         upperCaser.String(f.Prior.Name),
		PriorParams:       params,
		StoppingRules:     f.Stopping.toRules(),
		Z:                 z,
	}, nil
}

func (s StoppingFile) toRules() domain.StoppingRules {
	val := func(p *float64) float64 {
		if p == nil {
			return domain.Unset
		}
		return *p
	}
	return domain.StoppingRules{
		LengthThreshold: val(s.LengthThreshold),
		SEThreshold:     val(s.SEThreshold),
		InfoThreshold:   val(s.InfoThreshold),
		GainThreshold:   val(s.GainThreshold),
		LengthOverride:  val(s.LengthOverride),
		GainOverride:    val(s.GainOverride),
	}
}

// ConfigLoader parses, validates and caches session files. Files are
// cached by the SHA256 of their normalised content, and concurrent loads of
// the same content are compiled once.
type ConfigLoader struct {
	validator *validator.Validate

	// cache maps a content hash to a validated file.
	// WARNING: cached files are shared and MUST NOT be mutated.
	cache   map[string]*CatFile
	cacheMu sync.RWMutex
	sf      singleflight.Group
}

// NewConfigLoader creates a loader with the custom validation rules
// registered.
func NewConfigLoader() (*ConfigLoader, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := registerCustomValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}
	return &ConfigLoader{validator: v, cache: make(map[string]*CatFile)}, nil
}

// LoadFile reads and validates a session file.
func (cl *ConfigLoader) LoadFile(path string) (*CatFile, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ports.ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return cl.load(data)
}

// Load reads and validates a session file from r.
func (cl *ConfigLoader) Load(r io.Reader) (*CatFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return cl.load(data)
}

func (cl *ConfigLoader) load(data []byte) (*CatFile, error) {
	file, err := parseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	hash, err := configHash(file)
	if err != nil {
		return nil, err
	}

	v, err, _ := cl.sf.Do(hash, func() (any, error) {
		if cached, ok := cl.cached(hash); ok {
			return cached, nil
		}
		if err := cl.Validate(file); err != nil {
			return nil, err
		}
		cl.cacheMu.Lock()
		cl.cache[hash] = file
		cl.cacheMu.Unlock()
		return file, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*CatFile), nil
}

func (cl *ConfigLoader) cached(hash string) (*CatFile, bool) {
	cl.cacheMu.RLock()
	defer cl.cacheMu.RUnlock()
	f, ok := cl.cache[hash]
	return f, ok
}

// ClearCache drops every cached file.
func (cl *ConfigLoader) ClearCache() {
	cl.cacheMu.Lock()
	defer cl.cacheMu.Unlock()
	cl.cache = make(map[string]*CatFile)
}

// Validate runs the struct rules and then the semantic checks that need
// more than one field. Unknown names come back as *domain.ConfigError with a
// suggestion; everything else is collected into one *domain.ValidationError.
func (cl *ConfigLoader) Validate(f *CatFile) error {
	if err := cl.validator.Struct(f); err != nil {
		return translateValidationErrors(err)
	}
	return validateSemantics(f)
}

// parseYAML decodes strictly so that misspelled keys are not ignored.
func parseYAML(data []byte) (*CatFile, error) {
	var f CatFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}
	return &f, nil
}

// configHash hashes the re-encoded file so formatting differences do not
// defeat the cache.
func configHash(f *CatFile) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return "", fmt.Errorf("failed to encode config for hashing: %w", err)
	}
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

var (
	defaultLoader     *ConfigLoader
	defaultLoaderErr  error
	defaultLoaderOnce sync.Once
)

// LoadConfigFile loads a session file with a shared loader and converts it
// into a session configuration.
func LoadConfigFile(path string) (domain.CatConfig, error) {
	defaultLoaderOnce.Do(func() { defaultLoader, defaultLoaderErr = NewConfigLoader() })
	if defaultLoaderErr != nil {
		return domain.CatConfig{}, defaultLoaderErr
	}
	f, err := defaultLoader.LoadFile(path)
	if err != nil {
		return domain.CatConfig{}, err
	}
	return f.ToConfig()
}
