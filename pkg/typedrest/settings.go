package typedrest

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"

	"github.com/pavelpascari/typedrest/pkg/backend"
	"github.com/pavelpascari/typedrest/pkg/backend/stdjson"
)

// ComplianceFlag names one declaration-time HTTP-semantics check that can
// be disabled per deployment.
type ComplianceFlag string

const (
	// CheckBodylessMethods rejects body components on GET/HEAD/DELETE and
	// other bodyless methods.
	CheckBodylessMethods ComplianceFlag = "bodyless_methods"
	// CheckRendererDeclared rejects endpoints with an empty renderer set.
	CheckRendererDeclared ComplianceFlag = "renderer_declared"
)

// Settings is the process-wide configuration. It has an explicit
// Init/Reload lifecycle instead of implicit first-access caching, so tests
// can reset it deterministically.
type Settings struct {
	// ValidateResponses enables post-handler response schema validation.
	// Disabling it is a deliberate, non-default choice that shifts schema
	// correctness onto handler authors.
	ValidateResponses bool `env:"TYPEDREST_VALIDATE_RESPONSES" envDefault:"true"`

	// ResponseMismatchStatus is sent when a handler's return value violates
	// its declared schema. 500 treats it as a server contract violation;
	// some deployments prefer 422.
	ResponseMismatchStatus int `env:"TYPEDREST_RESPONSE_MISMATCH_STATUS" envDefault:"500"`

	// CacheCapacity bounds the compiled-artifact cache.
	CacheCapacity uint64 `env:"TYPEDREST_CACHE_CAPACITY" envDefault:"512"`

	// Parsers and Renderers are the global default codec sets, used by
	// endpoints that do not declare their own and by internal utilities
	// producing ad-hoc responses outside endpoint context. Order is the
	// default priority.
	Parsers   []Parser        `env:"-"`
	Renderers []Renderer      `env:"-"`
	Backend   backend.Backend `env:"-"`

	// GlobalErrorHandler is the last-resort error handler.
	GlobalErrorHandler GlobalErrorHandler `env:"-"`

	// ComplianceDisables turns off specific declaration-time checks.
	ComplianceDisables map[ComplianceFlag]bool `env:"-"`

	Logger logrus.FieldLogger `env:"-"`
}

// LoadSettings reads settings from the environment and fills the
// non-serializable defaults.
func LoadSettings() (*Settings, error) {
	s := &Settings{}
	if err := env.Parse(s); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	s.applyDefaults()
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// DefaultSettings returns settings with every default applied and no
// environment involved.
func DefaultSettings() *Settings {
	s := &Settings{
		ValidateResponses:      true,
		ResponseMismatchStatus: http.StatusInternalServerError,
		CacheCapacity:          DefaultCacheCapacity,
	}
	s.applyDefaults()
	return s
}

func (s *Settings) applyDefaults() {
	if s.Backend == nil {
		s.Backend = stdjson.New()
	}
	if len(s.Parsers) == 0 {
		s.Parsers = []Parser{NewJSONCodec(s.Backend)}
	}
	if len(s.Renderers) == 0 {
		s.Renderers = []Renderer{NewJSONCodec(s.Backend)}
	}
	if s.Logger == nil {
		s.Logger = logrus.StandardLogger()
	}
	if s.GlobalErrorHandler == nil {
		s.GlobalErrorHandler = DefaultGlobalErrorHandler(s.ResponseMismatchStatus, s.Logger)
	}
	if s.ComplianceDisables == nil {
		s.ComplianceDisables = make(map[ComplianceFlag]bool)
	}
}

func (s *Settings) validate() error {
	if s.ResponseMismatchStatus != http.StatusInternalServerError &&
		s.ResponseMismatchStatus != http.StatusUnprocessableEntity {
		return fmt.Errorf("response mismatch status must be 500 or 422, got %d", s.ResponseMismatchStatus)
	}
	return nil
}

// checkEnabled reports whether a declaration-time compliance check runs.
func (s *Settings) checkEnabled(flag ComplianceFlag) bool {
	return !s.ComplianceDisables[flag]
}

var (
	currentSettings   *Settings
	currentSettingsMu sync.RWMutex
)

// Init installs the process-wide settings. Call once at startup, before
// registering endpoints. Invalid settings are a startup programmer error
// and panic.
func Init(s *Settings) {
	if s == nil {
		s = DefaultSettings()
	} else {
		s.applyDefaults()
		if err := s.validate(); err != nil {
			panic(err)
		}
	}
	currentSettingsMu.Lock()
	currentSettings = s
	currentSettingsMu.Unlock()
}

// Current returns the process-wide settings, installing defaults when Init
// was never called.
func Current() *Settings {
	currentSettingsMu.RLock()
	s := currentSettings
	currentSettingsMu.RUnlock()
	if s != nil {
		return s
	}
	Init(DefaultSettings())
	return Current()
}

// Reload replaces the process-wide settings. Routers created before the
// reload keep the settings they were built with; the documented
// invalidation entry point for their caches is Router.InvalidateArtifacts.
func Reload(s *Settings) {
	Init(s)
}

// ResetSettings restores the uninitialized state. Test helper.
func ResetSettings() {
	currentSettingsMu.Lock()
	currentSettings = nil
	currentSettingsMu.Unlock()
}
