package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"blurcam/internal/logger"
)

// Setting keys as they appear in the settings file and control API.
const (
	KeyWidth               = "width"
	KeyHeight              = "height"
	KeyFPS                 = "fps"
	KeyConfidenceThreshold = "confidence_threshold"
	KeyTargetClasses       = "target_classes"
	KeyAutoRedact          = "auto_redact"
	KeyPreviewRaw          = "preview_raw"
	KeyOpenVocabulary      = "open_vocabulary"
	KeyCustomLabels        = "custom_labels"
)

// ErrUnknownKey is returned when setting a key the store does not have.
var ErrUnknownKey = errors.New("unknown setting")

// Store holds the current settings and persists every change to a JSON file.
// Write failures are logged, never returned.
type Store struct {
	path   string
	logger *logger.Logger

	// writeMu serializes updates and their delivery, so subscribers see
	// every snapshot in the order it was stored.
	writeMu sync.Mutex

	mu          sync.RWMutex
	current     Settings
	subscribers []func(Settings)
}

// errNoChange aborts an update without storing or notifying.
var errNoChange = errors.New("settings unchanged")

// NewStore loads settings from path. A missing file is created with
// defaults; an unreadable or corrupt file is logged and defaults are used.
func NewStore(path string, logger *logger.Logger) *Store {
	s := &Store{path: path, logger: logger, current: Defaults()}

	loaded, err := s.read()
	switch {
	case os.IsNotExist(errors.Cause(err)):
		s.logger.Info("Settings file %s not found, creating defaults", path)
		s.persist(s.current)
	case err != nil:
		s.logger.Error("Failed to load settings: %v", err)
	default:
		s.current = loaded
	}
	return s
}

// Path returns the settings file location.
func (s *Store) Path() string {
	return s.path
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Subscribe registers fn to receive every new settings value. fn may read
// the store but must not write to it.
func (s *Store) Subscribe(fn func(Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Set changes one key, converting value leniently.
func (s *Store) Set(key string, value interface{}) error {
	return s.Patch(map[string]interface{}{key: value})
}

// Patch changes several keys at once. Nothing changes if any key is
// unknown or any value invalid.
func (s *Store) Patch(values map[string]interface{}) error {
	return s.update(func(next *Settings) error {
		for key, value := range values {
			if err := apply(next, key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetCustomLabels parses comma-separated labels and stores them. It returns
// the stored list, which is never empty.
func (s *Store) SetCustomLabels(raw string) []string {
	labels := ParseLabels(raw)
	_ = s.update(func(next *Settings) error {
		next.CustomLabels = slices.Clone(labels)
		return nil
	})
	return labels
}

// Reset restores and persists the defaults.
func (s *Store) Reset() Settings {
	d := Defaults()
	_ = s.update(func(next *Settings) error {
		*next = d.Clone()
		return nil
	})
	return d
}

// Reload re-reads the settings file and publishes the result if it differs
// from the current settings.
func (s *Store) Reload() error {
	return s.update(func(next *Settings) error {
		loaded, err := s.read()
		if err != nil {
			return err
		}
		if loaded.Equal(*next) {
			return errNoChange
		}
		s.logger.Info("Settings file changed, applying")
		*next = loaded
		return nil
	})
}

// update applies fn to a copy of the current settings, then stores, persists
// and publishes the result. Concurrent updates never start from the same
// snapshot.
func (s *Store) update(fn func(next *Settings) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	next := s.current.Clone()
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		if errors.Is(err, errNoChange) {
			return nil
		}
		return err
	}
	next = next.normalize()
	s.current = next
	s.persist(next)
	subscribers := slices.Clone(s.subscribers)
	s.mu.Unlock()

	for _, sub := range subscribers {
		sub(next.Clone())
	}
	return nil
}

func (s *Store) persist(settings Settings) {
	data, err := json.MarshalIndent(settings, "", "    ")
	if err != nil {
		s.logger.Error("Failed to encode settings: %v", err)
		return
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.logger.Error("Failed to save settings: %v", err)
			return
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		s.logger.Error("Failed to save settings: %v", err)
	}
}

// read decodes the settings file over the defaults. Keys that fail to decode
// keep their default and are logged.
func (s *Store) read() (Settings, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return Settings{}, errors.Wrap(err, "read settings")
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Settings{}, errors.Wrap(err, "parse settings")
	}
	return decode(doc, s.logger), nil
}

func decode(doc map[string]interface{}, logger *logger.Logger) Settings {
	result := Defaults()
	for key, value := range doc {
		next := result.Clone()
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			ZeroFields:       true,
			Result:           &next,
		})
		if err != nil {
			logger.Warning("Settings decoder: %v", err)
			continue
		}
		if err := dec.Decode(map[string]interface{}{key: value}); err != nil {
			logger.Warning("Ignoring invalid setting %q: %v", key, err)
			continue
		}
		result = next
	}
	return result.normalize()
}

// apply converts value for key and writes it into s.
func apply(s *Settings, key string, value interface{}) error {
	var err error
	switch key {
	case KeyWidth:
		s.Width, err = positiveInt(value)
	case KeyHeight:
		s.Height, err = positiveInt(value)
	case KeyFPS:
		s.FPS, err = positiveInt(value)
	case KeyConfidenceThreshold:
		var v float64
		if v, err = cast.ToFloat64E(value); err == nil {
			if v < 0 || v > 1 {
				err = errors.Errorf("threshold %v outside [0, 1]", v)
			}
			s.ConfidenceThreshold = v
		}
	case KeyTargetClasses:
		s.TargetClasses, err = cast.ToIntSliceE(value)
	case KeyAutoRedact:
		s.AutoRedact, err = cast.ToBoolE(value)
	case KeyPreviewRaw:
		s.PreviewRaw, err = cast.ToBoolE(value)
	case KeyOpenVocabulary:
		s.OpenVocabulary, err = cast.ToBoolE(value)
	case KeyCustomLabels:
		if raw, ok := value.(string); ok {
			s.CustomLabels = ParseLabels(raw)
			return nil
		}
		var labels []string
		if labels, err = cast.ToStringSliceE(value); err == nil {
			s.CustomLabels = normalizeLabels(labels)
		}
	default:
		return errors.Wrap(ErrUnknownKey, key)
	}
	return errors.Wrapf(err, "invalid %s", key)
}

func positiveInt(value interface{}) (int, error) {
	v, err := cast.ToIntE(value)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, errors.Errorf("%d is not positive", v)
	}
	return v, nil
}
