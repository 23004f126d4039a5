package annotations

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/arnaldur/lesari/internal/checksum"
	"github.com/arnaldur/lesari/internal/models"
	"github.com/arnaldur/lesari/internal/storage"
)

// Load reads persisted state from the provider. Absent or unusable
// bytes yield the default empty state; a malformed field falls back to
// its own default without discarding valid siblings. Load never fails.
func (s *Store) Load() {
	data, err := s.provider.Get(StateKey)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			s.logger.Warn("annotations: load failed, using defaults",
				slog.String("error", err.Error()))
		}
		s.adopt(models.DefaultPersistedState(), "")
		return
	}
	s.adopt(s.validateState(data), checksum.Sum(data))
}

// ApplyExternal merges an out-of-band change to the store's key, going
// through the same validation path as Load. Notifications caused by this
// process's own writes are recognised by payload checksum and skipped,
// which also makes duplicate deliveries idempotent. Applying an external
// change never writes back (that would loop the notification channel).
func (s *Store) ApplyExternal(key string, data []byte) {
	if key != StateKey {
		return
	}
	sum := checksum.Sum(data)

	s.mu.Lock()
	if sum == s.lastSaved {
		s.mu.Unlock()
		return
	}
	s.logger.Info("annotations: applying external change")
	st := s.validateState(data)
	s.list = st.Annotations
	s.schemaVersion = st.SchemaVersion
	s.defaultColor = st.DefaultColor
	s.dirty = true
	s.lastSaved = sum
	s.mu.Unlock()

	s.notify("synced", "")
}

// adopt installs a validated state. Not concurrency-safe; called only
// before the store is shared.
func (s *Store) adopt(st models.PersistedState, sum string) {
	s.list = st.Annotations
	s.schemaVersion = st.SchemaVersion
	s.defaultColor = st.DefaultColor
	s.dirty = true
	s.lastSaved = sum
}

// saveLocked serializes the full current state back to the provider.
// Write failures are logged and swallowed: losing durability for one
// session beats crashing the reader, and the in-memory state stays
// correct.
func (s *Store) saveLocked() {
	st := models.PersistedState{
		SchemaVersion: s.schemaVersion,
		Annotations:   s.list,
		DefaultColor:  s.defaultColor,
		UpdatedAt:     s.now().UTC(),
	}
	data, err := json.Marshal(st)
	if err != nil {
		s.logger.Warn("annotations: marshal state failed", slog.String("error", err.Error()))
		return
	}
	s.lastSaved = checksum.Sum(data)
	if err := s.provider.Set(StateKey, data); err != nil {
		s.logger.Warn("annotations: persist failed, keeping in-memory state",
			slog.String("error", err.Error()))
	}
}

// validateState checks each field of the persisted blob independently.
// Unknown fields are ignored (forward compatible); declared fields that
// are absent take defaults silently; fields that are present but
// malformed take defaults with a warning. Legacy (schemaVersion 1)
// anchors are pre-mapped to carry Exact from SelectedText so the codec
// can retry them on every load.
func (s *Store) validateState(data []byte) models.PersistedState {
	st := models.DefaultPersistedState()

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("annotations: persisted state unparseable, using defaults",
			slog.String("error", err.Error()))
		return st
	}

	if msg, ok := raw["schemaVersion"]; ok {
		var v int
		if err := json.Unmarshal(msg, &v); err == nil {
			err = validation.Validate(v, validation.Min(models.AnchorV1), validation.Max(models.AnchorV2))
			if err == nil {
				st.SchemaVersion = v
			} else {
				s.fieldWarn("schemaVersion", err)
			}
		} else {
			s.fieldWarn("schemaVersion", err)
		}
	}

	if msg, ok := raw["defaultColor"]; ok {
		var c models.HighlightColor
		if err := json.Unmarshal(msg, &c); err == nil && models.ValidColor(c) {
			st.DefaultColor = c
		} else {
			s.logger.Warn("annotations: invalid persisted field, using default",
				slog.String("field", "defaultColor"))
		}
	}

	if msg, ok := raw["updatedAt"]; ok {
		var ts time.Time
		if err := json.Unmarshal(msg, &ts); err == nil {
			st.UpdatedAt = ts
		} else {
			s.fieldWarn("updatedAt", err)
		}
	}

	if msg, ok := raw["annotations"]; ok {
		var elems []json.RawMessage
		if err := json.Unmarshal(msg, &elems); err != nil {
			s.fieldWarn("annotations", err)
		} else {
			kept := make([]models.Annotation, 0, len(elems))
			for i, e := range elems {
				var a models.Annotation
				if err := json.Unmarshal(e, &a); err != nil {
					s.logger.Warn("annotations: dropping malformed record",
						slog.Int("index", i), slog.String("error", err.Error()))
					continue
				}
				if err := validateAnnotation(&a); err != nil {
					s.logger.Warn("annotations: dropping invalid record",
						slog.Int("index", i), slog.String("error", err.Error()))
					continue
				}
				if a.Range.Version == models.AnchorV1 && a.Range.Exact == "" {
					a.Range.Exact = a.SelectedText
				}
				kept = append(kept, a)
			}
			st.Annotations = kept
		}
	}

	return st
}

func (s *Store) fieldWarn(field string, err error) {
	s.logger.Warn("annotations: invalid persisted field, using default",
		slog.String("field", field), slog.String("error", err.Error()))
}

// validateAnnotation checks the shape of one persisted record.
func validateAnnotation(a *models.Annotation) error {
	if err := validation.ValidateStruct(a,
		validation.Field(&a.ID, validation.Required),
		validation.Field(&a.BookSlug, validation.Required),
		validation.Field(&a.ChapterSlug, validation.Required),
		validation.Field(&a.SectionSlug, validation.Required),
		validation.Field(&a.SelectedText, validation.Required),
		validation.Field(&a.Color, validation.Required,
			validation.In(models.ColorYellow, models.ColorGreen, models.ColorBlue, models.ColorPink)),
	); err != nil {
		return err
	}
	if err := validation.Validate(a.Range.Version,
		validation.Min(models.AnchorV1), validation.Max(models.AnchorV2)); err != nil {
		return err
	}
	if a.Range.Version == models.AnchorV2 && a.Range.Exact == "" {
		return errors.New("v2 anchor missing exact")
	}
	return nil
}
