package classifier

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// ManifestFile is the name of the bundle manifest inside the artifact directory.
const ManifestFile = "manifest.toml"

var (
	ErrArtifactMissing = errors.New("model artifact missing")
	ErrArtifactInvalid = errors.New("model artifact invalid")
)

// Manifest describes a frozen artifact bundle.
type Manifest struct {
	ModelVersion string `toml:"model_version"`
	Vectorizer   string `toml:"vectorizer"`
	Classifier   string `toml:"classifier"`
}

// ArtifactLoader loads the artifact bundle at most once. Concurrent callers of
// Load wait for the single load and share its result.
type ArtifactLoader struct {
	dir    string
	logger *zap.Logger

	once  sync.Once
	model *Model
	err   error
	loads int
}

func NewArtifactLoader(dir string, logger *zap.Logger) *ArtifactLoader {
	return &ArtifactLoader{dir: dir, logger: logger}
}

// Load returns the model, reading it from disk on the first call only.
func (l *ArtifactLoader) Load() (*Model, error) {
	l.once.Do(func() {
		l.loads++
		l.logger.Info("Loading model artifacts", zap.String("dir", l.dir))
		l.model, l.err = LoadModel(l.dir)
		if l.err != nil {
			l.logger.Error("Failed to load model artifacts", zap.Error(l.err), zap.String("dir", l.dir))
			return
		}
		l.logger.Info("Model artifacts loaded",
			zap.String("model_version", l.model.Version()),
			zap.Int("features", l.model.Dim()),
			zap.Ints("classes", l.model.Classes()))
	})
	return l.model, l.err
}

// LoadModel reads the manifest and both artifacts from dir.
func LoadModel(dir string) (*Model, error) {
	manifest, err := readManifest(dir)
	if err != nil {
		return nil, err
	}

	var vs vectorizerState
	if err := readArtifact(filepath.Join(dir, manifest.Vectorizer), &vs); err != nil {
		return nil, err
	}
	vectorizer, err := newVectorizer(vs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArtifactInvalid, manifest.Vectorizer, err)
	}

	var ls logisticState
	if err := readArtifact(filepath.Join(dir, manifest.Classifier), &ls); err != nil {
		return nil, err
	}
	decision, err := newLogisticModel(ls, vectorizer.Dim())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArtifactInvalid, manifest.Classifier, err)
	}

	return &Model{
		version:    manifest.ModelVersion,
		vectorizer: vectorizer,
		decision:   decision,
	}, nil
}

func readManifest(dir string) (Manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
		}
		return Manifest{}, fmt.Errorf("error reading manifest: %w", err)
	}

	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: %s: %v", ErrArtifactInvalid, path, err)
	}
	if m.ModelVersion == "" {
		return Manifest{}, fmt.Errorf("%w: %s: model_version is required", ErrArtifactInvalid, path)
	}
	if m.Vectorizer == "" {
		m.Vectorizer = "vectorizer.json"
	}
	if m.Classifier == "" {
		m.Classifier = "classifier.json"
	}
	return m, nil
}

func readArtifact(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrArtifactMissing, path)
		}
		return fmt.Errorf("error reading artifact %s: %w", path, err)
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrArtifactInvalid, path, err)
	}
	return nil
}
