package minio

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/DockFlow/pkg/errors"
)

// Artifact kinds, used as the "kind" metric label and object tag.
const (
	KindReport   = "report"
	KindComplex  = "complex"
	KindManifest = "manifest"
	KindLog      = "log"
	KindOther    = "other"
)

// ErrArtifactNotFound is returned for keys that are not in the bucket.
var ErrArtifactNotFound = errors.New(errors.ErrCodeNotFound, "artifact not found")

// Artifact is one stored run file.
type Artifact struct {
	Key         string    `json:"key"`
	Kind        string    `json:"kind"`
	Size        int64     `json:"size"`
	ETag        string    `json:"etag,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Modified    time.Time `json:"modified,omitempty"`
}

// ArtifactStore uploads run files under "<job>/<path relative to the run>".
type ArtifactStore struct {
	client  *Client
	metrics *prometheus.DockingMetrics
	logger  logging.Logger
}

// NewArtifactStore returns a store writing to client's bucket.
func NewArtifactStore(client *Client, metrics *prometheus.DockingMetrics, logger logging.Logger) *ArtifactStore {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ArtifactStore{client: client, metrics: metrics, logger: logger.Named("artifacts")}
}

// Key returns the object key of file for job. Files outside runDir keep only
// their base name.
func Key(jobID, runDir, file string) string {
	rel, err := filepath.Rel(runDir, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = filepath.Base(file)
	}
	return path.Join(jobID, filepath.ToSlash(rel))
}

// KindOf classifies a run file by name.
func KindOf(file string) string {
	base := filepath.Base(file)
	switch {
	case base == "all.csv":
		return KindManifest
	case strings.HasSuffix(base, ".tsv"), strings.HasSuffix(base, ".csv"), strings.HasSuffix(base, ".pdf"):
		return KindReport
	case strings.HasSuffix(base, ".pdb"):
		return KindComplex
	case strings.HasSuffix(base, "_log"), strings.HasSuffix(base, ".log"):
		return KindLog
	default:
		return KindOther
	}
}

func contentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".tsv":
		return "text/tab-separated-values"
	case ".csv":
		return "text/csv"
	case ".pdb":
		return "chemical/x-pdb"
	case ".pdf":
		return "application/pdf"
	case ".sdf":
		return "chemical/x-mdl-sdfile"
	case ".txt", ".log", "":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

// UploadRun uploads files and returns the stored artifacts in input order.
// Missing files are skipped with a warning.
func (s *ArtifactStore) UploadRun(ctx context.Context, jobID, runDir string, files []string) ([]Artifact, error) {
	out := make([]Artifact, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			s.logger.Warn("artifact missing, not uploaded", logging.String("file", f), logging.Err(err))
			continue
		}
		a, err := s.Upload(ctx, Key(jobID, runDir, f), f)
		if err != nil {
			return out, err
		}
		out = append(out, *a)
	}
	return out, nil
}

// Upload stores file under key.
func (s *ArtifactStore) Upload(ctx context.Context, key, file string) (*Artifact, error) {
	kind := KindOf(file)
	ct := contentType(file)
	info, err := s.client.api.FPutObject(ctx, s.client.bucket, key, file, minio.PutObjectOptions{
		ContentType: ct,
		UserTags:    map[string]string{"kind": kind},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "artifact upload failed").WithDetail(key)
	}
	s.metrics.RecordArtifact(kind)
	s.logger.Debug("artifact uploaded", logging.String("key", key), logging.Int64("size", info.Size))
	return &Artifact{Key: key, Kind: kind, Size: info.Size, ETag: info.ETag, ContentType: ct}, nil
}

// List returns every artifact stored for job.
func (s *ArtifactStore) List(ctx context.Context, jobID string) ([]Artifact, error) {
	var out []Artifact
	for obj := range s.client.api.ListObjects(ctx, s.client.bucket, minio.ListObjectsOptions{
		Prefix:    jobID + "/",
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeStorageError, "artifact listing failed").WithDetail(jobID)
		}
		out = append(out, Artifact{
			Key:         obj.Key,
			Kind:        KindOf(obj.Key),
			Size:        obj.Size,
			ETag:        obj.ETag,
			ContentType: obj.ContentType,
			Modified:    obj.LastModified,
		})
	}
	return out, nil
}

// Exists reports whether key is stored.
func (s *ArtifactStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.api.StatObject(ctx, s.client.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrCodeStorageError, "artifact stat failed").WithDetail(key)
	}
	return true, nil
}

// PresignedURL returns a time-limited download URL for key. A zero expiry
// means one hour.
func (s *ArtifactStore) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	ok, err := s.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrArtifactNotFound.WithDetail(key)
	}
	if expiry == 0 {
		expiry = defaultPresignExpiry
	}
	u, err := s.client.api.PresignedGetObject(ctx, s.client.bucket, key, expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "presign failed").WithDetail(key)
	}
	return u.String(), nil
}

// DeleteRun removes every artifact of job.
func (s *ArtifactStore) DeleteRun(ctx context.Context, jobID string) (int, error) {
	arts, err := s.List(ctx, jobID)
	if err != nil {
		return 0, err
	}
	for i, a := range arts {
		if err := s.client.api.RemoveObject(ctx, s.client.bucket, a.Key, minio.RemoveObjectOptions{}); err != nil {
			return i, errors.Wrap(err, errors.ErrCodeStorageError, "artifact delete failed").WithDetail(a.Key)
		}
	}
	return len(arts), nil
}

//Personal.AI order the ending
